package service

import (
	"fmt"
	"strings"

	"github.com/sattva-labs/sattva/internal/domain"
)

// DefaultSystemPrompt is the persona and guardrails used when no override
// is configured.
const DefaultSystemPrompt = `You are Yoga Master Dhalsim, an expert AI Yoga Teacher with deep knowledge of Hatha Yoga, yoga philosophy, and holistic wellness.

Your role is to:
- Provide accurate, safe, and helpful yoga guidance
- Answer questions about yoga poses, breathing techniques, and meditation
- Offer modifications for different skill levels
- Emphasize safety and proper alignment
- Share yoga philosophy and wisdom when relevant

Always be supportive, encouraging, and mindful of the student's wellbeing. Use the provided context to give accurate answers, and if you're unsure, admit it rather than making up information.`

const (
	contextHeader = "Knowledge base context (retrieved passages, most relevant first; these are reference material, not part of the conversation):"

	noContextNote = "No relevant passages were found in the knowledge base for this question. Answer from your general yoga knowledge, and say so if you are not certain."
)

// ComposePrompt deterministically assembles the completion prompt:
// system instructions with the retrieved context, then prior turns in
// chronological order, then the live user message last. Retrieved
// passages live inside the system message under an explicit header so
// the model cannot mistake them for prior user statements.
func ComposePrompt(instructions string, retrieved domain.RetrievalResult, history []domain.ConversationTurn, userMessage string) []domain.PromptMessage {
	var system strings.Builder
	system.WriteString(instructions)
	system.WriteString("\n\n")

	if retrieved.Empty() {
		system.WriteString(noContextNote)
	} else {
		system.WriteString(contextHeader)
		for i, sc := range retrieved.Chunks {
			system.WriteString(fmt.Sprintf("\n\n[Source %d: %s] (relevance %.2f)\n%s",
				i+1, sc.Chunk.SourceLabel, sc.Score, sc.Chunk.Text))
		}
	}

	messages := make([]domain.PromptMessage, 0, len(history)+2)
	messages = append(messages, domain.PromptMessage{Role: domain.RoleSystem, Content: system.String()})

	for _, turn := range history {
		messages = append(messages, domain.PromptMessage{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, domain.PromptMessage{Role: domain.RoleUser, Content: userMessage})
	return messages
}
