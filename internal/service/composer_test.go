package service

import (
	"strings"
	"testing"

	"github.com/sattva-labs/sattva/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRetrieval() domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.DocumentChunk{ID: 1, SourceLabel: "asanas.md", Text: "Surya Namaskar is a sequence of poses"}, Score: 0.91},
			{Chunk: domain.DocumentChunk{ID: 2, SourceLabel: "breath.md", Text: "Pranayama is breath control"}, Score: 0.62},
		},
	}
}

func TestComposePrompt_Ordering(t *testing.T) {
	history := []domain.ConversationTurn{
		domain.NewConversationTurn(domain.RoleUser, "What is yoga?"),
		domain.NewConversationTurn(domain.RoleAssistant, "A practice of body and mind."),
	}

	messages := ComposePrompt("instructions", sampleRetrieval(), history, "Tell me about Surya Namaskar")

	require.Len(t, messages, 4)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, domain.RoleUser, messages[1].Role)
	assert.Equal(t, "What is yoga?", messages[1].Content)
	assert.Equal(t, domain.RoleAssistant, messages[2].Role)
	assert.Equal(t, domain.RoleUser, messages[3].Role)
	assert.Equal(t, "Tell me about Surya Namaskar", messages[3].Content)
}

func TestComposePrompt_ContextSection(t *testing.T) {
	messages := ComposePrompt("instructions", sampleRetrieval(), nil, "question")

	system := messages[0].Content
	assert.True(t, strings.HasPrefix(system, "instructions"))
	assert.Contains(t, system, contextHeader)
	assert.Contains(t, system, "[Source 1: asanas.md] (relevance 0.91)")
	assert.Contains(t, system, "Surya Namaskar is a sequence of poses")
	assert.Contains(t, system, "[Source 2: breath.md] (relevance 0.62)")

	// Most relevant passage comes first.
	assert.Less(t, strings.Index(system, "asanas.md"), strings.Index(system, "breath.md"))
}

func TestComposePrompt_EmptyRetrieval(t *testing.T) {
	messages := ComposePrompt("instructions", domain.RetrievalResult{}, nil, "question")

	require.Len(t, messages, 2)
	system := messages[0].Content
	assert.Contains(t, system, noContextNote)
	assert.NotContains(t, system, contextHeader)
	assert.Equal(t, "question", messages[1].Content)
}

func TestComposePrompt_Deterministic(t *testing.T) {
	history := []domain.ConversationTurn{
		domain.NewConversationTurn(domain.RoleUser, "hi"),
	}

	first := ComposePrompt("instructions", sampleRetrieval(), history, "question")
	second := ComposePrompt("instructions", sampleRetrieval(), history, "question")

	assert.Equal(t, first, second)
}
