package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/sattva-labs/sattva/internal/domain"
	"github.com/sattva-labs/sattva/internal/telemetry"
)

// Retriever answers nearest-neighbor queries over the document index.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, threshold float64) (domain.RetrievalResult, error)
}

// Completer invokes the external completion service. Implementations
// retry a failed call exactly once before reporting an error.
type Completer interface {
	Complete(ctx context.Context, messages []domain.PromptMessage) (string, error)
}

// ConversationStore is the per-session history the orchestrator mutates.
// UpdateSession runs the callback inside the session's exclusive section
// and appends the returned turns before releasing it, so the
// read-compose-generate-append sequence cannot interleave for a single
// session; sessions never contend with each other.
type ConversationStore interface {
	UpdateSession(id string, fn func(history []domain.ConversationTurn) ([]domain.ConversationTurn, error)) error
}

// ChatConfig carries the retrieval and prompt knobs, validated at startup
// and read-only afterwards.
type ChatConfig struct {
	TopK                int
	SimilarityThreshold float64
	SystemPrompt        string
}

// ChatResult is the structured answer returned to the routing layer.
type ChatResult struct {
	Answer    string
	Sources   []string
	SessionID string
}

// ChatService orchestrates retrieval, prompt composition, generation and
// memory updates for one chat turn.
type ChatService struct {
	retriever Retriever
	completer Completer
	store     ConversationStore
	cfg       ChatConfig
}

// NewChatService creates a ChatService instance.
func NewChatService(retriever Retriever, completer Completer, store ConversationStore, cfg ChatConfig) *ChatService {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &ChatService{
		retriever: retriever,
		completer: completer,
		store:     store,
		cfg:       cfg,
	}
}

// Chat runs one turn for the session. Memory is mutated only after a
// fully successful generation; a degraded retrieval yields a normal
// answer with an empty sources list.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}

	retrieved := s.retrieve(ctx, message)

	var answer string
	err := s.store.UpdateSession(sessionID, func(history []domain.ConversationTurn) ([]domain.ConversationTurn, error) {
		prompt := ComposePrompt(s.cfg.SystemPrompt, retrieved, history, message)

		completion, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "completion service failed", err)
		}

		// A late completion for an abandoned request must not touch memory.
		if ctx.Err() != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternal, "request cancelled", ctx.Err())
		}

		answer = completion
		return []domain.ConversationTurn{
			domain.NewConversationTurn(domain.RoleUser, message),
			domain.NewConversationTurn(domain.RoleAssistant, completion),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Answer:    answer,
		Sources:   retrieved.SourceLabels(),
		SessionID: sessionID,
	}, nil
}

// retrieve is best-effort: any failure on the retrieval path degrades to
// an empty result so generation is still attempted. An unloaded index is
// the expected cold-start case; anything else is reported to telemetry.
func (s *ChatService) retrieve(ctx context.Context, query string) domain.RetrievalResult {
	result, err := s.retriever.Search(ctx, query, s.cfg.TopK, s.cfg.SimilarityThreshold)
	if err == nil {
		return result
	}

	if errors.Is(err, domain.ErrIndexNotLoaded) {
		log.Printf("chat: retrieval degraded, index not loaded")
	} else {
		log.Printf("chat: retrieval degraded: %v", err)
		telemetry.CaptureError(ctx, err)
	}
	return domain.RetrievalResult{}
}
