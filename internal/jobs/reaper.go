package jobs

import (
	"context"
	"log"
	"time"

	"github.com/sattva-labs/sattva/internal/domain"
)

// SessionRegistry is the slice of the conversation store the reaper needs.
type SessionRegistry interface {
	List() []domain.SessionInfo
	Delete(id string)
}

// SessionReaper deletes sessions that have been idle longer than the TTL.
// It implements Task so it can run under a Worker.
type SessionReaper struct {
	registry SessionRegistry
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionReaper(registry SessionRegistry, ttl time.Duration) *SessionReaper {
	return &SessionReaper{
		registry: registry,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *SessionReaper) Run(ctx context.Context) error {
	cutoff := r.now().Add(-r.ttl)

	for _, info := range r.registry.List() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.LastActive.Before(cutoff) {
			r.registry.Delete(info.ID)
			log.Printf("Reaped idle session %s (last active %s)", info.ID, info.LastActive.Format(time.RFC3339))
		}
	}

	return nil
}
