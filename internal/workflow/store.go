package workflow

import (
	"context"
	"fmt"

	"adresboek/pkg/sentinel"
)

// ErrSessionNotFound keeps store-specific 404s consistent across the memory
// and Redis implementations.
var ErrSessionNotFound = fmt.Errorf("session not found: %w", sentinel.ErrNotFound)

// SessionStore persists workflow sessions between events.
//
// Error contract:
// - Find returns ErrSessionNotFound when the session does not exist or expired.
// - Save and Delete return wrapped errors only for infrastructure failures.
type SessionStore interface {
	Save(ctx context.Context, sess *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
