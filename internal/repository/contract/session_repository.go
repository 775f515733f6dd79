package contract

import (
	"context"
	"errors"

	"temporalos-be/internal/entity"
)

var ErrSessionExists = errors.New("session already exists")

// SessionRepository stores sessions and their append-only signal history.
// Lookups of unknown sessions return (nil, nil).
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, sessionID string) (*entity.Session, error)
	// Update applies a partial update. A signal's timestamp is assigned here and never
	// precedes the session's previous signal.
	Update(ctx context.Context, sessionID string, update entity.SessionUpdate) (*entity.Session, error)
}
