package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"temporalos-be/internal/dto"
	"temporalos-be/internal/entity"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/pkg/temporal"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = serverutils.WithKind(serverutils.ErrNotFound, errors.New("session not found"))
	ErrSessionExists   = serverutils.WithKind(serverutils.ErrConflict, contract.ErrSessionExists)
)

// SessionStore is a session repository that can report whether it is durable.
type SessionStore interface {
	contract.SessionRepository
	Durable() bool
}

type ISessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Update(ctx context.Context, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	// Ensure creates the session if it does not exist yet.
	Ensure(ctx context.Context, sessionID string) error
	SetLastMode(ctx context.Context, sessionID string, mode temporal.Mode) error
	RecordSignal(ctx context.Context, sessionID string, signal temporal.Signal) error
	StoreName() string
}

type sessionService struct {
	store SessionStore
	now   func() time.Time
}

func NewSessionService(store SessionStore) ISessionService {
	return &sessionService{store: store, now: time.Now}
}

func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("session-%d-%s", now.UnixMilli(), suffix)
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	id := strings.TrimSpace(req.SessionId)
	if id == "" {
		id = NewSessionID(s.now())
	}

	session := &entity.Session{SessionId: id, LastMode: temporal.ModeAuto, Signals: []temporal.Signal{}}
	if err := s.store.Create(ctx, session); err != nil {
		if errors.Is(err, contract.ErrSessionExists) {
			return nil, ErrSessionExists
		}
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) Update(ctx context.Context, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	var update entity.SessionUpdate
	if req.LastMode != nil {
		mode := temporal.Mode(*req.LastMode)
		update.LastMode = &mode
	}
	if req.Signal != nil {
		update.Signal = &temporal.Signal{Type: temporal.SignalType(req.Signal.Type), Data: req.Signal.Data}
	}

	session, err := s.store.Update(ctx, sessionID, update)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) Ensure(ctx context.Context, sessionID string) error {
	// A failed lookup still tries the create, which can land in memory.
	existing, err := s.store.FindByID(ctx, sessionID)
	if err == nil && existing != nil {
		return nil
	}
	err = s.store.Create(ctx, &entity.Session{SessionId: sessionID, LastMode: temporal.ModeAuto})
	if errors.Is(err, contract.ErrSessionExists) {
		return nil
	}
	return err
}

func (s *sessionService) SetLastMode(ctx context.Context, sessionID string, mode temporal.Mode) error {
	session, err := s.store.Update(ctx, sessionID, entity.SessionUpdate{LastMode: &mode})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}

func (s *sessionService) RecordSignal(ctx context.Context, sessionID string, signal temporal.Signal) error {
	session, err := s.store.Update(ctx, sessionID, entity.SessionUpdate{Signal: &signal})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}

func (s *sessionService) StoreName() string {
	if s.store.Durable() {
		return "postgres"
	}
	return "memory"
}

func toSessionResponse(s *entity.Session) *dto.SessionResponse {
	history := make([]dto.SignalResponse, 0, len(s.Signals))
	for _, sig := range s.Signals {
		history = append(history, dto.SignalResponse{
			Type:      string(sig.Type),
			Data:      sig.Data,
			Timestamp: sig.Timestamp.UnixMilli(),
		})
	}
	return &dto.SessionResponse{
		SessionId:     s.SessionId,
		LastMode:      string(s.LastMode),
		SignalHistory: history,
		CreatedAt:     s.CreatedAt.UnixMilli(),
		UpdatedAt:     s.UpdatedAt.UnixMilli(),
	}
}
