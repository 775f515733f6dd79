package memory

import (
	"context"
	"sync"
	"time"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. It never fails except for
// duplicate creates.
type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		now:   time.Now,
	}
}

func (r *SessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.cache.Get(session.SessionId); found {
		return contract.ErrSessionExists
	}
	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.cache.Set(session.SessionId, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) FindByID(_ context.Context, sessionID string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(sessionID); found {
		return x.(*entity.Session).Clone(), nil
	}
	return nil, nil
}

func (r *SessionRepository) Update(_ context.Context, sessionID string, update entity.SessionUpdate) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	session := x.(*entity.Session).Clone()

	now := r.now()
	session.UpdatedAt = now
	if update.LastMode != nil {
		session.LastMode = *update.LastMode
	}
	if update.Signal != nil {
		signal := *update.Signal
		var previous time.Time
		if n := len(session.Signals); n > 0 {
			previous = session.Signals[n-1].Timestamp
		}
		signal.Timestamp = entity.NextSignalTime(now, previous)
		session.Signals = append(session.Signals, signal)
	}

	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session.Clone(), nil
}

// Put stores a copy of session as-is, replacing any existing entry.
func (r *SessionRepository) Put(_ context.Context, session *entity.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(session.SessionId, session.Clone(), cache.DefaultExpiration)
}
