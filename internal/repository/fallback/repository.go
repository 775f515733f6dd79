// Package fallback serves each repository operation from the durable store and
// falls back to memory per operation when the durable store is absent or failing.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/metrics"
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/internal/repository/specification"
)

var ErrStoreUnavailable = serverutils.WithKind(serverutils.ErrUnavailable, errors.New("session store unavailable"))

// SessionCache is the in-memory side of the session fallback. Put mirrors a
// durable copy so the cache can serve the session during an outage.
type SessionCache interface {
	contract.SessionRepository
	Put(ctx context.Context, session *entity.Session)
}

type SessionRepository struct {
	primary contract.SessionRepository
	memory  SessionCache
	logger  logger.ILogger
}

// NewSessionRepository wraps primary, which may be nil.
func NewSessionRepository(primary contract.SessionRepository, memory SessionCache, log logger.ILogger) *SessionRepository {
	return &SessionRepository{primary: primary, memory: memory, logger: log}
}

// Durable reports whether a durable store is configured.
func (r *SessionRepository) Durable() bool {
	return r.primary != nil
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	if r.primary != nil {
		err := r.primary.Create(ctx, session)
		if err == nil {
			r.memory.Put(ctx, session)
			return nil
		}
		if errors.Is(err, contract.ErrSessionExists) {
			return err
		}
		r.degrade("create", err)
	}
	if err := r.memory.Create(ctx, session); err != nil {
		if errors.Is(err, contract.ErrSessionExists) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindByID consults memory on a durable miss as well, since earlier writes may
// have landed there during an outage. A session only the failing durable store
// knows about is reported as unavailable, not missing.
func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	var primaryErr error
	if r.primary != nil {
		s, err := r.primary.FindByID(ctx, sessionID)
		if err == nil && s != nil {
			r.memory.Put(ctx, s)
			return s, nil
		}
		if err != nil {
			primaryErr = err
			r.degrade("find", err)
		}
	}
	s, err := r.memory.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if s == nil && primaryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, primaryErr)
	}
	return s, nil
}

func (r *SessionRepository) Update(ctx context.Context, sessionID string, update entity.SessionUpdate) (*entity.Session, error) {
	var primaryErr error
	if r.primary != nil {
		s, err := r.primary.Update(ctx, sessionID, update)
		if err == nil && s != nil {
			r.memory.Put(ctx, s)
			return s, nil
		}
		if err != nil {
			primaryErr = err
			r.degrade("update", err)
		}
	}
	s, err := r.memory.Update(ctx, sessionID, update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if s == nil && primaryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, primaryErr)
	}
	return s, nil
}

func (r *SessionRepository) degrade(op string, err error) {
	metrics.StoreFallbacks.WithLabelValues("session_" + op).Inc()
	r.logger.Warn("SESSION", "Durable session store failed, using in-memory store", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
}

type MedicationLogRepository struct {
	primary contract.MedicationLogRepository
	memory  contract.MedicationLogRepository
	logger  logger.ILogger
}

func NewMedicationLogRepository(primary, memory contract.MedicationLogRepository, log logger.ILogger) *MedicationLogRepository {
	return &MedicationLogRepository{primary: primary, memory: memory, logger: log}
}

func (r *MedicationLogRepository) Create(ctx context.Context, log *entity.MedicationLog) error {
	if r.primary != nil {
		err := r.primary.Create(ctx, log)
		if err == nil {
			return nil
		}
		r.degrade("create", err)
	}
	if err := r.memory.Create(ctx, log); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindAll merges durable rows with any written to memory during an outage.
func (r *MedicationLogRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MedicationLog, error) {
	var out []*entity.MedicationLog
	primaryOK := false
	if r.primary != nil {
		logs, err := r.primary.FindAll(ctx, specs...)
		if err == nil {
			out, primaryOK = logs, true
		} else {
			r.degrade("find", err)
		}
	}

	logs, err := r.memory.FindAll(ctx, specs...)
	if err != nil {
		if primaryOK {
			return out, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	seen := make(map[string]bool, len(out))
	for _, l := range out {
		seen[l.LogId] = true
	}
	for _, l := range logs {
		if !seen[l.LogId] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MedicationLogRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	logs, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(logs)), nil
}

func (r *MedicationLogRepository) degrade(op string, err error) {
	metrics.StoreFallbacks.WithLabelValues("medication_" + op).Inc()
	r.logger.Warn("MEDICATION", "Durable medication store failed, using in-memory store", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
}
