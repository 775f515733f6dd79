package implementation

import (
	"context"
	"errors"
	"time"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/mapper"
	"temporalos-be/internal/model"
	"temporalos-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
	now    func() time.Time
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
		now:    time.Now,
	}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.Session) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.ErrSessionExists
		}
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*entity.Session, error) {
	return r.find(r.db.WithContext(ctx), sessionID)
}

func (r *SessionRepositoryImpl) find(db *gorm.DB, sessionID string) (*entity.Session, error) {
	var m model.Session
	err := db.Preload("Signals", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).First(&m, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, sessionID string, update entity.SessionUpdate) (*entity.Session, error) {
	var out *entity.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Session
		// Row lock serializes concurrent signal appends for one session.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "session_id = ?", sessionID).Error
		if err != nil {
			return err
		}

		now := r.now()
		updates := map[string]interface{}{"updated_at": now}
		if update.LastMode != nil {
			updates["last_mode"] = string(*update.LastMode)
		}

		if update.Signal != nil {
			var last model.SessionSignal
			if err := tx.Where("session_id = ?", sessionID).Order("seq DESC").Limit(1).Find(&last).Error; err != nil {
				return err
			}

			signal := *update.Signal
			signal.Timestamp = entity.NextSignalTime(now, last.Timestamp)
			row, err := r.mapper.SignalToModel(sessionID, last.Seq+1, signal)
			if err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Session{}).Where("session_id = ?", sessionID).Updates(updates).Error; err != nil {
			return err
		}

		out, err = r.find(tx, sessionID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}
