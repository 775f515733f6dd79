package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	SessionId string          `gorm:"type:varchar(128);primaryKey"`
	LastMode  string          `gorm:"type:varchar(32);not null;default:'auto'"`
	Signals   []SessionSignal `gorm:"foreignKey:SessionId;references:SessionId;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}

// SessionSignal rows are append-only. Seq orders signals within a session.
type SessionSignal struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_session_signals_seq,priority:1"`
	Seq       int            `gorm:"not null;uniqueIndex:idx_session_signals_seq,priority:2"`
	Type      string         `gorm:"type:varchar(32);not null"`
	Data      datatypes.JSON `gorm:"type:jsonb"`
	Timestamp time.Time      `gorm:"not null"`
}

func (SessionSignal) TableName() string {
	return "session_signals"
}
