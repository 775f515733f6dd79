package model

import (
	"time"

	"gorm.io/datatypes"
)

type MedicationLog struct {
	LogId       string         `gorm:"type:varchar(64);primaryKey"`
	SessionId   string         `gorm:"type:varchar(128);not null;index:idx_medication_logs_session_created,priority:1"`
	PatientId   string         `gorm:"type:varchar(128);not null"`
	Medication  string         `gorm:"type:varchar(255);not null"`
	Dosage      string         `gorm:"type:varchar(255);not null"`
	Route       string         `gorm:"type:varchar(64)"`
	Frequency   string         `gorm:"type:varchar(128)"`
	StartDate   string         `gorm:"type:varchar(32)"`
	ConfirmedBy string         `gorm:"type:varchar(128)"`
	Analysis    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index:idx_medication_logs_session_created,priority:2"`
}

func (MedicationLog) TableName() string {
	return "medication_logs"
}
