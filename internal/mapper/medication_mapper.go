package mapper

import (
	"encoding/json"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/model"
	"temporalos-be/pkg/medication"

	"gorm.io/datatypes"
)

type MedicationMapper struct{}

func NewMedicationMapper() *MedicationMapper {
	return &MedicationMapper{}
}

func (m *MedicationMapper) ToEntity(l *model.MedicationLog) *entity.MedicationLog {
	if l == nil {
		return nil
	}

	var analysis *medication.Analysis
	if len(l.Analysis) > 0 && string(l.Analysis) != "null" {
		var a medication.Analysis
		if err := json.Unmarshal(l.Analysis, &a); err == nil {
			analysis = &a
		}
	}

	return &entity.MedicationLog{
		LogId:       l.LogId,
		SessionId:   l.SessionId,
		PatientId:   l.PatientId,
		Medication:  l.Medication,
		Dosage:      l.Dosage,
		Route:       l.Route,
		Frequency:   l.Frequency,
		StartDate:   l.StartDate,
		ConfirmedBy: l.ConfirmedBy,
		Analysis:    analysis,
		CreatedAt:   l.CreatedAt,
	}
}

func (m *MedicationMapper) ToModel(l *entity.MedicationLog) (*model.MedicationLog, error) {
	if l == nil {
		return nil, nil
	}

	var analysis datatypes.JSON
	if l.Analysis != nil {
		raw, err := json.Marshal(l.Analysis)
		if err != nil {
			return nil, err
		}
		analysis = datatypes.JSON(raw)
	}

	return &model.MedicationLog{
		LogId:       l.LogId,
		SessionId:   l.SessionId,
		PatientId:   l.PatientId,
		Medication:  l.Medication,
		Dosage:      l.Dosage,
		Route:       l.Route,
		Frequency:   l.Frequency,
		StartDate:   l.StartDate,
		ConfirmedBy: l.ConfirmedBy,
		Analysis:    analysis,
		CreatedAt:   l.CreatedAt,
	}, nil
}

func (m *MedicationMapper) ToEntities(models []*model.MedicationLog) []*entity.MedicationLog {
	out := make([]*entity.MedicationLog, 0, len(models))
	for _, l := range models {
		out = append(out, m.ToEntity(l))
	}
	return out
}
