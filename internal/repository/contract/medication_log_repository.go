package contract

import (
	"context"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/repository/specification"
)

type MedicationLogRepository interface {
	Create(ctx context.Context, log *entity.MedicationLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MedicationLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
