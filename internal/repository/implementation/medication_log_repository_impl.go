package implementation

import (
	"context"

	"temporalos-be/internal/entity"
	"temporalos-be/internal/mapper"
	"temporalos-be/internal/model"
	"temporalos-be/internal/repository/contract"
	"temporalos-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MedicationLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MedicationMapper
}

func NewMedicationLogRepository(db *gorm.DB) contract.MedicationLogRepository {
	return &MedicationLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewMedicationMapper(),
	}
}

func (r *MedicationLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MedicationLogRepositoryImpl) Create(ctx context.Context, log *entity.MedicationLog) error {
	m, err := r.mapper.ToModel(log)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *MedicationLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MedicationLog, error) {
	var models []*model.MedicationLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *MedicationLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.MedicationLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
