package db

import (
	"context"
	"errors"
	"time"

	"agritrace/internal/domain"

	"gorm.io/gorm"
)

type ProductionUnitRepository struct {
	db *gorm.DB
}

func NewProductionUnitRepository(db *gorm.DB) *ProductionUnitRepository {
	return &ProductionUnitRepository{db: db}
}

func (r *ProductionUnitRepository) GetByID(ctx context.Context, id string) (*domain.ProductionUnitLink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ProductionUnitModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, err
	}
	unit := unitFromModel(model)
	return &unit, nil
}

func (r *ProductionUnitRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.ProductionUnitLink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProductionUnitModel
	if err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ProductionUnitLink, 0, len(models))
	for _, model := range models {
		out = append(out, unitFromModel(model))
	}
	return out, nil
}

func (r *ProductionUnitRepository) Create(ctx context.Context, u domain.ProductionUnitLink) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := unitModelFromDomain(u)
	model.ID = newID(model.ID)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ProductionUnitRepository) Save(ctx context.Context, u *domain.ProductionUnitLink) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := unitModelFromDomain(*u)
	result := r.db.WithContext(ctx).Model(&ProductionUnitModel{}).Where("id = ?", model.ID).Select("*").Omit("id", "created_at").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func (r *ProductionUnitRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ProductionUnitModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUnitNotFound
	}
	return nil
}

func unitModelFromDomain(u domain.ProductionUnitLink) ProductionUnitModel {
	var geometry []byte
	if u.GeometryGeoJSON != "" {
		geometry = []byte(u.GeometryGeoJSON)
	}
	return ProductionUnitModel{
		ID:                   u.ID,
		WorkflowID:           u.WorkflowID,
		FarmerID:             u.FarmerID,
		Name:                 u.Name,
		Region:               u.Region,
		CountryCode:          u.CountryCode,
		Latitude:             u.Latitude,
		Longitude:            u.Longitude,
		GeometryGeoJSON:      geometry,
		GeolocationVerified:  u.GeolocationVerified,
		DeforestationChecked: u.DeforestationChecked,
		DeforestationClear:   u.DeforestationClear,
		CreatedAt:            u.CreatedAt.UTC(),
	}
}

func unitFromModel(model ProductionUnitModel) domain.ProductionUnitLink {
	return domain.ProductionUnitLink{
		ID:                   model.ID,
		WorkflowID:           model.WorkflowID,
		FarmerID:             model.FarmerID,
		Name:                 model.Name,
		Region:               model.Region,
		CountryCode:          model.CountryCode,
		Latitude:             model.Latitude,
		Longitude:            model.Longitude,
		GeometryGeoJSON:      string(model.GeometryGeoJSON),
		GeolocationVerified:  model.GeolocationVerified,
		DeforestationChecked: model.DeforestationChecked,
		DeforestationClear:   model.DeforestationClear,
		CreatedAt:            model.CreatedAt.UTC(),
	}
}
