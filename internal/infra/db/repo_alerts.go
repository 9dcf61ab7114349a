package db

import (
	"context"
	"errors"

	"agritrace/internal/domain"

	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.DeforestationAlert, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DeforestationAlertModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	alert := alertFromModel(model)
	return &alert, nil
}

func (r *AlertRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.DeforestationAlert, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DeforestationAlertModel
	if err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("alert_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeforestationAlert, 0, len(models))
	for _, model := range models {
		out = append(out, alertFromModel(model))
	}
	return out, nil
}

func (r *AlertRepository) Create(ctx context.Context, a domain.DeforestationAlert) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := alertModelFromDomain(a)
	model.ID = newID(model.ID)
	model.CreatedAt = createdAt(model.CreatedAt)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AlertRepository) Save(ctx context.Context, a *domain.DeforestationAlert) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := alertModelFromDomain(*a)
	result := r.db.WithContext(ctx).Model(&DeforestationAlertModel{}).Where("id = ?", model.ID).Select("*").Omit("id", "created_at").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func alertModelFromDomain(a domain.DeforestationAlert) DeforestationAlertModel {
	model := DeforestationAlertModel{
		ID:         a.ID,
		WorkflowID: a.WorkflowID,
		UnitID:     a.UnitID,
		Severity:   string(a.Severity),
		AlertDate:  a.AlertDate.UTC(),
		Source:     a.Source,
		Reviewed:   a.Reviewed,
		CreatedAt:  a.CreatedAt.UTC(),
	}
	if a.ReviewedAt != nil {
		reviewedAt := a.ReviewedAt.UTC()
		model.ReviewedAt = &reviewedAt
	}
	return model
}

func alertFromModel(model DeforestationAlertModel) domain.DeforestationAlert {
	return domain.DeforestationAlert{
		ID:         model.ID,
		WorkflowID: model.WorkflowID,
		UnitID:     model.UnitID,
		Severity:   domain.AlertSeverity(model.Severity),
		AlertDate:  model.AlertDate.UTC(),
		Source:     model.Source,
		Reviewed:   model.Reviewed,
		ReviewedAt: model.ReviewedAt,
		CreatedAt:  model.CreatedAt.UTC(),
	}
}
