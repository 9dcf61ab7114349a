package db

import (
	"context"
	"errors"
	"time"

	"agritrace/internal/domain"

	"gorm.io/gorm"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model WorkflowModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, err
	}
	workflow := workflowFromModel(model)
	return &workflow, nil
}

func (r *WorkflowRepository) Create(ctx context.Context, w domain.Workflow) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := workflowModelFromDomain(w)
	model.ID = newID(model.ID)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	model.UpdatedAt = model.CreatedAt
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *WorkflowRepository) Save(ctx context.Context, w *domain.Workflow) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := workflowModelFromDomain(*w)
	model.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&WorkflowModel{}).Where("id = ?", model.ID).Select("*").Omit("id", "created_at").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrWorkflowNotFound
	}
	w.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *WorkflowRepository) ListByExporter(ctx context.Context, exporterID string) ([]domain.Workflow, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []WorkflowModel
	if err := r.db.WithContext(ctx).
		Where("exporter_id = ?", exporterID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Workflow, 0, len(models))
	for _, model := range models {
		out = append(out, workflowFromModel(model))
	}
	return out, nil
}

func workflowModelFromDomain(w domain.Workflow) WorkflowModel {
	model := WorkflowModel{
		ID:                  w.ID,
		ProduceType:         w.ProduceType,
		TotalQuantityKG:     w.TotalQuantityKG,
		OriginCountry:       w.OriginCountry,
		ExporterID:          w.ExporterID,
		ImporterID:          w.ImporterID,
		ImporterAccount:     w.ImporterAccount,
		SkipProcessing:      w.SkipProcessing,
		CurrentStage:        string(w.CurrentStage),
		StageEnteredAt:      w.StageEnteredAt.UTC(),
		Status:              string(w.Status),
		RiskScore:           w.RiskScore,
		CertificateStatus:   string(w.CertificateStatus),
		CertificateTxID:     w.CertificateTxID,
		CertificateSerial:   w.CertificateSerial,
		CertificateAssetID:  w.CertificateAssetID,
		IssuerAccount:       w.IssuerAccount,
		CertificateIssuedAt: w.CertificateIssuedAt,
		CreatedAt:           w.CreatedAt.UTC(),
		UpdatedAt:           w.UpdatedAt.UTC(),
	}
	if w.RiskClassification != nil {
		classification := string(*w.RiskClassification)
		model.RiskClassification = &classification
	}
	if w.RiskAssessedAt != nil {
		assessedAt := w.RiskAssessedAt.UTC()
		model.RiskAssessedAt = &assessedAt
	}
	return model
}

func workflowFromModel(model WorkflowModel) domain.Workflow {
	workflow := domain.Workflow{
		ID:                  model.ID,
		ProduceType:         model.ProduceType,
		TotalQuantityKG:     model.TotalQuantityKG,
		OriginCountry:       model.OriginCountry,
		ExporterID:          model.ExporterID,
		ImporterID:          model.ImporterID,
		ImporterAccount:     model.ImporterAccount,
		SkipProcessing:      model.SkipProcessing,
		CurrentStage:        domain.Stage(model.CurrentStage),
		StageEnteredAt:      model.StageEnteredAt.UTC(),
		Status:              domain.WorkflowStatus(model.Status),
		RiskScore:           model.RiskScore,
		RiskAssessedAt:      model.RiskAssessedAt,
		CertificateStatus:   domain.CertificateStatus(model.CertificateStatus),
		CertificateTxID:     model.CertificateTxID,
		CertificateSerial:   model.CertificateSerial,
		CertificateAssetID:  model.CertificateAssetID,
		IssuerAccount:       model.IssuerAccount,
		CertificateIssuedAt: model.CertificateIssuedAt,
		CreatedAt:           model.CreatedAt.UTC(),
		UpdatedAt:           model.UpdatedAt.UTC(),
	}
	if model.RiskClassification != nil {
		classification := domain.RiskClassification(*model.RiskClassification)
		workflow.RiskClassification = &classification
	}
	return workflow
}
