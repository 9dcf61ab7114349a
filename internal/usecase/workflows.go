package usecase

import (
	"context"
	"fmt"
	"time"

	"agritrace/internal/domain"

	"github.com/google/uuid"
)

type WorkflowService struct {
	Workflows WorkflowRepository

	Now func() time.Time
}

type CreateWorkflowInput struct {
	ProduceType     string
	TotalQuantityKG float64
	OriginCountry   string
	ExporterID      string
	SkipProcessing  bool
}

func (s *WorkflowService) Create(ctx context.Context, in CreateWorkflowInput) (*domain.Workflow, error) {
	if in.ProduceType == "" {
		return nil, fmt.Errorf("%w: produce type is required", domain.ErrInvalidInput)
	}
	if in.TotalQuantityKG <= 0 {
		return nil, fmt.Errorf("%w: total quantity must be positive", domain.ErrInvalidInput)
	}
	if in.ExporterID == "" {
		return nil, fmt.Errorf("%w: exporter id is required", domain.ErrInvalidInput)
	}
	now := s.now()
	workflow := domain.Workflow{
		ID:                uuid.NewString(),
		ProduceType:       in.ProduceType,
		TotalQuantityKG:   in.TotalQuantityKG,
		OriginCountry:     in.OriginCountry,
		ExporterID:        in.ExporterID,
		SkipProcessing:    in.SkipProcessing,
		CurrentStage:      domain.FirstStage(),
		StageEnteredAt:    now,
		Status:            domain.WorkflowInProgress,
		CertificateStatus: domain.CertificateNotCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Workflows.Create(ctx, workflow); err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (s *WorkflowService) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.Workflows.GetByID(ctx, id)
}

func (s *WorkflowService) ListByExporter(ctx context.Context, exporterID string) ([]domain.Workflow, error) {
	if exporterID == "" {
		return nil, fmt.Errorf("%w: exporter id is required", domain.ErrInvalidInput)
	}
	return s.Workflows.ListByExporter(ctx, exporterID)
}

func (s *WorkflowService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
