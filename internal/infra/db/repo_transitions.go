package db

import (
	"context"

	"agritrace/internal/domain"

	"gorm.io/gorm"
)

type StageTransitionRepository struct {
	db *gorm.DB
}

func NewStageTransitionRepository(db *gorm.DB) *StageTransitionRepository {
	return &StageTransitionRepository{db: db}
}

func (r *StageTransitionRepository) Append(ctx context.Context, t domain.StageTransition) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := StageTransitionModel{
		ID:         newID(t.ID),
		WorkflowID: t.WorkflowID,
		FromStage:  string(t.FromStage),
		ToStage:    string(t.ToStage),
		Direction:  string(t.Direction),
		Reason:     t.Reason,
		CreatedAt:  createdAt(t.CreatedAt),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *StageTransitionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.StageTransition, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []StageTransitionModel
	if err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StageTransition, 0, len(models))
	for _, model := range models {
		out = append(out, domain.StageTransition{
			ID:         model.ID,
			WorkflowID: model.WorkflowID,
			FromStage:  domain.Stage(model.FromStage),
			ToStage:    domain.Stage(model.ToStage),
			Direction:  domain.TransitionDirection(model.Direction),
			Reason:     model.Reason,
			CreatedAt:  model.CreatedAt.UTC(),
		})
	}
	return out, nil
}
