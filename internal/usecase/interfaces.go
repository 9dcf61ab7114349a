package usecase

import (
	"context"
	"time"

	"agritrace/internal/domain"
)

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	ListByExporter(ctx context.Context, exporterID string) ([]domain.Workflow, error)
	Create(ctx context.Context, w domain.Workflow) error
	Save(ctx context.Context, w *domain.Workflow) error
}

type ProductionUnitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ProductionUnitLink, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]domain.ProductionUnitLink, error)
	Create(ctx context.Context, u domain.ProductionUnitLink) error
	Save(ctx context.Context, u *domain.ProductionUnitLink) error
	Delete(ctx context.Context, id string) error
}

type TraceabilityEventRepository interface {
	AppendCollection(ctx context.Context, e domain.CollectionEvent) error
	AppendConsolidation(ctx context.Context, e domain.ConsolidationEvent) error
	AppendProcessing(ctx context.Context, e domain.ProcessingEvent) error
	AppendShipment(ctx context.Context, e domain.ShipmentEvent) error

	ListCollections(ctx context.Context, workflowID string) ([]domain.CollectionEvent, error)
	ListConsolidations(ctx context.Context, workflowID string) ([]domain.ConsolidationEvent, error)
	ListProcessings(ctx context.Context, workflowID string) ([]domain.ProcessingEvent, error)
	ListShipments(ctx context.Context, workflowID string) ([]domain.ShipmentEvent, error)

	SumQuantity(ctx context.Context, workflowID string, kind domain.EventKind) (float64, error)
	CountByUnit(ctx context.Context, unitID string) (int64, error)

	// AttachLedgerRef is the only write allowed from a background ledger
	// task; it must be idempotent.
	AttachLedgerRef(ctx context.Context, kind domain.EventKind, eventID, txRef string) error
}

type AlertRepository interface {
	GetByID(ctx context.Context, id string) (*domain.DeforestationAlert, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]domain.DeforestationAlert, error)
	Create(ctx context.Context, a domain.DeforestationAlert) error
	Save(ctx context.Context, a *domain.DeforestationAlert) error
}

type StageTransitionRepository interface {
	Append(ctx context.Context, t domain.StageTransition) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]domain.StageTransition, error)
}

type CountryRiskTable interface {
	Lookup(countryCode string) (domain.CountryRiskLevel, bool)
}

type DateRange struct {
	From time.Time
	To   time.Time
}

type SatelliteAnalysis interface {
	QueryVegetationIndex(ctx context.Context, geometry string, before, after DateRange) (domain.VegetationIndexStats, error)
}

type ExportPolicy interface {
	Evaluate(ctx context.Context, input domain.ExportPolicyInput) (domain.PolicyEvaluation, error)
}

type StageStatusCache interface {
	Get(ctx context.Context, workflowID string) (*domain.StageStatus, bool, error)
	Put(ctx context.Context, workflowID string, status domain.StageStatus, ttl time.Duration) error
	Invalidate(ctx context.Context, workflowID string) error
}

// TaskRunner runs fire-and-forget work off the request path. Submit
// reports false when the runner is saturated or stopped; callers treat
// that as a skipped best-effort side effect, never as a failure.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context)) bool
}
