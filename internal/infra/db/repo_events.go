package db

import (
	"context"
	"fmt"
	"time"

	"agritrace/internal/domain"

	"gorm.io/gorm"
)

// TraceabilityEventRepository persists the four append-only event kinds.
// Rows are never updated after insert except for the ledger tx ref, which
// is attached once by the background recorder.
type TraceabilityEventRepository struct {
	db *gorm.DB
}

func NewTraceabilityEventRepository(db *gorm.DB) *TraceabilityEventRepository {
	return &TraceabilityEventRepository{db: db}
}

func (r *TraceabilityEventRepository) AppendCollection(ctx context.Context, e domain.CollectionEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := CollectionEventModel{
		ID:          newID(e.ID),
		WorkflowID:  e.WorkflowID,
		UnitID:      e.UnitID,
		FarmerID:    e.FarmerID,
		QuantityKG:  e.QuantityKG,
		CollectedAt: e.CollectedAt.UTC(),
		LedgerTxRef: e.LedgerTxRef,
		CreatedAt:   createdAt(e.CreatedAt),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TraceabilityEventRepository) AppendConsolidation(ctx context.Context, e domain.ConsolidationEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ConsolidationEventModel{
		ID:             newID(e.ID),
		WorkflowID:     e.WorkflowID,
		FacilityID:     e.FacilityID,
		QuantityKG:     e.QuantityKG,
		ConsolidatedAt: e.ConsolidatedAt.UTC(),
		LedgerTxRef:    e.LedgerTxRef,
		CreatedAt:      createdAt(e.CreatedAt),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TraceabilityEventRepository) AppendProcessing(ctx context.Context, e domain.ProcessingEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ProcessingEventModel{
		ID:          newID(e.ID),
		WorkflowID:  e.WorkflowID,
		FacilityID:  e.FacilityID,
		InputKG:     e.InputKG,
		OutputKG:    e.OutputKG,
		ProcessedAt: e.ProcessedAt.UTC(),
		LedgerTxRef: e.LedgerTxRef,
		CreatedAt:   createdAt(e.CreatedAt),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TraceabilityEventRepository) AppendShipment(ctx context.Context, e domain.ShipmentEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ShipmentEventModel{
		ID:          newID(e.ID),
		WorkflowID:  e.WorkflowID,
		Carrier:     e.Carrier,
		Destination: e.Destination,
		QuantityKG:  e.QuantityKG,
		ShippedAt:   e.ShippedAt.UTC(),
		LedgerTxRef: e.LedgerTxRef,
		CreatedAt:   createdAt(e.CreatedAt),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TraceabilityEventRepository) ListCollections(ctx context.Context, workflowID string) ([]domain.CollectionEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CollectionEventModel
	if err := r.byWorkflow(ctx, workflowID, "collected_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CollectionEvent, 0, len(models))
	for _, m := range models {
		out = append(out, domain.CollectionEvent{
			ID:          m.ID,
			WorkflowID:  m.WorkflowID,
			UnitID:      m.UnitID,
			FarmerID:    m.FarmerID,
			QuantityKG:  m.QuantityKG,
			CollectedAt: m.CollectedAt.UTC(),
			LedgerTxRef: m.LedgerTxRef,
			CreatedAt:   m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *TraceabilityEventRepository) ListConsolidations(ctx context.Context, workflowID string) ([]domain.ConsolidationEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ConsolidationEventModel
	if err := r.byWorkflow(ctx, workflowID, "consolidated_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ConsolidationEvent, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ConsolidationEvent{
			ID:             m.ID,
			WorkflowID:     m.WorkflowID,
			FacilityID:     m.FacilityID,
			QuantityKG:     m.QuantityKG,
			ConsolidatedAt: m.ConsolidatedAt.UTC(),
			LedgerTxRef:    m.LedgerTxRef,
			CreatedAt:      m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *TraceabilityEventRepository) ListProcessings(ctx context.Context, workflowID string) ([]domain.ProcessingEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProcessingEventModel
	if err := r.byWorkflow(ctx, workflowID, "processed_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ProcessingEvent, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ProcessingEvent{
			ID:          m.ID,
			WorkflowID:  m.WorkflowID,
			FacilityID:  m.FacilityID,
			InputKG:     m.InputKG,
			OutputKG:    m.OutputKG,
			ProcessedAt: m.ProcessedAt.UTC(),
			LedgerTxRef: m.LedgerTxRef,
			CreatedAt:   m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *TraceabilityEventRepository) ListShipments(ctx context.Context, workflowID string) ([]domain.ShipmentEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ShipmentEventModel
	if err := r.byWorkflow(ctx, workflowID, "shipped_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ShipmentEvent, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ShipmentEvent{
			ID:          m.ID,
			WorkflowID:  m.WorkflowID,
			Carrier:     m.Carrier,
			Destination: m.Destination,
			QuantityKG:  m.QuantityKG,
			ShippedAt:   m.ShippedAt.UTC(),
			LedgerTxRef: m.LedgerTxRef,
			CreatedAt:   m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *TraceabilityEventRepository) SumQuantity(ctx context.Context, workflowID string, kind domain.EventKind) (float64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var table, column string
	switch kind {
	case domain.EventCollection:
		table, column = "collection_events", "quantity_kg"
	case domain.EventConsolidation:
		table, column = "consolidation_events", "quantity_kg"
	case domain.EventProcessing:
		table, column = "processing_events", "output_kg"
	case domain.EventShipment:
		table, column = "shipment_events", "quantity_kg"
	default:
		return 0, fmt.Errorf("unknown event kind %q", kind)
	}
	var total float64
	err := r.db.WithContext(ctx).
		Table(table).
		Where("workflow_id = ?", workflowID).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error
	return total, err
}

func (r *TraceabilityEventRepository) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CollectionEventModel{}).
		Where("unit_id = ?", unitID).
		Count(&count).Error
	return count, err
}

// AttachLedgerRef is idempotent: re-running a ledger task writes the same
// ref, and an unknown event id is a no-op rather than an error.
func (r *TraceabilityEventRepository) AttachLedgerRef(ctx context.Context, kind domain.EventKind, eventID, txRef string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	var model any
	switch kind {
	case domain.EventCollection:
		model = &CollectionEventModel{}
	case domain.EventConsolidation:
		model = &ConsolidationEventModel{}
	case domain.EventProcessing:
		model = &ProcessingEventModel{}
	case domain.EventShipment:
		model = &ShipmentEventModel{}
	default:
		return fmt.Errorf("unknown event kind %q", kind)
	}
	return r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", eventID).
		Update("ledger_tx_ref", txRef).Error
}

func (r *TraceabilityEventRepository) byWorkflow(ctx context.Context, workflowID, orderColumn string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order(orderColumn + " ASC")
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
