package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"agritrace/internal/domain"

	"github.com/google/uuid"
)

// TraceabilityRecorder appends domain events to the traceability graph.
// Quantity conservation is enforced before persistence; ledger recording is
// fire-and-forget afterwards, with the returned tx ref attached best-effort.
type TraceabilityRecorder struct {
	Workflows WorkflowRepository
	Units     ProductionUnitRepository
	Events    TraceabilityEventRepository
	Loader    *SnapshotLoader
	Ledger    domain.Ledger
	Tasks     TaskRunner
	Cache     StageStatusCache

	Now func() time.Time
}

func (r *TraceabilityRecorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

type RegisterUnitInput struct {
	WorkflowID      string
	FarmerID        string
	Name            string
	Region          string
	CountryCode     string
	Latitude        *float64
	Longitude       *float64
	GeometryGeoJSON string
}

func (r *TraceabilityRecorder) RegisterProductionUnit(ctx context.Context, in RegisterUnitInput) (*domain.ProductionUnitLink, error) {
	if _, err := r.Workflows.GetByID(ctx, in.WorkflowID); err != nil {
		return nil, err
	}
	if in.FarmerID == "" {
		return nil, fmt.Errorf("%w: farmer id is required", domain.ErrInvalidInput)
	}
	unit := domain.ProductionUnitLink{
		ID:              uuid.NewString(),
		WorkflowID:      in.WorkflowID,
		FarmerID:        in.FarmerID,
		Name:            in.Name,
		Region:          in.Region,
		CountryCode:     in.CountryCode,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		GeometryGeoJSON: in.GeometryGeoJSON,
		CreatedAt:       r.now(),
	}
	if err := r.Units.Create(ctx, unit); err != nil {
		return nil, err
	}
	r.invalidate(ctx, in.WorkflowID)
	return &unit, nil
}

func (r *TraceabilityRecorder) VerifyGeolocation(ctx context.Context, unitID string) (*domain.ProductionUnitLink, error) {
	unit, err := r.Units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !unit.HasLocation() {
		return nil, fmt.Errorf("%w: unit has no coordinates or geometry to verify", domain.ErrInvalidInput)
	}
	unit.GeolocationVerified = true
	if err := r.Units.Save(ctx, unit); err != nil {
		return nil, err
	}
	r.invalidate(ctx, unit.WorkflowID)
	return unit, nil
}

// DeleteProductionUnit refuses to orphan traceability: a unit referenced by
// collection events cannot be unlinked.
func (r *TraceabilityRecorder) DeleteProductionUnit(ctx context.Context, unitID string) error {
	unit, err := r.Units.GetByID(ctx, unitID)
	if err != nil {
		return err
	}
	referenced, err := r.Events.CountByUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return fmt.Errorf("%w: %d collection events reference unit %s", domain.ErrUnitReferenced, referenced, unitID)
	}
	if err := r.Units.Delete(ctx, unitID); err != nil {
		return err
	}
	r.invalidate(ctx, unit.WorkflowID)
	return nil
}

type CollectionInput struct {
	WorkflowID  string
	UnitID      string
	QuantityKG  float64
	CollectedAt time.Time
}

func (r *TraceabilityRecorder) RecordCollection(ctx context.Context, in CollectionInput) (*domain.CollectionEvent, error) {
	if in.QuantityKG <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	unit, err := r.Units.GetByID(ctx, in.UnitID)
	if err != nil {
		return nil, err
	}
	if unit.WorkflowID != in.WorkflowID {
		return nil, fmt.Errorf("%w: unit %s is not linked to workflow %s", domain.ErrInvalidInput, in.UnitID, in.WorkflowID)
	}
	event := domain.CollectionEvent{
		ID:          uuid.NewString(),
		WorkflowID:  in.WorkflowID,
		UnitID:      in.UnitID,
		FarmerID:    unit.FarmerID,
		QuantityKG:  in.QuantityKG,
		CollectedAt: r.eventTime(in.CollectedAt),
		CreatedAt:   r.now(),
	}
	if err := r.Events.AppendCollection(ctx, event); err != nil {
		return nil, err
	}
	r.recordOnLedger(in.WorkflowID, domain.EventCollection, event.ID, event.QuantityKG, event.CollectedAt)
	r.invalidate(ctx, in.WorkflowID)
	return &event, nil
}

type ConsolidationInput struct {
	WorkflowID     string
	FacilityID     string
	QuantityKG     float64
	ConsolidatedAt time.Time
}

func (r *TraceabilityRecorder) RecordConsolidation(ctx context.Context, in ConsolidationInput) (*domain.ConsolidationEvent, error) {
	if in.QuantityKG <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if _, err := r.Workflows.GetByID(ctx, in.WorkflowID); err != nil {
		return nil, err
	}
	// Consolidation only compares two totals, so the aggregate query
	// suffices; no need to load the full event lists.
	collected, err := r.Events.SumQuantity(ctx, in.WorkflowID, domain.EventCollection)
	if err != nil {
		return nil, err
	}
	consolidated, err := r.Events.SumQuantity(ctx, in.WorkflowID, domain.EventConsolidation)
	if err != nil {
		return nil, err
	}
	if consolidated+in.QuantityKG > collected {
		return nil, fmt.Errorf("%w: consolidating %.1f kg would exceed the %.1f kg collected", domain.ErrInsufficientQuantity, consolidated+in.QuantityKG, collected)
	}
	event := domain.ConsolidationEvent{
		ID:             uuid.NewString(),
		WorkflowID:     in.WorkflowID,
		FacilityID:     in.FacilityID,
		QuantityKG:     in.QuantityKG,
		ConsolidatedAt: r.eventTime(in.ConsolidatedAt),
		CreatedAt:      r.now(),
	}
	if err := r.Events.AppendConsolidation(ctx, event); err != nil {
		return nil, err
	}
	r.recordOnLedger(in.WorkflowID, domain.EventConsolidation, event.ID, event.QuantityKG, event.ConsolidatedAt)
	r.invalidate(ctx, in.WorkflowID)
	return &event, nil
}

type ProcessingInput struct {
	WorkflowID  string
	FacilityID  string
	InputKG     float64
	OutputKG    float64
	ProcessedAt time.Time
}

func (r *TraceabilityRecorder) RecordProcessing(ctx context.Context, in ProcessingInput) (*domain.ProcessingEvent, error) {
	if in.InputKG <= 0 || in.OutputKG <= 0 {
		return nil, fmt.Errorf("%w: quantities must be positive", domain.ErrInvalidInput)
	}
	if in.OutputKG > in.InputKG {
		return nil, fmt.Errorf("%w: processing output %.1f kg exceeds input %.1f kg", domain.ErrInvalidInput, in.OutputKG, in.InputKG)
	}
	snap, err := r.Loader.Load(ctx, in.WorkflowID)
	if err != nil {
		return nil, err
	}
	upstream := snap.UpstreamOfProcessing()
	if snap.ProcessedInputKG()+in.InputKG > upstream {
		return nil, fmt.Errorf("%w: processing %.1f kg would exceed the %.1f kg available upstream", domain.ErrInsufficientQuantity, snap.ProcessedInputKG()+in.InputKG, upstream)
	}
	event := domain.ProcessingEvent{
		ID:          uuid.NewString(),
		WorkflowID:  in.WorkflowID,
		FacilityID:  in.FacilityID,
		InputKG:     in.InputKG,
		OutputKG:    in.OutputKG,
		ProcessedAt: r.eventTime(in.ProcessedAt),
		CreatedAt:   r.now(),
	}
	if err := r.Events.AppendProcessing(ctx, event); err != nil {
		return nil, err
	}
	r.recordOnLedger(in.WorkflowID, domain.EventProcessing, event.ID, event.OutputKG, event.ProcessedAt)
	r.invalidate(ctx, in.WorkflowID)
	return &event, nil
}

type ShipmentInput struct {
	WorkflowID  string
	Carrier     string
	Destination string
	QuantityKG  float64
	ShippedAt   time.Time
}

func (r *TraceabilityRecorder) RecordShipment(ctx context.Context, in ShipmentInput) (*domain.ShipmentEvent, error) {
	if in.QuantityKG <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	snap, err := r.Loader.Load(ctx, in.WorkflowID)
	if err != nil {
		return nil, err
	}
	upstream := snap.UpstreamOfShipment()
	if snap.ShippedKG()+in.QuantityKG > upstream {
		return nil, fmt.Errorf("%w: shipping %.1f kg would exceed the %.1f kg available upstream", domain.ErrInsufficientQuantity, snap.ShippedKG()+in.QuantityKG, upstream)
	}
	event := domain.ShipmentEvent{
		ID:          uuid.NewString(),
		WorkflowID:  in.WorkflowID,
		Carrier:     in.Carrier,
		Destination: in.Destination,
		QuantityKG:  in.QuantityKG,
		ShippedAt:   r.eventTime(in.ShippedAt),
		CreatedAt:   r.now(),
	}
	if err := r.Events.AppendShipment(ctx, event); err != nil {
		return nil, err
	}

	// A shipment on a compliant certificate puts it in transit.
	workflow := snap.Workflow
	if workflow.CertificateStatus.CanAdvanceTo(domain.CertificateInTransit) && workflow.CertificateStatus == domain.CertificateCompliant {
		workflow.CertificateStatus = domain.CertificateInTransit
		if err := r.Workflows.Save(ctx, workflow); err != nil {
			return nil, err
		}
	}

	r.recordOnLedger(in.WorkflowID, domain.EventShipment, event.ID, event.QuantityKG, event.ShippedAt)
	r.invalidate(ctx, in.WorkflowID)
	return &event, nil
}

// recordOnLedger submits the ledger write off the request path. The event
// stays authoritative without a tx ref; the only success side effect is
// attaching one.
func (r *TraceabilityRecorder) recordOnLedger(workflowID string, kind domain.EventKind, eventID string, quantity float64, occurredAt time.Time) {
	if r.Ledger == nil || r.Tasks == nil {
		return
	}
	payload := domain.LedgerEvent{
		WorkflowID: workflowID,
		Kind:       kind,
		EventID:    eventID,
		QuantityKG: quantity,
		OccurredAt: occurredAt,
	}
	submitted := r.Tasks.Submit("ledger-record:"+eventID, func(ctx context.Context) {
		txID, err := r.Ledger.RecordEvent(ctx, payload)
		if err != nil {
			log.Printf("ledger record for %s event %s failed: %v", kind, eventID, err)
			return
		}
		if err := r.Events.AttachLedgerRef(ctx, kind, eventID, txID); err != nil {
			log.Printf("attaching ledger ref %s to %s event %s failed: %v", txID, kind, eventID, err)
		}
	})
	if !submitted {
		log.Printf("ledger record for %s event %s skipped: runner saturated", kind, eventID)
	}
}

func (r *TraceabilityRecorder) eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return r.now()
	}
	return t.UTC()
}

func (r *TraceabilityRecorder) invalidate(ctx context.Context, workflowID string) {
	if r.Cache != nil {
		_ = r.Cache.Invalidate(ctx, workflowID)
	}
}
