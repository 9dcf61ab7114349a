package usecase

import (
	"context"

	"agritrace/internal/domain"
)

// TraceabilitySnapshot is a point-in-time read of everything the stage
// machine, validator, risk engine and certificate gate derive from. Loading
// it once per operation keeps the derived views mutually consistent.
type TraceabilitySnapshot struct {
	Workflow       *domain.Workflow
	Units          []domain.ProductionUnitLink
	Collections    []domain.CollectionEvent
	Consolidations []domain.ConsolidationEvent
	Processings    []domain.ProcessingEvent
	Shipments      []domain.ShipmentEvent
	Alerts         []domain.DeforestationAlert
}

type SnapshotLoader struct {
	Workflows WorkflowRepository
	Units     ProductionUnitRepository
	Events    TraceabilityEventRepository
	Alerts    AlertRepository
}

func (l *SnapshotLoader) Load(ctx context.Context, workflowID string) (*TraceabilitySnapshot, error) {
	workflow, err := l.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	units, err := l.Units.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	collections, err := l.Events.ListCollections(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	consolidations, err := l.Events.ListConsolidations(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	processings, err := l.Events.ListProcessings(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	shipments, err := l.Events.ListShipments(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	alerts, err := l.Alerts.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return &TraceabilitySnapshot{
		Workflow:       workflow,
		Units:          units,
		Collections:    collections,
		Consolidations: consolidations,
		Processings:    processings,
		Shipments:      shipments,
		Alerts:         alerts,
	}, nil
}

func (s *TraceabilitySnapshot) CollectedKG() float64 {
	var total float64
	for _, e := range s.Collections {
		total += e.QuantityKG
	}
	return total
}

func (s *TraceabilitySnapshot) ConsolidatedKG() float64 {
	var total float64
	for _, e := range s.Consolidations {
		total += e.QuantityKG
	}
	return total
}

func (s *TraceabilitySnapshot) ProcessedOutputKG() float64 {
	var total float64
	for _, e := range s.Processings {
		total += e.OutputKG
	}
	return total
}

func (s *TraceabilitySnapshot) ProcessedInputKG() float64 {
	var total float64
	for _, e := range s.Processings {
		total += e.InputKG
	}
	return total
}

func (s *TraceabilitySnapshot) ShippedKG() float64 {
	var total float64
	for _, e := range s.Shipments {
		total += e.QuantityKG
	}
	return total
}

// UpstreamOfProcessing is the quantity pool processing draws from:
// consolidated when consolidation happened, else collected.
func (s *TraceabilitySnapshot) UpstreamOfProcessing() float64 {
	if len(s.Consolidations) > 0 {
		return s.ConsolidatedKG()
	}
	return s.CollectedKG()
}

// UpstreamOfShipment is the quantity pool shipments draw from: processed
// output when processing happened, else the processing upstream.
func (s *TraceabilitySnapshot) UpstreamOfShipment() float64 {
	if len(s.Processings) > 0 {
		return s.ProcessedOutputKG()
	}
	return s.UpstreamOfProcessing()
}

func (s *TraceabilitySnapshot) UnitsWithLocation() int {
	n := 0
	for i := range s.Units {
		if s.Units[i].HasLocation() {
			n++
		}
	}
	return n
}

func (s *TraceabilitySnapshot) VerifiedUnits() int {
	n := 0
	for i := range s.Units {
		if s.Units[i].GeolocationVerified {
			n++
		}
	}
	return n
}

func (s *TraceabilitySnapshot) CheckedUnits() int {
	n := 0
	for i := range s.Units {
		if s.Units[i].DeforestationChecked {
			n++
		}
	}
	return n
}

func (s *TraceabilitySnapshot) UnreviewedAlerts() []domain.DeforestationAlert {
	var out []domain.DeforestationAlert
	for _, a := range s.Alerts {
		if a.Blocking() {
			out = append(out, a)
		}
	}
	return out
}

func (s *TraceabilitySnapshot) unitByID(id string) *domain.ProductionUnitLink {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i]
		}
	}
	return nil
}

// QuantityConserved reports whether every downstream aggregate stays within
// its upstream pool. Optional steps with no events are conserved trivially.
func (s *TraceabilitySnapshot) QuantityConserved() bool {
	if len(s.Consolidations) > 0 && s.ConsolidatedKG() > s.CollectedKG() {
		return false
	}
	if len(s.Processings) > 0 && s.ProcessedInputKG() > s.UpstreamOfProcessing() {
		return false
	}
	if len(s.Shipments) > 0 && s.ShippedKG() > s.UpstreamOfShipment() {
		return false
	}
	return true
}
