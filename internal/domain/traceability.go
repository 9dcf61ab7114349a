package domain

import "time"

type UnitStatus string

const (
	UnitPending            UnitStatus = "PENDING"
	UnitVerified           UnitStatus = "VERIFIED"
	UnitDeforestationClear UnitStatus = "DEFORESTATION_CLEAR"
)

// ProductionUnitLink associates a geolocated parcel to a workflow.
type ProductionUnitLink struct {
	ID          string
	WorkflowID  string
	FarmerID    string
	Name        string
	Region      string
	CountryCode string

	Latitude        *float64
	Longitude       *float64
	GeometryGeoJSON string

	GeolocationVerified  bool
	DeforestationChecked bool
	DeforestationClear   bool

	CreatedAt time.Time
}

func (u *ProductionUnitLink) HasLocation() bool {
	if u.GeometryGeoJSON != "" {
		return true
	}
	return u.Latitude != nil && u.Longitude != nil
}

// Status derives the link status from the verification signals.
func (u *ProductionUnitLink) Status() UnitStatus {
	if u.GeolocationVerified && u.DeforestationChecked && u.DeforestationClear {
		return UnitDeforestationClear
	}
	if u.GeolocationVerified {
		return UnitVerified
	}
	return UnitPending
}

type EventKind string

const (
	EventCollection    EventKind = "collection"
	EventConsolidation EventKind = "consolidation"
	EventProcessing    EventKind = "processing"
	EventShipment      EventKind = "shipment"
)

// Traceability events are append-only; corrections are new events.

type CollectionEvent struct {
	ID          string
	WorkflowID  string
	UnitID      string
	FarmerID    string
	QuantityKG  float64
	CollectedAt time.Time
	LedgerTxRef string
	CreatedAt   time.Time
}

type ConsolidationEvent struct {
	ID             string
	WorkflowID     string
	FacilityID     string
	QuantityKG     float64
	ConsolidatedAt time.Time
	LedgerTxRef    string
	CreatedAt      time.Time
}

type ProcessingEvent struct {
	ID          string
	WorkflowID  string
	FacilityID  string
	InputKG     float64
	OutputKG    float64
	ProcessedAt time.Time
	LedgerTxRef string
	CreatedAt   time.Time
}

type ShipmentEvent struct {
	ID          string
	WorkflowID  string
	Carrier     string
	Destination string
	QuantityKG  float64
	ShippedAt   time.Time
	LedgerTxRef string
	CreatedAt   time.Time
}

type AlertSeverity string

const (
	AlertLow      AlertSeverity = "LOW"
	AlertMedium   AlertSeverity = "MEDIUM"
	AlertHigh     AlertSeverity = "HIGH"
	AlertCritical AlertSeverity = "CRITICAL"
)

// DeforestationAlert is a read-only input to the validator and risk engine;
// review flips Reviewed, the alert itself is never deleted.
type DeforestationAlert struct {
	ID         string
	WorkflowID string
	UnitID     string
	Severity   AlertSeverity
	AlertDate  time.Time
	Source     string
	Reviewed   bool
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

func (a *DeforestationAlert) Blocking() bool {
	return !a.Reviewed
}

type TransitionDirection string

const (
	TransitionAdvance TransitionDirection = "advance"
	TransitionRevert  TransitionDirection = "revert"
)

// StageTransition is the audit record appended on every advance or revert.
type StageTransition struct {
	ID         string
	WorkflowID string
	FromStage  Stage
	ToStage    Stage
	Direction  TransitionDirection
	Reason     string
	CreatedAt  time.Time
}
