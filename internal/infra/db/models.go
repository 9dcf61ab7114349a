package db

import "time"

type WorkflowModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	ProduceType     string  `gorm:"not null"`
	TotalQuantityKG float64 `gorm:"not null"`
	OriginCountry   string
	ExporterID      string `gorm:"index;not null"`
	ImporterID      string
	ImporterAccount string
	SkipProcessing  bool `gorm:"not null;default:false"`

	CurrentStage   string    `gorm:"index;not null"`
	StageEnteredAt time.Time `gorm:"not null"`
	Status         string    `gorm:"index;not null"`

	RiskScore          *float64
	RiskClassification *string
	RiskAssessedAt     *time.Time

	CertificateStatus   string `gorm:"index;not null"`
	CertificateTxID     string
	CertificateSerial   int64
	CertificateAssetID  string
	IssuerAccount       string
	CertificateIssuedAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (WorkflowModel) TableName() string { return "workflows" }

type ProductionUnitModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	WorkflowID  string `gorm:"type:uuid;index;not null"`
	FarmerID    string `gorm:"index;not null"`
	Name        string
	Region      string
	CountryCode string

	Latitude        *float64
	Longitude       *float64
	GeometryGeoJSON []byte `gorm:"type:jsonb"`

	GeolocationVerified  bool `gorm:"not null;default:false"`
	DeforestationChecked bool `gorm:"not null;default:false"`
	DeforestationClear   bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
}

func (ProductionUnitModel) TableName() string { return "production_units" }

type CollectionEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	WorkflowID  string    `gorm:"type:uuid;index;not null"`
	UnitID      string    `gorm:"type:uuid;index;not null"`
	FarmerID    string    `gorm:"index"`
	QuantityKG  float64   `gorm:"not null"`
	CollectedAt time.Time `gorm:"not null"`
	LedgerTxRef string
	CreatedAt   time.Time `gorm:"not null"`
}

func (CollectionEventModel) TableName() string { return "collection_events" }

type ConsolidationEventModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	WorkflowID     string    `gorm:"type:uuid;index;not null"`
	FacilityID     string    `gorm:"index"`
	QuantityKG     float64   `gorm:"not null"`
	ConsolidatedAt time.Time `gorm:"not null"`
	LedgerTxRef    string
	CreatedAt      time.Time `gorm:"not null"`
}

func (ConsolidationEventModel) TableName() string { return "consolidation_events" }

type ProcessingEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	WorkflowID  string    `gorm:"type:uuid;index;not null"`
	FacilityID  string    `gorm:"index"`
	InputKG     float64   `gorm:"not null"`
	OutputKG    float64   `gorm:"not null"`
	ProcessedAt time.Time `gorm:"not null"`
	LedgerTxRef string
	CreatedAt   time.Time `gorm:"not null"`
}

func (ProcessingEventModel) TableName() string { return "processing_events" }

type ShipmentEventModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	WorkflowID  string `gorm:"type:uuid;index;not null"`
	Carrier     string
	Destination string
	QuantityKG  float64   `gorm:"not null"`
	ShippedAt   time.Time `gorm:"not null"`
	LedgerTxRef string
	CreatedAt   time.Time `gorm:"not null"`
}

func (ShipmentEventModel) TableName() string { return "shipment_events" }

type DeforestationAlertModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	WorkflowID string    `gorm:"type:uuid;index;not null"`
	UnitID     string    `gorm:"type:uuid;index"`
	Severity   string    `gorm:"not null"`
	AlertDate  time.Time `gorm:"not null"`
	Source     string
	Reviewed   bool `gorm:"index;not null;default:false"`
	ReviewedAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (DeforestationAlertModel) TableName() string { return "deforestation_alerts" }

type StageTransitionModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	WorkflowID string `gorm:"type:uuid;index;not null"`
	FromStage  string `gorm:"not null"`
	ToStage    string `gorm:"not null"`
	Direction  string `gorm:"not null"`
	Reason     string
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (StageTransitionModel) TableName() string { return "stage_transitions" }
