package domain

import "time"

type Stage string

const (
	StageProductionRegistration  Stage = "PRODUCTION_REGISTRATION"
	StageGeolocationVerification Stage = "GEOLOCATION_VERIFICATION"
	StageDeforestationCheck      Stage = "DEFORESTATION_CHECK"
	StageCollectionAggregation   Stage = "COLLECTION_AGGREGATION"
	StageProcessing              Stage = "PROCESSING"
	StageRiskAssessment          Stage = "RISK_ASSESSMENT"
	StageDueDiligenceStatement   Stage = "DUE_DILIGENCE_STATEMENT"
	StageExport                  Stage = "EXPORT"
	StageCustomsClearance        Stage = "CUSTOMS_CLEARANCE"
	StageDelivery                Stage = "DELIVERY"
)

// StageDescriptor carries the per-stage display and ordering data. All
// stage behavior is data-driven off this table rather than switched per case.
type StageDescriptor struct {
	Stage          Stage
	Order          int
	Label          string
	Description    string
	RequiredAction string
}

var stageTable = []StageDescriptor{
	{StageProductionRegistration, 1, "Production registration", "Production units linked and geolocated", "Register every supplying parcel with coordinates or geometry"},
	{StageGeolocationVerification, 2, "Geolocation verification", "Parcel coordinates verified against cadastral data", "Verify the geolocation of every linked parcel"},
	{StageDeforestationCheck, 3, "Deforestation check", "Satellite screening against the regulatory cutoff", "Screen every parcel and review open alerts"},
	{StageCollectionAggregation, 4, "Collection aggregation", "Raw material collected from parcels", "Record at least one collection event"},
	{StageProcessing, 5, "Processing", "Optional transformation of the raw commodity", "Record processing events, or skip for raw chains"},
	{StageRiskAssessment, 6, "Risk assessment", "Weighted risk score computed from traceability data", "Automatic on entry"},
	{StageDueDiligenceStatement, 7, "Due diligence statement", "Compliance statement backed by an issued certificate", "Run the certificate issuance gate"},
	{StageExport, 8, "Export", "Shipment departed origin", "Record the shipment and transfer the certificate"},
	{StageCustomsClearance, 9, "Customs clearance", "Certificate verified by customs", "Await customs verification"},
	{StageDelivery, 10, "Delivery", "Consignment delivered to the importer", "Confirm delivery"},
}

var stageIndex = buildStageIndex()

func buildStageIndex() map[Stage]int {
	index := make(map[Stage]int, len(stageTable))
	for i, d := range stageTable {
		index[d.Stage] = i
	}
	return index
}

func Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(stageTable))
	copy(out, stageTable)
	return out
}

func (s Stage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

func (s Stage) Descriptor() StageDescriptor {
	i, ok := stageIndex[s]
	if !ok {
		return StageDescriptor{}
	}
	return stageTable[i]
}

func (s Stage) Order() int {
	return s.Descriptor().Order
}

// Next returns the successor stage; ok is false at the terminal stage.
func (s Stage) Next() (Stage, bool) {
	i, found := stageIndex[s]
	if !found || i+1 >= len(stageTable) {
		return "", false
	}
	return stageTable[i+1].Stage, true
}

// Previous returns the predecessor stage; ok is false at the first stage.
func (s Stage) Previous() (Stage, bool) {
	i, found := stageIndex[s]
	if !found || i == 0 {
		return "", false
	}
	return stageTable[i-1].Stage, true
}

func FirstStage() Stage {
	return stageTable[0].Stage
}

func FinalStage() Stage {
	return stageTable[len(stageTable)-1].Stage
}

type WorkflowStatus string

const (
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
)

// Workflow is the unit of traceability tracked from collection to delivery
// for one produce type under one exporter. Stage fields and certificate
// fields belong to separate lifecycles and are mutated by different
// components; keep the groups apart.
type Workflow struct {
	ID              string
	ProduceType     string
	TotalQuantityKG float64
	OriginCountry   string
	ExporterID      string
	ImporterID      string
	ImporterAccount string
	SkipProcessing  bool

	CurrentStage   Stage
	StageEnteredAt time.Time
	Status         WorkflowStatus

	RiskScore          *float64
	RiskClassification *RiskClassification
	RiskAssessedAt     *time.Time

	CertificateStatus   CertificateStatus
	CertificateTxID     string
	CertificateSerial   int64
	CertificateAssetID  string
	IssuerAccount       string
	CertificateIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Workflow) RiskAssessed() bool {
	return w.RiskScore != nil && w.RiskClassification != nil
}
