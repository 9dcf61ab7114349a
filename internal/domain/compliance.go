package domain

import "time"

// ValidationItem is one per-stage requirement check. Failed items become
// advisory blocker strings; the validator never raises them as errors.
type ValidationItem struct {
	Requirement string `json:"requirement"`
	Passed      bool   `json:"passed"`
	Detail      string `json:"detail,omitempty"`
}

// StageCompletion distinguishes an optional stage legitimately bypassed
// from a required stage with nothing recorded yet.
type StageCompletion string

const (
	CompletionRequiredPending StageCompletion = "REQUIRED_PENDING"
	CompletionSkipped         StageCompletion = "SKIPPED"
	CompletionSatisfied       StageCompletion = "SATISFIED"
)

type StageStatus struct {
	WorkflowID string           `json:"workflow_id"`
	Stage      Stage            `json:"stage"`
	Order      int              `json:"order"`
	Label      string           `json:"label"`
	Progress   float64          `json:"progress_percent"`
	Completion StageCompletion  `json:"completion"`
	Items      []ValidationItem `json:"items"`
	Blockers   []string         `json:"blockers,omitempty"`
	CanAdvance bool             `json:"can_advance"`
}

type AdvanceResult struct {
	WorkflowID string   `json:"workflow_id"`
	FromStage  Stage    `json:"from_stage"`
	ToStage    Stage    `json:"to_stage"`
	Moved      bool     `json:"moved"`
	Blockers   []string `json:"blockers,omitempty"`
}

type RiskClassification string

const (
	RiskNegligible RiskClassification = "NEGLIGIBLE"
	RiskLow        RiskClassification = "LOW"
	RiskStandard   RiskClassification = "STANDARD"
	RiskHigh       RiskClassification = "HIGH"
)

// RiskAssessment is the stage-display risk result: three weighted factors,
// four bands. The certificate gate runs a different algorithm; see
// ComplianceResult.RiskLevel.
type RiskAssessment struct {
	WorkflowID         string             `json:"workflow_id"`
	CountryScore       float64            `json:"country_score"`
	DeforestationScore float64            `json:"deforestation_score"`
	ComplexityScore    float64            `json:"complexity_score"`
	Score              float64            `json:"score"`
	Classification     RiskClassification `json:"classification"`
	AssessedAt         time.Time          `json:"assessed_at"`
}

type CountryRiskLevel string

const (
	CountryRiskLow      CountryRiskLevel = "LOW"
	CountryRiskStandard CountryRiskLevel = "STANDARD"
	CountryRiskHigh     CountryRiskLevel = "HIGH"
)

// Gate risk levels for the four-factor certificate-gating algorithm.
const (
	GateRiskLow    = "LOW"
	GateRiskMedium = "MEDIUM"
	GateRiskHigh   = "HIGH"
)

// ComplianceResult is the certificate gate's fail-closed verdict.
type ComplianceResult struct {
	WorkflowID           string   `json:"workflow_id"`
	IsCompliant          bool     `json:"is_compliant"`
	FailureReasons       []string `json:"failure_reasons,omitempty"`
	TotalFarmers         int      `json:"total_farmers"`
	TotalProductionUnits int      `json:"total_production_units"`
	GPSCoverage          float64  `json:"gps_coverage"`
	DeforestationStatus  string   `json:"deforestation_status"`
	OriginCountry        string   `json:"origin_country"`
	RiskLevel            string   `json:"risk_level"`
	RiskScore            float64  `json:"risk_score"`
	TraceabilityHash     string   `json:"traceability_hash"`
}
