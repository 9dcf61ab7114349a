package domain

// ExportPolicyInput is the document handed to the export-policy hook at
// certificate issuance. The hook sees the assembled compliance verdict,
// not raw aggregates.
type ExportPolicyInput struct {
	Workflow   ExportPolicyWorkflow `json:"workflow"`
	Compliance ComplianceResult     `json:"compliance"`
}

type ExportPolicyWorkflow struct {
	ID            string  `json:"id"`
	ProduceType   string  `json:"produce_type"`
	OriginCountry string  `json:"origin_country"`
	QuantityKG    float64 `json:"quantity_kg"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
