package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"agritrace/internal/domain"
)

const RiskEngineVersion = "risk.v1"

// Stage-display weights, three factors and four bands.
const (
	displayWeightCountry       = 0.35
	displayWeightDeforestation = 0.40
	displayWeightComplexity    = 0.25
)

// Certificate-gate weights, four factors and three bands. The two
// algorithms disagree on weights, factor count and band count on purpose:
// the display score drives the stage view, the gate score drives issuance,
// and they must stay independent.
const (
	gateWeightDeforestation = 0.40
	gateWeightCountry       = 0.25
	gateWeightComplexity    = 0.20
	gateWeightTraceability  = 0.15
)

const unknownRiskScore = 50

type RiskEngine struct {
	Workflows WorkflowRepository
	Loader    *SnapshotLoader
	Countries CountryRiskTable

	Now func() time.Time
}

func (e *RiskEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Assess computes the stage-display risk for a workflow and persists the
// score, classification and timestamp on it. This is the engine's one
// mutation; everything else is a pure computation over the snapshot.
func (e *RiskEngine) Assess(ctx context.Context, workflowID string) (*domain.RiskAssessment, error) {
	snap, err := e.Loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	assessment := e.StageDisplayRisk(snap)

	workflow := snap.Workflow
	score := assessment.Score
	classification := assessment.Classification
	assessedAt := assessment.AssessedAt
	workflow.RiskScore = &score
	workflow.RiskClassification = &classification
	workflow.RiskAssessedAt = &assessedAt
	if err := e.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// StageDisplayRisk is the three-factor, four-band algorithm backing the
// stage-progress view.
func (e *RiskEngine) StageDisplayRisk(snap *TraceabilitySnapshot) domain.RiskAssessment {
	country := e.countryScore(snap)
	deforestation := deforestationScore(snap)
	complexity := complexityScore(len(snap.Collections))

	score := displayWeightCountry*country +
		displayWeightDeforestation*deforestation +
		displayWeightComplexity*complexity
	score = math.Round(score*100) / 100

	return domain.RiskAssessment{
		WorkflowID:         snap.Workflow.ID,
		CountryScore:       country,
		DeforestationScore: deforestation,
		ComplexityScore:    complexity,
		Score:              score,
		Classification:     classifyDisplayScore(score),
		AssessedAt:         e.now(),
	}
}

func classifyDisplayScore(score float64) domain.RiskClassification {
	switch {
	case score < 20:
		return domain.RiskNegligible
	case score < 40:
		return domain.RiskLow
	case score < 60:
		return domain.RiskStandard
	default:
		return domain.RiskHigh
	}
}

// CertificateGateRisk is the four-factor, three-band algorithm used only
// for certificate issuance gating. Scores normalize to 0..1.
func (e *RiskEngine) CertificateGateRisk(snap *TraceabilitySnapshot) (float64, string) {
	country := e.countryScore(snap) / 100
	deforestation := deforestationScore(snap) / 100
	complexity := complexityScore(len(snap.Collections)) / 100
	incomplete := 0.0
	if !traceabilityComplete(snap) {
		incomplete = 1.0
	}

	score := gateWeightDeforestation*deforestation +
		gateWeightCountry*country +
		gateWeightComplexity*complexity +
		gateWeightTraceability*incomplete
	score = math.Round(score*1000) / 1000

	switch {
	case score < 0.4:
		return score, domain.GateRiskLow
	case score < 0.7:
		return score, domain.GateRiskMedium
	default:
		return score, domain.GateRiskHigh
	}
}

func traceabilityComplete(snap *TraceabilitySnapshot) bool {
	if len(snap.Units) == 0 || len(snap.Collections) == 0 {
		return false
	}
	for i := range snap.Units {
		if !snap.Units[i].GeolocationVerified {
			return false
		}
	}
	return snap.QuantityConserved()
}

func (e *RiskEngine) countryScore(snap *TraceabilitySnapshot) float64 {
	countries := ResolveCountries(snap)
	if len(countries) == 0 {
		return unknownRiskScore
	}
	var total float64
	for _, code := range countries {
		total += e.countryLevelScore(code)
	}
	return total / float64(len(countries))
}

func (e *RiskEngine) countryLevelScore(code string) float64 {
	level, ok := e.Countries.Lookup(code)
	if !ok {
		return unknownRiskScore
	}
	switch level {
	case domain.CountryRiskLow:
		return 15
	case domain.CountryRiskHigh:
		return 85
	default:
		return 50
	}
}

func deforestationScore(snap *TraceabilitySnapshot) float64 {
	if len(snap.Units) == 0 {
		return unknownRiskScore
	}
	if len(snap.UnreviewedAlerts()) > 0 {
		return 80
	}
	if len(snap.Alerts) > 0 {
		return 30
	}
	return 10
}

// complexityScore is a step function of collection event count; more
// collection points mean a harder-to-audit supply chain.
func complexityScore(collections int) float64 {
	switch {
	case collections == 0:
		return unknownRiskScore
	case collections <= 3:
		return 15
	case collections <= 10:
		return 35
	case collections <= 25:
		return 55
	default:
		return 75
	}
}

// ResolveCountries returns the distinct countries the production units
// resolve to, in order of first appearance. Per unit: the stored country
// code wins, then a substring match of the free-text region, then the
// workflow's declared origin as a fallback.
func ResolveCountries(snap *TraceabilitySnapshot) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			return
		}
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	for i := range snap.Units {
		u := &snap.Units[i]
		if u.CountryCode != "" {
			add(u.CountryCode)
			continue
		}
		if code := countryFromRegion(u.Region); code != "" {
			add(code)
			continue
		}
		add(snap.Workflow.OriginCountry)
	}
	if len(out) == 0 {
		add(snap.Workflow.OriginCountry)
	}
	return out
}

// ResolveOriginCountry collapses the resolved countries to a single origin
// for the compliance result; ambiguous or unresolved origins come back
// empty and the gate fails closed on them.
func ResolveOriginCountry(snap *TraceabilitySnapshot) string {
	countries := ResolveCountries(snap)
	if len(countries) == 1 {
		return countries[0]
	}
	return ""
}

var regionCountryAliases = []struct {
	needle string
	code   string
}{
	{"brazil", "BR"}, {"brasil", "BR"},
	{"ghana", "GH"},
	{"ivory coast", "CI"}, {"cote d'ivoire", "CI"}, {"côte d'ivoire", "CI"},
	{"indonesia", "ID"}, {"sumatra", "ID"}, {"sulawesi", "ID"},
	{"vietnam", "VN"}, {"viet nam", "VN"},
	{"colombia", "CO"},
	{"peru", "PE"},
	{"ecuador", "EC"},
	{"nigeria", "NG"},
	{"cameroon", "CM"},
	{"ethiopia", "ET"},
	{"uganda", "UG"},
	{"honduras", "HN"},
	{"malaysia", "MY"},
	{"india", "IN"},
}

func countryFromRegion(region string) string {
	normalized := strings.ToLower(region)
	if normalized == "" {
		return ""
	}
	for _, alias := range regionCountryAliases {
		if strings.Contains(normalized, alias.needle) {
			return alias.code
		}
	}
	return ""
}
