package usecase

import (
	"strings"
	"testing"
	"time"

	"agritrace/internal/domain"
)

func TestValidateRegistrationNoUnits(t *testing.T) {
	v := &StageValidator{}
	snap := &TraceabilitySnapshot{Workflow: &domain.Workflow{ID: "wf-1"}}

	items := v.Validate(snap, domain.StageProductionRegistration)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Passed {
		t.Fatalf("expected the unit-linked requirement to fail")
	}
	blockers := BlockersFromItems(items)
	if len(blockers) != 1 {
		t.Fatalf("expected 1 blocker, got %v", blockers)
	}
}

func TestValidateRegistrationNamesUnlocatedUnits(t *testing.T) {
	v := &StageValidator{}
	lat, lon := 6.1, -1.5
	snap := &TraceabilitySnapshot{
		Workflow: &domain.Workflow{ID: "wf-1"},
		Units: []domain.ProductionUnitLink{
			{ID: "u-1", Name: "North parcel", Latitude: &lat, Longitude: &lon},
			{ID: "u-2", Name: "South parcel"},
		},
	}

	blockers := v.Blockers(snap, domain.StageProductionRegistration)
	if len(blockers) != 1 {
		t.Fatalf("expected 1 blocker, got %v", blockers)
	}
	if !strings.Contains(blockers[0], "South parcel") || !strings.Contains(blockers[0], "u-2") {
		t.Fatalf("blocker should name the unlocated unit, got %q", blockers[0])
	}
}

func TestValidateGeolocationAllVerified(t *testing.T) {
	v := &StageValidator{}
	snap := &TraceabilitySnapshot{
		Workflow: &domain.Workflow{ID: "wf-1"},
		Units: []domain.ProductionUnitLink{
			{ID: "u-1", GeolocationVerified: true},
			{ID: "u-2", GeolocationVerified: true},
		},
	}

	if blockers := v.Blockers(snap, domain.StageGeolocationVerification); len(blockers) != 0 {
		t.Fatalf("expected no blockers, got %v", blockers)
	}

	snap.Units[1].GeolocationVerified = false
	blockers := v.Blockers(snap, domain.StageGeolocationVerification)
	if len(blockers) != 1 || !strings.Contains(blockers[0], "u-2") {
		t.Fatalf("expected a blocker naming u-2, got %v", blockers)
	}
}

func TestValidateDeforestationBlocksOnUnreviewedAlert(t *testing.T) {
	v := &StageValidator{}
	snap := &TraceabilitySnapshot{
		Workflow: &domain.Workflow{ID: "wf-1"},
		Units: []domain.ProductionUnitLink{
			{ID: "u-1", DeforestationChecked: true},
		},
		Alerts: []domain.DeforestationAlert{
			{ID: "a-1", UnitID: "u-1", Severity: domain.AlertHigh},
		},
	}

	blockers := v.Blockers(snap, domain.StageDeforestationCheck)
	if len(blockers) != 1 {
		t.Fatalf("expected 1 blocker, got %v", blockers)
	}

	snap.Alerts[0].Reviewed = true
	if blockers := v.Blockers(snap, domain.StageDeforestationCheck); len(blockers) != 0 {
		t.Fatalf("reviewed alert should not block, got %v", blockers)
	}
}

func TestValidateDeforestationRequiresScreening(t *testing.T) {
	v := &StageValidator{}
	snap := &TraceabilitySnapshot{
		Workflow: &domain.Workflow{ID: "wf-1"},
		Units: []domain.ProductionUnitLink{
			{ID: "u-1", DeforestationChecked: true},
			{ID: "u-2"},
		},
	}

	blockers := v.Blockers(snap, domain.StageDeforestationCheck)
	if len(blockers) != 1 || !strings.Contains(blockers[0], "1 units not screened") {
		t.Fatalf("expected an unscreened-unit blocker, got %v", blockers)
	}
}

func TestValidateProcessingNeverBlocks(t *testing.T) {
	v := &StageValidator{}
	snap := &TraceabilitySnapshot{Workflow: &domain.Workflow{ID: "wf-1"}}

	items := v.Validate(snap, domain.StageProcessing)
	if len(items) != 1 || !items[0].Passed {
		t.Fatalf("empty processing should pass as a skip, got %+v", items)
	}
	if items[0].Detail != "skipped" {
		t.Fatalf("expected skip detail, got %q", items[0].Detail)
	}

	snap.Processings = []domain.ProcessingEvent{{ID: "p-1", InputKG: 100, OutputKG: 80}}
	items = v.Validate(snap, domain.StageProcessing)
	if !items[0].Passed || items[0].Detail == "skipped" {
		t.Fatalf("recorded processing should pass with a count, got %+v", items)
	}
}

func TestValidateDueDiligenceNeedsRiskAndCertificate(t *testing.T) {
	v := &StageValidator{}
	w := &domain.Workflow{ID: "wf-1", CertificateStatus: domain.CertificateNotCreated}
	snap := &TraceabilitySnapshot{Workflow: w}

	if blockers := v.Blockers(snap, domain.StageDueDiligenceStatement); len(blockers) != 2 {
		t.Fatalf("expected risk and certificate blockers, got %v", blockers)
	}

	score := 37.5
	classification := domain.RiskLow
	assessedAt := time.Now()
	w.RiskScore = &score
	w.RiskClassification = &classification
	w.RiskAssessedAt = &assessedAt
	w.CertificateStatus = domain.CertificateCompliant

	if blockers := v.Blockers(snap, domain.StageDueDiligenceStatement); len(blockers) != 0 {
		t.Fatalf("expected no blockers, got %v", blockers)
	}
}

func TestValidateExportNeedsShipmentAndTransfer(t *testing.T) {
	v := &StageValidator{}
	w := &domain.Workflow{ID: "wf-1", CertificateStatus: domain.CertificateCompliant}
	snap := &TraceabilitySnapshot{Workflow: w}

	if blockers := v.Blockers(snap, domain.StageExport); len(blockers) != 2 {
		t.Fatalf("expected shipment and transfer blockers, got %v", blockers)
	}

	snap.Shipments = []domain.ShipmentEvent{{ID: "s-1", QuantityKG: 500}}
	w.CertificateStatus = domain.CertificateTransferredToImporter
	if blockers := v.Blockers(snap, domain.StageExport); len(blockers) != 0 {
		t.Fatalf("expected no blockers, got %v", blockers)
	}
}

func TestValidateLateStagesFollowCertificate(t *testing.T) {
	v := &StageValidator{}
	w := &domain.Workflow{ID: "wf-1", CertificateStatus: domain.CertificateTransferredToImporter}
	snap := &TraceabilitySnapshot{Workflow: w}

	if blockers := v.Blockers(snap, domain.StageCustomsClearance); len(blockers) != 1 {
		t.Fatalf("customs should block before verification, got %v", blockers)
	}
	w.CertificateStatus = domain.CertificateCustomsVerified
	if blockers := v.Blockers(snap, domain.StageCustomsClearance); len(blockers) != 0 {
		t.Fatalf("customs should pass once verified, got %v", blockers)
	}
	if blockers := v.Blockers(snap, domain.StageDelivery); len(blockers) != 1 {
		t.Fatalf("delivery should block before the delivered state, got %v", blockers)
	}
	w.CertificateStatus = domain.CertificateDelivered
	if blockers := v.Blockers(snap, domain.StageDelivery); len(blockers) != 0 {
		t.Fatalf("delivery should pass once delivered, got %v", blockers)
	}
}
