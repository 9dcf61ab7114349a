package usecase

import (
	"context"
	"strings"
	"testing"

	"agritrace/internal/domain"
)

func TestAdvanceBlockedWithoutUnits(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageProductionRegistration)
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Moved {
		t.Fatalf("expected advance to be blocked")
	}
	if len(result.Blockers) == 0 {
		t.Fatalf("expected blockers on the result")
	}
	if result.FromStage != domain.StageProductionRegistration || result.ToStage != domain.StageProductionRegistration {
		t.Fatalf("blocked advance must not move the stage: %+v", result)
	}
}

func TestAdvanceMovesOneStage(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageProductionRegistration)
	f.addUnit("wf-1", "unit-1", true, false, false)
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !result.Moved || result.ToStage != domain.StageGeolocationVerification {
		t.Fatalf("expected a move to geolocation verification, got %+v", result)
	}

	stored, _ := f.workflows.GetByID(context.Background(), "wf-1")
	if stored.CurrentStage != domain.StageGeolocationVerification {
		t.Fatalf("stage not persisted, got %s", stored.CurrentStage)
	}
	if len(f.transitions.transitions) != 1 || f.transitions.transitions[0].Direction != domain.TransitionAdvance {
		t.Fatalf("expected one advance transition, got %+v", f.transitions.transitions)
	}
}

func TestAdvanceComputesRiskOnStageEntry(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageProcessing)
	f.addUnit("wf-1", "unit-1", true, true, true)
	f.addCollection("wf-1", "unit-1", 500)
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !result.Moved || result.ToStage != domain.StageRiskAssessment {
		t.Fatalf("expected a move to risk assessment, got %+v", result)
	}

	stored, _ := f.workflows.GetByID(context.Background(), "wf-1")
	if !stored.RiskAssessed() {
		t.Fatalf("risk fields must be set before the transition commits")
	}
}

func TestAdvanceAtFinalStageFails(t *testing.T) {
	f := newFixture()
	w := f.addWorkflow("wf-1", domain.FinalStage())
	w.CertificateStatus = domain.CertificateDelivered
	score := 10.0
	classification := domain.RiskNegligible
	w.RiskScore = &score
	w.RiskClassification = &classification
	_ = f.workflows.Save(context.Background(), w)
	f.addUnit("wf-1", "unit-1", true, true, true)
	f.addCollection("wf-1", "unit-1", 500)
	_ = f.events.AppendShipment(context.Background(), domain.ShipmentEvent{ID: "ship-1", WorkflowID: "wf-1", QuantityKG: 500})
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Moved {
		t.Fatalf("terminal advance must not move")
	}
	if len(result.Blockers) != 1 || !strings.Contains(result.Blockers[0], "final stage") {
		t.Fatalf("expected a final-stage blocker, got %v", result.Blockers)
	}
}

func TestRevertAtFirstStageFails(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.FirstStage())
	svc := f.stageService()

	result, err := svc.Revert(context.Background(), "wf-1", "operator request")
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if result.Moved {
		t.Fatalf("revert from the first stage must not move")
	}
	if len(result.Blockers) != 1 || !strings.Contains(result.Blockers[0], "first stage") {
		t.Fatalf("expected a first-stage blocker, got %v", result.Blockers)
	}
}

func TestRevertKeepsAuditReason(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageCollectionAggregation)
	svc := f.stageService()

	result, err := svc.Revert(context.Background(), "wf-1", "")
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if !result.Moved || result.ToStage != domain.StageDeforestationCheck {
		t.Fatalf("expected a move back to deforestation check, got %+v", result)
	}
	if len(f.transitions.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(f.transitions.transitions))
	}
	tr := f.transitions.transitions[0]
	if tr.Direction != domain.TransitionRevert || tr.Reason != "unspecified" {
		t.Fatalf("expected an audited revert with a defaulted reason, got %+v", tr)
	}
}

func TestStatusDerivesStageFromData(t *testing.T) {
	f := newFixture()
	// Stored stage says collection, but the only unit lost verification;
	// the effective stage must drop back to geolocation verification.
	f.addWorkflow("wf-1", domain.StageCollectionAggregation)
	f.addUnit("wf-1", "unit-1", true, false, false)
	svc := f.stageService()

	status, err := svc.Status(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Stage != domain.StageGeolocationVerification {
		t.Fatalf("expected derived stage geolocation verification, got %s", status.Stage)
	}
	if status.CanAdvance {
		t.Fatalf("a derived-back stage with blockers cannot advance")
	}
}

func TestAdvanceValidatesDerivedStage(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageCollectionAggregation)
	f.addUnit("wf-1", "unit-1", false, false, false)
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Moved {
		t.Fatalf("expected advance blocked at the derived stage")
	}
	if result.FromStage != domain.StageProductionRegistration {
		t.Fatalf("expected validation against the derived stage, got %s", result.FromStage)
	}
}

func TestAdvanceToFinalStageCompletesWorkflow(t *testing.T) {
	f := newFixture()
	w := f.addWorkflow("wf-1", domain.StageCustomsClearance)
	w.CertificateStatus = domain.CertificateCustomsVerified
	score := 10.0
	classification := domain.RiskNegligible
	w.RiskScore = &score
	w.RiskClassification = &classification
	_ = f.workflows.Save(context.Background(), w)
	f.addUnit("wf-1", "unit-1", true, true, true)
	f.addCollection("wf-1", "unit-1", 500)
	_ = f.events.AppendShipment(context.Background(), domain.ShipmentEvent{ID: "ship-1", WorkflowID: "wf-1", QuantityKG: 500})
	svc := f.stageService()

	result, err := svc.Advance(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !result.Moved || result.ToStage != domain.StageDelivery {
		t.Fatalf("expected a move to delivery, got %+v", result)
	}
	stored, _ := f.workflows.GetByID(context.Background(), "wf-1")
	if stored.Status != domain.WorkflowCompleted {
		t.Fatalf("expected the workflow completed at the final stage, got %s", stored.Status)
	}
}

func TestStageProgressRatios(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageProductionRegistration)
	f.addUnit("wf-1", "unit-1", true, false, false)
	f.addUnit("wf-1", "unit-2", false, false, false)
	svc := f.stageService()

	status, err := svc.Status(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Progress != 50 {
		t.Fatalf("one of two located units should read 50%%, got %v", status.Progress)
	}
	if status.Completion != domain.CompletionRequiredPending {
		t.Fatalf("expected REQUIRED_PENDING, got %s", status.Completion)
	}
}

func TestStatusMarksProcessingSkipped(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageProcessing)
	f.addUnit("wf-1", "unit-1", true, true, true)
	f.addCollection("wf-1", "unit-1", 500)
	svc := f.stageService()

	status, err := svc.Status(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Stage != domain.StageProcessing {
		t.Fatalf("expected the processing stage, got %s", status.Stage)
	}
	if status.Completion != domain.CompletionSkipped || status.Progress != 100 {
		t.Fatalf("empty processing should read skipped at 100%%, got %s/%v", status.Completion, status.Progress)
	}
}

func TestAdvanceMissingWorkflow(t *testing.T) {
	f := newFixture()
	svc := f.stageService()

	if _, err := svc.Advance(context.Background(), "nope"); err != domain.ErrWorkflowNotFound {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}
