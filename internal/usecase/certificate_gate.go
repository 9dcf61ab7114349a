package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"agritrace/internal/domain"
)

// CertificateGate orchestrates validation, gate risk, the export policy
// hook and the ledger collaborator to run the certificate lifecycle. The
// lifecycle is independent of the stage machine; the stage validator only
// reads certificate state.
type CertificateGate struct {
	Workflows WorkflowRepository
	Loader    *SnapshotLoader
	Risk      *RiskEngine
	Ledger    domain.Ledger
	Accounts  domain.AccountProvisioner
	Policy    ExportPolicy
	Tasks     TaskRunner
	Cache     StageStatusCache

	// CutoffDate is the regulatory cutoff: HIGH/CRITICAL alerts dated
	// after it block issuance outright.
	CutoffDate    time.Time
	IssuerAccount string

	Now func() time.Time

	locks workflowLocks
}

func (g *CertificateGate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// ValidateForCertificate runs the fail-closed issuance checks and returns
// the assembled compliance verdict. A non-empty failure list blocks
// issuance; it is data here, an error only in Issue.
func (g *CertificateGate) ValidateForCertificate(ctx context.Context, workflowID string) (*domain.ComplianceResult, error) {
	snap, err := g.Loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	result := g.evaluate(ctx, snap)
	return &result, nil
}

func (g *CertificateGate) evaluate(ctx context.Context, snap *TraceabilitySnapshot) domain.ComplianceResult {
	var reasons []string

	if len(snap.Collections) == 0 {
		reasons = append(reasons, "no collection events recorded")
	}

	missingLocation := 0
	unverified := 0
	farmers := make(map[string]struct{})
	for i := range snap.Units {
		u := &snap.Units[i]
		if u.FarmerID != "" {
			farmers[u.FarmerID] = struct{}{}
		}
		if !u.HasLocation() {
			missingLocation++
		}
		if !u.GeolocationVerified {
			unverified++
		}
	}
	if len(snap.Units) == 0 {
		reasons = append(reasons, "no production units linked")
	}
	if missingLocation > 0 {
		reasons = append(reasons, fmt.Sprintf("%d production units missing coordinates", missingLocation))
	}
	if unverified > 0 {
		reasons = append(reasons, fmt.Sprintf("%d production units not geolocation-verified", unverified))
	}

	for _, alert := range snap.Alerts {
		if (alert.Severity == domain.AlertHigh || alert.Severity == domain.AlertCritical) && alert.AlertDate.After(g.CutoffDate) {
			reasons = append(reasons, fmt.Sprintf("%s deforestation alert dated %s is after the regulatory cutoff", alert.Severity, alert.AlertDate.Format("2006-01-02")))
		}
	}

	// Consolidation is optional, so the conservation check only applies
	// once consolidation events exist.
	if len(snap.Consolidations) > 0 && snap.ConsolidatedKG() > snap.CollectedKG() {
		reasons = append(reasons, fmt.Sprintf("consolidated quantity %.1f kg exceeds collected quantity %.1f kg", snap.ConsolidatedKG(), snap.CollectedKG()))
	}

	origin := ResolveOriginCountry(snap)
	if origin == "" {
		reasons = append(reasons, "origin country could not be determined")
	}

	gateScore, gateLevel := g.Risk.CertificateGateRisk(snap)
	if gateLevel == domain.GateRiskHigh {
		reasons = append(reasons, fmt.Sprintf("risk level HIGH (gate score %.3f) blocks issuance", gateScore))
	}

	gpsCoverage := 0.0
	if len(snap.Units) > 0 {
		gpsCoverage = float64(len(snap.Units)-missingLocation) / float64(len(snap.Units))
	}

	result := domain.ComplianceResult{
		WorkflowID:           snap.Workflow.ID,
		TotalFarmers:         len(farmers),
		TotalProductionUnits: len(snap.Units),
		GPSCoverage:          gpsCoverage,
		DeforestationStatus:  deforestationStatus(snap),
		OriginCountry:        origin,
		RiskLevel:            gateLevel,
		RiskScore:            gateScore,
		TraceabilityHash:     traceabilityHash(snap),
	}

	// The policy hook sees the pre-policy verdict; its denials are then
	// folded in and the verdict recomputed.
	result.FailureReasons = reasons
	result.IsCompliant = len(reasons) == 0
	if g.Policy != nil {
		reasons = append(reasons, g.policyDenials(ctx, snap, result)...)
		result.FailureReasons = reasons
		result.IsCompliant = len(reasons) == 0
	}
	return result
}

func (g *CertificateGate) policyDenials(ctx context.Context, snap *TraceabilitySnapshot, result domain.ComplianceResult) []string {
	evaluation, err := g.Policy.Evaluate(ctx, domain.ExportPolicyInput{
		Workflow: domain.ExportPolicyWorkflow{
			ID:            snap.Workflow.ID,
			ProduceType:   snap.Workflow.ProduceType,
			OriginCountry: result.OriginCountry,
			QuantityKG:    snap.Workflow.TotalQuantityKG,
		},
		Compliance: result,
	})
	if err != nil {
		// The gate fails closed on a broken policy hook.
		return []string{"export policy evaluation failed: " + err.Error()}
	}
	if evaluation.Result.Allow {
		return nil
	}
	var reasons []string
	for _, deny := range evaluation.Result.Deny {
		if deny.Code == "" {
			continue
		}
		reasons = append(reasons, "export policy deny: "+deny.Code)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "export policy denied issuance")
	}
	return reasons
}

func deforestationStatus(snap *TraceabilitySnapshot) string {
	if len(snap.UnreviewedAlerts()) > 0 {
		return "OPEN_ALERTS"
	}
	if len(snap.Alerts) > 0 {
		return "ALERTS_REVIEWED"
	}
	for i := range snap.Units {
		if !snap.Units[i].DeforestationChecked {
			return "UNSCREENED"
		}
	}
	if len(snap.Units) == 0 {
		return "UNSCREENED"
	}
	return "CLEAR"
}

// traceabilityHash fingerprints the sorted identifiers of everything that
// contributed to the consignment, for tamper-evidence on the ledger.
func traceabilityHash(snap *TraceabilitySnapshot) string {
	ids := []string{"workflow:" + snap.Workflow.ID}
	for i := range snap.Units {
		ids = append(ids, "unit:"+snap.Units[i].ID)
	}
	for _, e := range snap.Collections {
		ids = append(ids, "collection:"+e.ID)
	}
	for _, e := range snap.Consolidations {
		ids = append(ids, "consolidation:"+e.ID)
	}
	for _, e := range snap.Processings {
		ids = append(ids, "processing:"+e.ID)
	}
	for _, e := range snap.Shipments {
		ids = append(ids, "shipment:"+e.ID)
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:])
}

// Issue mints the compliance certificate synchronously. The certificate
// must be NOT_CREATED or PENDING_VERIFICATION (the latter recovers an
// interrupted attempt); re-issuing over a COMPLIANT certificate is a
// conflict. On ledger failure the state rolls back to NOT_CREATED.
func (g *CertificateGate) Issue(ctx context.Context, workflowID string) (*domain.CertificateRecord, *domain.ComplianceResult, error) {
	compliance, err := g.beginIssuance(ctx, workflowID, false)
	if err != nil {
		return nil, compliance, err
	}
	record, err := g.finishIssuance(ctx, workflowID, *compliance)
	return record, compliance, err
}

// IssueAsync marks the workflow PENDING_VERIFICATION immediately and runs
// the mint on the background runner. A second call while an issuance is in
// flight is rejected; callers observe completion by re-reading the
// workflow.
func (g *CertificateGate) IssueAsync(ctx context.Context, workflowID string) (*domain.ComplianceResult, error) {
	compliance, err := g.beginIssuance(ctx, workflowID, true)
	if err != nil {
		return compliance, err
	}
	submitted := g.Tasks.Submit("certificate-issue:"+workflowID, func(taskCtx context.Context) {
		if _, err := g.finishIssuance(taskCtx, workflowID, *compliance); err != nil {
			log.Printf("async certificate issuance for workflow %s failed: %v", workflowID, err)
		}
	})
	if !submitted {
		g.rollback(ctx, workflowID)
		return compliance, fmt.Errorf("%w: background runner rejected issuance task", domain.ErrLedgerUnavailable)
	}
	return compliance, nil
}

// beginIssuance holds the per-workflow lock only for the guard and the
// optimistic PENDING_VERIFICATION write; the ledger call happens outside
// any critical section.
func (g *CertificateGate) beginIssuance(ctx context.Context, workflowID string, async bool) (*domain.ComplianceResult, error) {
	unlock := g.locks.lock(workflowID)
	defer unlock()

	snap, err := g.Loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	workflow := snap.Workflow
	switch workflow.CertificateStatus {
	case domain.CertificateNotCreated:
	case domain.CertificatePendingVerification:
		if async {
			return nil, fmt.Errorf("%w: issuance already in flight", domain.ErrCertificateState)
		}
	default:
		return nil, fmt.Errorf("%w: certificate is %s", domain.ErrCertificateState, workflow.CertificateStatus)
	}

	compliance := g.evaluate(ctx, snap)
	if !compliance.IsCompliant {
		return &compliance, fmt.Errorf("%w: %s", domain.ErrIssuanceBlocked, strings.Join(compliance.FailureReasons, "; "))
	}

	workflow.CertificateStatus = domain.CertificatePendingVerification
	if err := g.Workflows.Save(ctx, workflow); err != nil {
		return &compliance, err
	}
	g.invalidate(ctx, workflowID)
	return &compliance, nil
}

func (g *CertificateGate) finishIssuance(ctx context.Context, workflowID string, compliance domain.ComplianceResult) (*domain.CertificateRecord, error) {
	mint, mintErr := g.Ledger.MintCertificate(ctx, g.IssuerAccount, compliance)

	unlock := g.locks.lock(workflowID)
	defer unlock()

	workflow, err := g.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if mintErr != nil {
		workflow.CertificateStatus = domain.CertificateNotCreated
		if saveErr := g.Workflows.Save(ctx, workflow); saveErr != nil {
			log.Printf("certificate rollback for workflow %s failed: %v", workflowID, saveErr)
		}
		g.invalidate(ctx, workflowID)
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, mintErr)
	}

	now := g.now()
	workflow.CertificateStatus = domain.CertificateCompliant
	workflow.CertificateTxID = mint.TxID
	workflow.CertificateSerial = mint.SerialNumber
	workflow.CertificateAssetID = mint.AssetID
	workflow.IssuerAccount = g.IssuerAccount
	workflow.CertificateIssuedAt = &now
	if err := g.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	g.invalidate(ctx, workflowID)

	return &domain.CertificateRecord{
		WorkflowID:       workflowID,
		Status:           workflow.CertificateStatus,
		TxID:             mint.TxID,
		SerialNumber:     mint.SerialNumber,
		AssetID:          mint.AssetID,
		IssuerAccount:    g.IssuerAccount,
		TraceabilityHash: compliance.TraceabilityHash,
		IssuedAt:         now,
	}, nil
}

func (g *CertificateGate) rollback(ctx context.Context, workflowID string) {
	unlock := g.locks.lock(workflowID)
	defer unlock()
	workflow, err := g.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return
	}
	if workflow.CertificateStatus != domain.CertificatePendingVerification {
		return
	}
	workflow.CertificateStatus = domain.CertificateNotCreated
	if err := g.Workflows.Save(ctx, workflow); err != nil {
		log.Printf("certificate rollback for workflow %s failed: %v", workflowID, err)
	}
	g.invalidate(ctx, workflowID)
}

// Transfer hands the certificate to the importer. The importer's ledger
// account is provisioned on first use; state advances only after the
// ledger transfer succeeds.
func (g *CertificateGate) Transfer(ctx context.Context, workflowID, importerID string) (*domain.Workflow, error) {
	if importerID == "" {
		return nil, fmt.Errorf("%w: importer id is required", domain.ErrInvalidInput)
	}
	unlock := g.locks.lock(workflowID)
	defer unlock()

	workflow, err := g.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.CertificateStatus != domain.CertificateCompliant && workflow.CertificateStatus != domain.CertificateInTransit {
		return nil, fmt.Errorf("%w: certificate is %s", domain.ErrCertificateState, workflow.CertificateStatus)
	}

	account := workflow.ImporterAccount
	if account == "" || workflow.ImporterID != importerID {
		account, err = g.Accounts.EnsureAccount(ctx, importerID)
		if err != nil {
			return nil, fmt.Errorf("%w: provisioning importer account: %v", domain.ErrLedgerUnavailable, err)
		}
	}

	if err := g.Ledger.TransferAsset(ctx, workflow.IssuerAccount, account, workflow.CertificateAssetID); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}

	workflow.ImporterID = importerID
	workflow.ImporterAccount = account
	workflow.CertificateStatus = domain.CertificateTransferredToImporter
	if err := g.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	g.invalidate(ctx, workflowID)
	return workflow, nil
}

func (g *CertificateGate) MarkInTransit(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	return g.advanceCertificate(ctx, workflowID, domain.CertificateInTransit)
}

func (g *CertificateGate) MarkCustomsVerified(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	return g.advanceCertificate(ctx, workflowID, domain.CertificateCustomsVerified)
}

func (g *CertificateGate) MarkDelivered(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	return g.advanceCertificate(ctx, workflowID, domain.CertificateDelivered)
}

func (g *CertificateGate) advanceCertificate(ctx context.Context, workflowID string, target domain.CertificateStatus) (*domain.Workflow, error) {
	unlock := g.locks.lock(workflowID)
	defer unlock()

	workflow, err := g.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !workflow.CertificateStatus.CanAdvanceTo(target) {
		return nil, fmt.Errorf("%w: cannot move certificate from %s to %s", domain.ErrCertificateState, workflow.CertificateStatus, target)
	}
	workflow.CertificateStatus = target
	if err := g.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	g.invalidate(ctx, workflowID)
	return workflow, nil
}

func (g *CertificateGate) invalidate(ctx context.Context, workflowID string) {
	if g.Cache != nil {
		_ = g.Cache.Invalidate(ctx, workflowID)
	}
}
