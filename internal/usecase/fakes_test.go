package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"agritrace/internal/domain"
)

type memoryWorkflowRepo struct {
	mu        sync.Mutex
	workflows map[string]domain.Workflow
}

func newMemoryWorkflowRepo() *memoryWorkflowRepo {
	return &memoryWorkflowRepo{workflows: make(map[string]domain.Workflow)}
}

func (r *memoryWorkflowRepo) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	copied := w
	return &copied, nil
}

func (r *memoryWorkflowRepo) ListByExporter(ctx context.Context, exporterID string) ([]domain.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Workflow
	for _, w := range r.workflows {
		if w.ExporterID == exporterID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryWorkflowRepo) Create(ctx context.Context, w domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[w.ID] = w
	return nil
}

func (r *memoryWorkflowRepo) Save(ctx context.Context, w *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.UpdatedAt = time.Now().UTC()
	r.workflows[w.ID] = *w
	return nil
}

type memoryUnitRepo struct {
	mu    sync.Mutex
	units map[string]domain.ProductionUnitLink
}

func newMemoryUnitRepo() *memoryUnitRepo {
	return &memoryUnitRepo{units: make(map[string]domain.ProductionUnitLink)}
}

func (r *memoryUnitRepo) GetByID(ctx context.Context, id string) (*domain.ProductionUnitLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[id]
	if !ok {
		return nil, domain.ErrUnitNotFound
	}
	copied := u
	return &copied, nil
}

func (r *memoryUnitRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.ProductionUnitLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProductionUnitLink
	for _, u := range r.units {
		if u.WorkflowID == workflowID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryUnitRepo) Create(ctx context.Context, u domain.ProductionUnitLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u.ID] = u
	return nil
}

func (r *memoryUnitRepo) Save(ctx context.Context, u *domain.ProductionUnitLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u.ID] = *u
	return nil
}

func (r *memoryUnitRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok {
		return domain.ErrUnitNotFound
	}
	delete(r.units, id)
	return nil
}

type memoryEventRepo struct {
	mu             sync.Mutex
	collections    []domain.CollectionEvent
	consolidations []domain.ConsolidationEvent
	processings    []domain.ProcessingEvent
	shipments      []domain.ShipmentEvent
}

func newMemoryEventRepo() *memoryEventRepo {
	return &memoryEventRepo{}
}

func (r *memoryEventRepo) AppendCollection(ctx context.Context, e domain.CollectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = append(r.collections, e)
	return nil
}

func (r *memoryEventRepo) AppendConsolidation(ctx context.Context, e domain.ConsolidationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consolidations = append(r.consolidations, e)
	return nil
}

func (r *memoryEventRepo) AppendProcessing(ctx context.Context, e domain.ProcessingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processings = append(r.processings, e)
	return nil
}

func (r *memoryEventRepo) AppendShipment(ctx context.Context, e domain.ShipmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments = append(r.shipments, e)
	return nil
}

func (r *memoryEventRepo) ListCollections(ctx context.Context, workflowID string) ([]domain.CollectionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CollectionEvent
	for _, e := range r.collections {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) ListConsolidations(ctx context.Context, workflowID string) ([]domain.ConsolidationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ConsolidationEvent
	for _, e := range r.consolidations {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) ListProcessings(ctx context.Context, workflowID string) ([]domain.ProcessingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ProcessingEvent
	for _, e := range r.processings {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) ListShipments(ctx context.Context, workflowID string) ([]domain.ShipmentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ShipmentEvent
	for _, e := range r.shipments {
		if e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) SumQuantity(ctx context.Context, workflowID string, kind domain.EventKind) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	switch kind {
	case domain.EventCollection:
		for _, e := range r.collections {
			if e.WorkflowID == workflowID {
				total += e.QuantityKG
			}
		}
	case domain.EventConsolidation:
		for _, e := range r.consolidations {
			if e.WorkflowID == workflowID {
				total += e.QuantityKG
			}
		}
	case domain.EventProcessing:
		for _, e := range r.processings {
			if e.WorkflowID == workflowID {
				total += e.OutputKG
			}
		}
	case domain.EventShipment:
		for _, e := range r.shipments {
			if e.WorkflowID == workflowID {
				total += e.QuantityKG
			}
		}
	}
	return total, nil
}

func (r *memoryEventRepo) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.collections {
		if e.UnitID == unitID {
			n++
		}
	}
	return n, nil
}

func (r *memoryEventRepo) AttachLedgerRef(ctx context.Context, kind domain.EventKind, eventID, txRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case domain.EventCollection:
		for i := range r.collections {
			if r.collections[i].ID == eventID {
				r.collections[i].LedgerTxRef = txRef
			}
		}
	case domain.EventConsolidation:
		for i := range r.consolidations {
			if r.consolidations[i].ID == eventID {
				r.consolidations[i].LedgerTxRef = txRef
			}
		}
	case domain.EventProcessing:
		for i := range r.processings {
			if r.processings[i].ID == eventID {
				r.processings[i].LedgerTxRef = txRef
			}
		}
	case domain.EventShipment:
		for i := range r.shipments {
			if r.shipments[i].ID == eventID {
				r.shipments[i].LedgerTxRef = txRef
			}
		}
	}
	return nil
}

type memoryAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]domain.DeforestationAlert
}

func newMemoryAlertRepo() *memoryAlertRepo {
	return &memoryAlertRepo{alerts: make(map[string]domain.DeforestationAlert)}
}

func (r *memoryAlertRepo) GetByID(ctx context.Context, id string) (*domain.DeforestationAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	copied := a
	return &copied, nil
}

func (r *memoryAlertRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.DeforestationAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DeforestationAlert
	for _, a := range r.alerts {
		if a.WorkflowID == workflowID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryAlertRepo) Create(ctx context.Context, a domain.DeforestationAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[a.ID] = a
	return nil
}

func (r *memoryAlertRepo) Save(ctx context.Context, a *domain.DeforestationAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[a.ID] = *a
	return nil
}

type memoryTransitionRepo struct {
	mu          sync.Mutex
	transitions []domain.StageTransition
}

func (r *memoryTransitionRepo) Append(ctx context.Context, t domain.StageTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *memoryTransitionRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.StageTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StageTransition
	for _, t := range r.transitions {
		if t.WorkflowID == workflowID {
			out = append(out, t)
		}
	}
	return out, nil
}

type staticRiskTable map[string]domain.CountryRiskLevel

func (t staticRiskTable) Lookup(code string) (domain.CountryRiskLevel, bool) {
	level, ok := t[code]
	return level, ok
}

// syncRunner executes submitted tasks inline so tests observe their
// effects deterministically.
type syncRunner struct {
	reject bool
	names  []string
}

func (r *syncRunner) Submit(name string, task func(ctx context.Context)) bool {
	if r.reject {
		return false
	}
	r.names = append(r.names, name)
	task(context.Background())
	return true
}

type fakeLedger struct {
	mu          sync.Mutex
	recordErr   error
	mintErr     error
	transferErr error
	recorded    []domain.LedgerEvent
	minted      []domain.ComplianceResult
	transfers   int
	nextTxID    string
	nextSerial  int64
	nextAssetID string
}

func (l *fakeLedger) RecordEvent(ctx context.Context, event domain.LedgerEvent) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return "", l.recordErr
	}
	l.recorded = append(l.recorded, event)
	if l.nextTxID != "" {
		return l.nextTxID, nil
	}
	return "tx-" + event.EventID, nil
}

func (l *fakeLedger) MintCertificate(ctx context.Context, ownerAccount string, compliance domain.ComplianceResult) (domain.MintResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mintErr != nil {
		return domain.MintResult{}, l.mintErr
	}
	l.minted = append(l.minted, compliance)
	serial := l.nextSerial
	if serial == 0 {
		serial = int64(len(l.minted))
	}
	assetID := l.nextAssetID
	if assetID == "" {
		assetID = "asset-1"
	}
	txID := l.nextTxID
	if txID == "" {
		txID = "mint-tx-1"
	}
	return domain.MintResult{TxID: txID, SerialNumber: serial, AssetID: assetID, Account: ownerAccount}, nil
}

func (l *fakeLedger) TransferAsset(ctx context.Context, fromAccount, toAccount, assetID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transferErr != nil {
		return l.transferErr
	}
	l.transfers++
	return nil
}

type fakeAccounts struct {
	account string
	err     error
	calls   int
}

func (a *fakeAccounts) EnsureAccount(ctx context.Context, partyID string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	if a.account != "" {
		return a.account, nil
	}
	return "acct-" + partyID, nil
}

type fixture struct {
	workflows   *memoryWorkflowRepo
	units       *memoryUnitRepo
	events      *memoryEventRepo
	alerts      *memoryAlertRepo
	transitions *memoryTransitionRepo
	loader      *SnapshotLoader
	risk        *RiskEngine
	validator   *StageValidator
}

func newFixture() *fixture {
	workflows := newMemoryWorkflowRepo()
	units := newMemoryUnitRepo()
	events := newMemoryEventRepo()
	alerts := newMemoryAlertRepo()
	loader := &SnapshotLoader{Workflows: workflows, Units: units, Events: events, Alerts: alerts}
	risk := &RiskEngine{
		Workflows: workflows,
		Loader:    loader,
		Countries: staticRiskTable{
			"BR": domain.CountryRiskHigh,
			"GH": domain.CountryRiskStandard,
			"VN": domain.CountryRiskLow,
		},
	}
	return &fixture{
		workflows:   workflows,
		units:       units,
		events:      events,
		alerts:      alerts,
		transitions: &memoryTransitionRepo{},
		loader:      loader,
		risk:        risk,
		validator:   &StageValidator{},
	}
}

func (f *fixture) stageService() *StageService {
	return &StageService{
		Workflows:   f.workflows,
		Loader:      f.loader,
		Validator:   f.validator,
		Risk:        f.risk,
		Transitions: f.transitions,
	}
}

func (f *fixture) addWorkflow(id string, stage domain.Stage) *domain.Workflow {
	w := domain.Workflow{
		ID:                id,
		ProduceType:       "cocoa",
		TotalQuantityKG:   1000,
		OriginCountry:     "GH",
		ExporterID:        "exporter-1",
		CurrentStage:      stage,
		Status:            domain.WorkflowInProgress,
		CertificateStatus: domain.CertificateNotCreated,
	}
	_ = f.workflows.Create(context.Background(), w)
	return &w
}

func floatPtr(v float64) *float64 { return &v }

func (f *fixture) addUnit(workflowID, id string, located, verified, checked bool) domain.ProductionUnitLink {
	u := domain.ProductionUnitLink{
		ID:          id,
		WorkflowID:  workflowID,
		FarmerID:    "farmer-" + id,
		Name:        "Parcel " + id,
		CountryCode: "GH",
	}
	if located {
		u.Latitude = floatPtr(6.1)
		u.Longitude = floatPtr(-1.5)
	}
	u.GeolocationVerified = verified
	u.DeforestationChecked = checked
	u.DeforestationClear = checked
	_ = f.units.Create(context.Background(), u)
	return u
}

func (f *fixture) addCollection(workflowID, unitID string, kg float64) {
	_ = f.events.AppendCollection(context.Background(), domain.CollectionEvent{
		ID:          "col-" + unitID + "-" + strconv.Itoa(len(f.events.collections)),
		WorkflowID:  workflowID,
		UnitID:      unitID,
		QuantityKG:  kg,
		CollectedAt: time.Now().UTC(),
	})
}
