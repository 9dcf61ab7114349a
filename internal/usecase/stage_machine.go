package usecase

import (
	"context"
	"sync"
	"time"

	"agritrace/internal/domain"
)

// StageService owns the workflow's compliance stage: status derivation on
// read, guarded forward transitions, and audited reverts.
type StageService struct {
	Workflows   WorkflowRepository
	Loader      *SnapshotLoader
	Validator   *StageValidator
	Risk        *RiskEngine
	Transitions StageTransitionRepository

	Cache    StageStatusCache
	CacheTTL time.Duration

	Now func() time.Time

	locks workflowLocks
}

func (s *StageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Status re-derives the current stage from the traceability aggregates on
// every read. The stored stage is a hint: when an earlier stage's
// preconditions no longer hold, the effective stage drops back to it, so
// progress and blockers always match the data.
func (s *StageService) Status(ctx context.Context, workflowID string) (*domain.StageStatus, error) {
	if s.Cache != nil {
		if cached, ok, err := s.Cache.Get(ctx, workflowID); err == nil && ok {
			return cached, nil
		}
	}
	snap, err := s.Loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	status := s.statusFromSnapshot(snap)
	if s.Cache != nil {
		_ = s.Cache.Put(ctx, workflowID, *status, s.CacheTTL)
	}
	return status, nil
}

func (s *StageService) statusFromSnapshot(snap *TraceabilitySnapshot) *domain.StageStatus {
	stage := s.effectiveStage(snap)
	descriptor := stage.Descriptor()
	items := s.Validator.Validate(snap, stage)
	blockers := BlockersFromItems(items)
	progress, completion := stageProgress(snap, stage, blockers)
	_, hasNext := stage.Next()

	return &domain.StageStatus{
		WorkflowID: snap.Workflow.ID,
		Stage:      stage,
		Order:      descriptor.Order,
		Label:      descriptor.Label,
		Progress:   progress,
		Completion: completion,
		Items:      items,
		Blockers:   blockers,
		CanAdvance: len(blockers) == 0 && hasNext,
	}
}

func (s *StageService) effectiveStage(snap *TraceabilitySnapshot) domain.Stage {
	stored := snap.Workflow.CurrentStage
	if !stored.Valid() {
		stored = domain.FirstStage()
	}
	for _, d := range domain.Stages() {
		if d.Order >= stored.Order() {
			break
		}
		if len(s.Validator.Blockers(snap, d.Stage)) > 0 {
			return d.Stage
		}
	}
	return stored
}

// Advance moves the workflow one stage forward when the current stage has
// no blockers. Terminal-stage advances and blocked stages come back as
// failed results, not errors.
func (s *StageService) Advance(ctx context.Context, workflowID string) (*domain.AdvanceResult, error) {
	unlock := s.locks.lock(workflowID)
	defer unlock()

	snap, err := s.Loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	workflow := snap.Workflow
	current := s.effectiveStage(snap)

	result := &domain.AdvanceResult{WorkflowID: workflowID, FromStage: current, ToStage: current}
	next, hasNext := current.Next()
	if !hasNext {
		result.Blockers = []string{"workflow already at the final stage"}
		return result, nil
	}
	if blockers := s.Validator.Blockers(snap, current); len(blockers) > 0 {
		result.Blockers = blockers
		return result, nil
	}

	// Stage-entry side effects run before the transition commits.
	if next == domain.StageRiskAssessment {
		assessment := s.Risk.StageDisplayRisk(snap)
		score := assessment.Score
		classification := assessment.Classification
		assessedAt := assessment.AssessedAt
		workflow.RiskScore = &score
		workflow.RiskClassification = &classification
		workflow.RiskAssessedAt = &assessedAt
	}

	now := s.now()
	workflow.CurrentStage = next
	workflow.StageEnteredAt = now
	if next == domain.FinalStage() {
		workflow.Status = domain.WorkflowCompleted
	}
	if err := s.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, workflowID, current, next, domain.TransitionAdvance, "")
	s.invalidate(ctx, workflowID)

	result.ToStage = next
	result.Moved = true
	return result, nil
}

// Revert moves one stage back. It never re-runs forward side effects and
// is always allowed except from the first stage; the reason is kept for
// audit.
func (s *StageService) Revert(ctx context.Context, workflowID, reason string) (*domain.AdvanceResult, error) {
	unlock := s.locks.lock(workflowID)
	defer unlock()

	workflow, err := s.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	current := workflow.CurrentStage
	if !current.Valid() {
		current = domain.FirstStage()
	}
	result := &domain.AdvanceResult{WorkflowID: workflowID, FromStage: current, ToStage: current}
	previous, hasPrevious := current.Previous()
	if !hasPrevious {
		result.Blockers = []string{"workflow already at the first stage"}
		return result, nil
	}
	if reason == "" {
		reason = "unspecified"
	}

	workflow.CurrentStage = previous
	workflow.StageEnteredAt = s.now()
	workflow.Status = domain.WorkflowInProgress
	if err := s.Workflows.Save(ctx, workflow); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, workflowID, current, previous, domain.TransitionRevert, reason)
	s.invalidate(ctx, workflowID)

	result.ToStage = previous
	result.Moved = true
	return result, nil
}

func (s *StageService) recordTransition(ctx context.Context, workflowID string, from, to domain.Stage, direction domain.TransitionDirection, reason string) {
	if s.Transitions == nil {
		return
	}
	_ = s.Transitions.Append(ctx, domain.StageTransition{
		WorkflowID: workflowID,
		FromStage:  from,
		ToStage:    to,
		Direction:  direction,
		Reason:     reason,
		CreatedAt:  s.now(),
	})
}

func (s *StageService) invalidate(ctx context.Context, workflowID string) {
	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx, workflowID)
	}
}

// stageProgress is stage-specific: a ratio of eligible sub-items for the
// unit-driven stages, 0/100 for existence checks, and a skip marker for
// bypassed processing.
func stageProgress(snap *TraceabilitySnapshot, stage domain.Stage, blockers []string) (float64, domain.StageCompletion) {
	switch stage {
	case domain.StageProductionRegistration:
		return ratioProgress(snap.UnitsWithLocation(), len(snap.Units), blockers)
	case domain.StageGeolocationVerification:
		return ratioProgress(snap.VerifiedUnits(), len(snap.Units), blockers)
	case domain.StageDeforestationCheck:
		return ratioProgress(snap.CheckedUnits(), len(snap.Units), blockers)
	case domain.StageProcessing:
		if len(snap.Processings) == 0 {
			return 100, domain.CompletionSkipped
		}
		return 100, domain.CompletionSatisfied
	}
	if len(blockers) == 0 {
		return 100, domain.CompletionSatisfied
	}
	return 0, domain.CompletionRequiredPending
}

func ratioProgress(done, total int, blockers []string) (float64, domain.StageCompletion) {
	if total == 0 {
		return 0, domain.CompletionRequiredPending
	}
	progress := 100 * float64(done) / float64(total)
	if len(blockers) == 0 {
		return progress, domain.CompletionSatisfied
	}
	return progress, domain.CompletionRequiredPending
}

// workflowLocks serializes advance/issue per workflow. The store is
// expected to provide row-level atomicity; this guards against two local
// callers both observing "no blockers" and both committing.
type workflowLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *workflowLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	entry, ok := l.locks[id]
	if !ok {
		entry = &sync.Mutex{}
		l.locks[id] = entry
	}
	l.mu.Unlock()
	entry.Lock()
	return entry.Unlock
}
