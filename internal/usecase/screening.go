package usecase

import (
	"context"
	"log"
	"strconv"
	"time"

	"agritrace/internal/domain"

	"github.com/google/uuid"
)

// Relative vegetation-index drop thresholds, worst first.
var severityThresholds = []struct {
	drop     float64
	severity domain.AlertSeverity
}{
	{0.40, domain.AlertCritical},
	{0.25, domain.AlertHigh},
	{0.15, domain.AlertMedium},
	{0.05, domain.AlertLow},
}

// DeforestationScreening runs the satellite check for every geolocated
// unit of a workflow. A collaborator failure leaves the unit unchecked and
// the run continues; screening is re-runnable.
type DeforestationScreening struct {
	Units     ProductionUnitRepository
	Alerts    AlertRepository
	Satellite SatelliteAnalysis
	Cache     StageStatusCache

	// CutoffDate splits the before/after windows the vegetation index is
	// compared across.
	CutoffDate time.Time
	WindowDays int

	Now func() time.Time
}

type ScreeningResult struct {
	WorkflowID    string `json:"workflow_id"`
	UnitsScreened int    `json:"units_screened"`
	UnitsSkipped  int    `json:"units_skipped"`
	AlertsRaised  int    `json:"alerts_raised"`
}

func (s *DeforestationScreening) Run(ctx context.Context, workflowID string) (*ScreeningResult, error) {
	units, err := s.Units.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	result := &ScreeningResult{WorkflowID: workflowID}
	window := s.windowDays()
	before := DateRange{From: s.CutoffDate.AddDate(0, 0, -window), To: s.CutoffDate}
	after := DateRange{From: s.CutoffDate, To: s.CutoffDate.AddDate(0, 0, window)}

	for i := range units {
		unit := &units[i]
		geometry := unit.GeometryGeoJSON
		if geometry == "" {
			if unit.Latitude == nil || unit.Longitude == nil {
				result.UnitsSkipped++
				continue
			}
			geometry = pointGeometry(*unit.Longitude, *unit.Latitude)
		}
		stats, err := s.Satellite.QueryVegetationIndex(ctx, geometry, before, after)
		if err != nil {
			log.Printf("vegetation index query for unit %s failed: %v", unit.ID, err)
			result.UnitsSkipped++
			continue
		}

		raised, err := s.fileAlert(ctx, unit, stats)
		if err != nil {
			return nil, err
		}
		if raised {
			result.AlertsRaised++
		}

		unit.DeforestationChecked = true
		unit.DeforestationClear, err = s.unitClear(ctx, unit)
		if err != nil {
			return nil, err
		}
		if err := s.Units.Save(ctx, unit); err != nil {
			return nil, err
		}
		result.UnitsScreened++
	}

	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx, workflowID)
	}
	return result, nil
}

func (s *DeforestationScreening) fileAlert(ctx context.Context, unit *domain.ProductionUnitLink, stats domain.VegetationIndexStats) (bool, error) {
	severity, ok := classifyDrop(stats.RelativeDrop())
	if !ok {
		return false, nil
	}
	alert := domain.DeforestationAlert{
		ID:         uuid.NewString(),
		WorkflowID: unit.WorkflowID,
		UnitID:     unit.ID,
		Severity:   severity,
		AlertDate:  s.now(),
		Source:     "vegetation-index",
		CreatedAt:  s.now(),
	}
	if err := s.Alerts.Create(ctx, alert); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DeforestationScreening) unitClear(ctx context.Context, unit *domain.ProductionUnitLink) (bool, error) {
	alerts, err := s.Alerts.ListByWorkflow(ctx, unit.WorkflowID)
	if err != nil {
		return false, err
	}
	for _, a := range alerts {
		if a.UnitID == unit.ID && a.Blocking() {
			return false, nil
		}
	}
	return true, nil
}

// ReviewAlert marks an alert reviewed and re-derives the owning unit's
// clear flag.
func (s *DeforestationScreening) ReviewAlert(ctx context.Context, alertID string) (*domain.DeforestationAlert, error) {
	alert, err := s.Alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.Reviewed {
		now := s.now()
		alert.Reviewed = true
		alert.ReviewedAt = &now
		if err := s.Alerts.Save(ctx, alert); err != nil {
			return nil, err
		}
	}

	if alert.UnitID != "" {
		unit, err := s.Units.GetByID(ctx, alert.UnitID)
		if err == nil {
			unit.DeforestationClear, err = s.unitClear(ctx, unit)
			if err == nil {
				_ = s.Units.Save(ctx, unit)
			}
		}
	}
	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx, alert.WorkflowID)
	}
	return alert, nil
}

func classifyDrop(drop float64) (domain.AlertSeverity, bool) {
	for _, threshold := range severityThresholds {
		if drop >= threshold.drop {
			return threshold.severity, true
		}
	}
	return "", false
}

func pointGeometry(lon, lat float64) string {
	return `{"type":"Point","coordinates":[` +
		strconv.FormatFloat(lon, 'f', -1, 64) + `,` +
		strconv.FormatFloat(lat, 'f', -1, 64) + `]}`
}

func (s *DeforestationScreening) windowDays() int {
	if s.WindowDays > 0 {
		return s.WindowDays
	}
	return 365
}

func (s *DeforestationScreening) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
