package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"agritrace/internal/domain"
)

type stubSatellite struct {
	stats map[string]domain.VegetationIndexStats
	err   error
}

func (s *stubSatellite) QueryVegetationIndex(ctx context.Context, geometry string, before, after DateRange) (domain.VegetationIndexStats, error) {
	if s.err != nil {
		return domain.VegetationIndexStats{}, s.err
	}
	for needle, stats := range s.stats {
		if strings.Contains(geometry, needle) {
			return stats, nil
		}
	}
	return domain.VegetationIndexStats{MeanIndexBefore: 0.8, MeanIndexAfter: 0.8}, nil
}

func newScreening(f *fixture, sat SatelliteAnalysis) *DeforestationScreening {
	return &DeforestationScreening{
		Units:      f.units,
		Alerts:     f.alerts,
		Satellite:  sat,
		CutoffDate: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestScreeningMarksCleanUnitsClear(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageDeforestationCheck)
	f.addUnit("wf-1", "unit-1", true, true, false)
	s := newScreening(f, &stubSatellite{})

	result, err := s.Run(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.UnitsScreened != 1 || result.AlertsRaised != 0 {
		t.Fatalf("expected one clean screen, got %+v", result)
	}

	unit, _ := f.units.GetByID(context.Background(), "unit-1")
	if !unit.DeforestationChecked || !unit.DeforestationClear {
		t.Fatalf("expected checked and clear, got %+v", unit)
	}
	if unit.Status() != domain.UnitDeforestationClear {
		t.Fatalf("expected DEFORESTATION_CLEAR, got %s", unit.Status())
	}
}

func TestScreeningRaisesAlertBySeverity(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageDeforestationCheck)
	u := f.addUnit("wf-1", "unit-1", false, true, false)
	// 0.8 -> 0.2 is a 75% relative drop, CRITICAL territory.
	u.GeometryGeoJSON = `{"type":"Polygon","coordinates":[[[-1.5,6.1]]],"name":"hotspot"}`
	_ = f.units.Save(context.Background(), &u)
	sat := &stubSatellite{stats: map[string]domain.VegetationIndexStats{
		"hotspot": {MeanIndexBefore: 0.8, MeanIndexAfter: 0.2},
	}}
	s := newScreening(f, sat)

	result, err := s.Run(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.AlertsRaised != 1 {
		t.Fatalf("expected one alert, got %+v", result)
	}

	alerts, _ := f.alerts.ListByWorkflow(context.Background(), "wf-1")
	if len(alerts) != 1 || alerts[0].Severity != domain.AlertCritical {
		t.Fatalf("expected a CRITICAL alert, got %+v", alerts)
	}
	unit, _ := f.units.GetByID(context.Background(), "unit-1")
	if !unit.DeforestationChecked || unit.DeforestationClear {
		t.Fatalf("an alerted unit is checked but not clear, got %+v", unit)
	}
}

func TestScreeningSkipsUnlocatedAndFailedUnits(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageDeforestationCheck)
	f.addUnit("wf-1", "unit-1", false, false, false)
	s := newScreening(f, &stubSatellite{})

	result, err := s.Run(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.UnitsSkipped != 1 || result.UnitsScreened != 0 {
		t.Fatalf("an unlocated unit is skipped, got %+v", result)
	}

	f.addUnit("wf-1", "unit-2", true, true, false)
	s.Satellite = &stubSatellite{err: errors.New("scene unavailable")}
	result, err = s.Run(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("run with satellite outage: %v", err)
	}
	if result.UnitsSkipped != 2 || result.UnitsScreened != 0 {
		t.Fatalf("a satellite failure skips the unit and continues, got %+v", result)
	}
	unit, _ := f.units.GetByID(context.Background(), "unit-2")
	if unit.DeforestationChecked {
		t.Fatalf("a skipped unit must stay unchecked")
	}
}

func TestClassifyDropThresholds(t *testing.T) {
	cases := []struct {
		drop     float64
		severity domain.AlertSeverity
		raised   bool
	}{
		{0.04, "", false},
		{0.05, domain.AlertLow, true},
		{0.15, domain.AlertMedium, true},
		{0.25, domain.AlertHigh, true},
		{0.40, domain.AlertCritical, true},
		{0.90, domain.AlertCritical, true},
	}
	for _, tc := range cases {
		severity, ok := classifyDrop(tc.drop)
		if ok != tc.raised || severity != tc.severity {
			t.Fatalf("drop %v: expected %q/%v, got %q/%v", tc.drop, tc.severity, tc.raised, severity, ok)
		}
	}
}

func TestReviewAlertRestoresUnitClear(t *testing.T) {
	f := newFixture()
	f.addWorkflow("wf-1", domain.StageDeforestationCheck)
	u := f.addUnit("wf-1", "unit-1", true, true, false)
	u.DeforestationChecked = true
	_ = f.units.Save(context.Background(), &u)
	_ = f.alerts.Create(context.Background(), domain.DeforestationAlert{
		ID:         "a-1",
		WorkflowID: "wf-1",
		UnitID:     "unit-1",
		Severity:   domain.AlertMedium,
	})
	s := newScreening(f, &stubSatellite{})

	alert, err := s.ReviewAlert(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !alert.Reviewed || alert.ReviewedAt == nil {
		t.Fatalf("expected a reviewed alert, got %+v", alert)
	}

	unit, _ := f.units.GetByID(context.Background(), "unit-1")
	if !unit.DeforestationClear {
		t.Fatalf("reviewing the only alert restores the unit's clear flag")
	}

	if _, err := s.ReviewAlert(context.Background(), "nope"); !errors.Is(err, domain.ErrAlertNotFound) {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestRelativeDrop(t *testing.T) {
	cases := []struct {
		before, after, want float64
	}{
		{0.8, 0.2, 0.75},
		{0.8, 0.8, 0},
		{0.8, 0.9, 0},
		{0, 0.5, 0},
	}
	for _, tc := range cases {
		stats := domain.VegetationIndexStats{MeanIndexBefore: tc.before, MeanIndexAfter: tc.after}
		if got := stats.RelativeDrop(); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%v -> %v: expected drop %v, got %v", tc.before, tc.after, tc.want, got)
		}
	}
}
