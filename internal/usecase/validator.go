package usecase

import (
	"fmt"

	"agritrace/internal/domain"
)

// StageValidator checks the preconditions of a single stage against a
// traceability snapshot. Unmet preconditions come back as failed items,
// never as errors; the caller decides whether an empty blocker list is
// permission to proceed.
type StageValidator struct{}

func (v *StageValidator) Validate(snap *TraceabilitySnapshot, stage domain.Stage) []domain.ValidationItem {
	switch stage {
	case domain.StageProductionRegistration:
		return v.validateRegistration(snap)
	case domain.StageGeolocationVerification:
		return v.validateGeolocation(snap)
	case domain.StageDeforestationCheck:
		return v.validateDeforestation(snap)
	case domain.StageCollectionAggregation:
		return v.validateCollection(snap)
	case domain.StageProcessing:
		return v.validateProcessing(snap)
	case domain.StageRiskAssessment:
		// Auto-computed on stage entry; the real risk block lives in the
		// certificate gate.
		return []domain.ValidationItem{{
			Requirement: "risk assessment computed",
			Passed:      true,
			Detail:      "computed automatically on stage entry",
		}}
	case domain.StageDueDiligenceStatement:
		return v.validateDueDiligence(snap)
	case domain.StageExport:
		return v.validateExport(snap)
	case domain.StageCustomsClearance:
		return v.validateCertificateState(snap, "certificate verified by customs", domain.CertificateCustomsVerified)
	case domain.StageDelivery:
		return v.validateCertificateState(snap, "certificate marked delivered", domain.CertificateDelivered)
	}
	return nil
}

// Blockers flattens the failed items of Validate into advisory strings.
func (v *StageValidator) Blockers(snap *TraceabilitySnapshot, stage domain.Stage) []string {
	return BlockersFromItems(v.Validate(snap, stage))
}

func BlockersFromItems(items []domain.ValidationItem) []string {
	var blockers []string
	for _, item := range items {
		if item.Passed {
			continue
		}
		if item.Detail != "" {
			blockers = append(blockers, item.Requirement+": "+item.Detail)
		} else {
			blockers = append(blockers, item.Requirement)
		}
	}
	return blockers
}

func (v *StageValidator) validateRegistration(snap *TraceabilitySnapshot) []domain.ValidationItem {
	items := []domain.ValidationItem{{
		Requirement: "at least one production unit linked",
		Passed:      len(snap.Units) > 0,
	}}
	if len(snap.Units) == 0 {
		return items
	}
	located := true
	for i := range snap.Units {
		u := &snap.Units[i]
		if u.HasLocation() {
			continue
		}
		located = false
		items = append(items, domain.ValidationItem{
			Requirement: "production unit has coordinates or geometry",
			Passed:      false,
			Detail:      unitLabel(u),
		})
	}
	if located {
		items = append(items, domain.ValidationItem{
			Requirement: "production unit has coordinates or geometry",
			Passed:      true,
			Detail:      fmt.Sprintf("%d units located", len(snap.Units)),
		})
	}
	return items
}

func (v *StageValidator) validateGeolocation(snap *TraceabilitySnapshot) []domain.ValidationItem {
	if len(snap.Units) == 0 {
		return []domain.ValidationItem{{
			Requirement: "at least one production unit linked",
			Passed:      false,
		}}
	}
	var items []domain.ValidationItem
	for i := range snap.Units {
		u := &snap.Units[i]
		if !u.GeolocationVerified {
			items = append(items, domain.ValidationItem{
				Requirement: "production unit geolocation verified",
				Passed:      false,
				Detail:      unitLabel(u),
			})
		}
	}
	if len(items) == 0 {
		items = append(items, domain.ValidationItem{
			Requirement: "production unit geolocation verified",
			Passed:      true,
			Detail:      fmt.Sprintf("%d units verified", len(snap.Units)),
		})
	}
	return items
}

func (v *StageValidator) validateDeforestation(snap *TraceabilitySnapshot) []domain.ValidationItem {
	var items []domain.ValidationItem
	unreviewed := snap.UnreviewedAlerts()
	item := domain.ValidationItem{
		Requirement: "no unreviewed deforestation alert",
		Passed:      len(unreviewed) == 0,
	}
	if len(unreviewed) > 0 {
		item.Detail = fmt.Sprintf("%d alerts awaiting review", len(unreviewed))
	}
	items = append(items, item)

	unchecked := 0
	for i := range snap.Units {
		if !snap.Units[i].DeforestationChecked {
			unchecked++
		}
	}
	checked := domain.ValidationItem{
		Requirement: "deforestation screening completed for every unit",
		Passed:      len(snap.Units) > 0 && unchecked == 0,
	}
	if unchecked > 0 {
		checked.Detail = fmt.Sprintf("%d units not screened", unchecked)
	} else if len(snap.Units) == 0 {
		checked.Detail = "no production units linked"
	}
	items = append(items, checked)
	return items
}

func (v *StageValidator) validateCollection(snap *TraceabilitySnapshot) []domain.ValidationItem {
	return []domain.ValidationItem{{
		Requirement: "at least one collection event recorded",
		Passed:      len(snap.Collections) > 0,
	}}
}

// Processing is optional: an empty processing set is a skip, not a gap.
func (v *StageValidator) validateProcessing(snap *TraceabilitySnapshot) []domain.ValidationItem {
	detail := fmt.Sprintf("%d processing events recorded", len(snap.Processings))
	if len(snap.Processings) == 0 {
		detail = "skipped"
	}
	return []domain.ValidationItem{{
		Requirement: "processing recorded or skipped",
		Passed:      true,
		Detail:      detail,
	}}
}

func (v *StageValidator) validateDueDiligence(snap *TraceabilitySnapshot) []domain.ValidationItem {
	items := []domain.ValidationItem{{
		Requirement: "risk assessment computed",
		Passed:      snap.Workflow.RiskAssessed(),
	}}
	items = append(items, domain.ValidationItem{
		Requirement: "compliance certificate created",
		Passed:      snap.Workflow.CertificateStatus != domain.CertificateNotCreated,
		Detail:      string(snap.Workflow.CertificateStatus),
	})
	return items
}

func (v *StageValidator) validateExport(snap *TraceabilitySnapshot) []domain.ValidationItem {
	items := []domain.ValidationItem{{
		Requirement: "shipment event recorded",
		Passed:      len(snap.Shipments) > 0,
	}}
	items = append(items, domain.ValidationItem{
		Requirement: "certificate transferred to importer",
		Passed:      snap.Workflow.CertificateStatus.AtLeast(domain.CertificateTransferredToImporter),
		Detail:      string(snap.Workflow.CertificateStatus),
	})
	return items
}

func (v *StageValidator) validateCertificateState(snap *TraceabilitySnapshot, requirement string, want domain.CertificateStatus) []domain.ValidationItem {
	return []domain.ValidationItem{{
		Requirement: requirement,
		Passed:      snap.Workflow.CertificateStatus.AtLeast(want),
		Detail:      string(snap.Workflow.CertificateStatus),
	}}
}

func unitLabel(u *domain.ProductionUnitLink) string {
	if u.Name != "" {
		return u.Name + " (" + u.ID + ")"
	}
	return u.ID
}
