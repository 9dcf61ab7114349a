package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"agritrace/internal/domain"
	"agritrace/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type createWorkflowRequest struct {
	ProduceType     string  `json:"produce_type"`
	TotalQuantityKG float64 `json:"total_quantity_kg"`
	OriginCountry   string  `json:"origin_country"`
	ExporterID      string  `json:"exporter_id"`
	SkipProcessing  bool    `json:"skip_processing"`
}

type workflowResponse struct {
	ID              string  `json:"id"`
	ProduceType     string  `json:"produce_type"`
	TotalQuantityKG float64 `json:"total_quantity_kg"`
	OriginCountry   string  `json:"origin_country,omitempty"`
	ExporterID      string  `json:"exporter_id"`
	ImporterID      string  `json:"importer_id,omitempty"`
	SkipProcessing  bool    `json:"skip_processing"`

	CurrentStage   string `json:"current_stage"`
	StageOrder     int    `json:"stage_order"`
	StageLabel     string `json:"stage_label"`
	StageEnteredAt string `json:"stage_entered_at"`
	Status         string `json:"status"`

	RiskScore          *float64 `json:"risk_score,omitempty"`
	RiskClassification string   `json:"risk_classification,omitempty"`
	RiskAssessedAt     string   `json:"risk_assessed_at,omitempty"`

	Certificate certificateStateResponse `json:"certificate"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type certificateStateResponse struct {
	Status        string `json:"status"`
	TxID          string `json:"tx_id,omitempty"`
	SerialNumber  int64  `json:"serial_number,omitempty"`
	AssetID       string `json:"asset_id,omitempty"`
	IssuerAccount string `json:"issuer_account,omitempty"`
	IssuedAt      string `json:"issued_at,omitempty"`
}

type registerUnitRequest struct {
	FarmerID        string   `json:"farmer_id"`
	Name            string   `json:"name"`
	Region          string   `json:"region"`
	CountryCode     string   `json:"country_code"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	GeometryGeoJSON string   `json:"geometry_geojson,omitempty"`
}

type unitResponse struct {
	ID                   string   `json:"id"`
	WorkflowID           string   `json:"workflow_id"`
	FarmerID             string   `json:"farmer_id"`
	Name                 string   `json:"name,omitempty"`
	Region               string   `json:"region,omitempty"`
	CountryCode          string   `json:"country_code,omitempty"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	GeometryGeoJSON      string   `json:"geometry_geojson,omitempty"`
	GeolocationVerified  bool     `json:"geolocation_verified"`
	DeforestationChecked bool     `json:"deforestation_checked"`
	DeforestationClear   bool     `json:"deforestation_clear"`
	Status               string   `json:"status"`
	CreatedAt            string   `json:"created_at"`
}

type collectionRequest struct {
	UnitID      string  `json:"unit_id"`
	QuantityKG  float64 `json:"quantity_kg"`
	CollectedAt string  `json:"collected_at,omitempty"`
}

type consolidationRequest struct {
	FacilityID     string  `json:"facility_id"`
	QuantityKG     float64 `json:"quantity_kg"`
	ConsolidatedAt string  `json:"consolidated_at,omitempty"`
}

type processingRequest struct {
	FacilityID  string  `json:"facility_id"`
	InputKG     float64 `json:"input_kg"`
	OutputKG    float64 `json:"output_kg"`
	ProcessedAt string  `json:"processed_at,omitempty"`
}

type shipmentRequest struct {
	Carrier     string  `json:"carrier"`
	Destination string  `json:"destination"`
	QuantityKG  float64 `json:"quantity_kg"`
	ShippedAt   string  `json:"shipped_at,omitempty"`
}

type eventResponse struct {
	ID          string  `json:"id"`
	WorkflowID  string  `json:"workflow_id"`
	Kind        string  `json:"kind"`
	UnitID      string  `json:"unit_id,omitempty"`
	FarmerID    string  `json:"farmer_id,omitempty"`
	FacilityID  string  `json:"facility_id,omitempty"`
	Carrier     string  `json:"carrier,omitempty"`
	Destination string  `json:"destination,omitempty"`
	QuantityKG  float64 `json:"quantity_kg,omitempty"`
	InputKG     float64 `json:"input_kg,omitempty"`
	OutputKG    float64 `json:"output_kg,omitempty"`
	OccurredAt  string  `json:"occurred_at"`
	LedgerTxRef string  `json:"ledger_tx_ref,omitempty"`
}

type revertRequest struct {
	Reason string `json:"reason,omitempty"`
}

type transferRequest struct {
	ImporterID string `json:"importer_id"`
}

type alertResponse struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	UnitID     string `json:"unit_id"`
	Severity   string `json:"severity"`
	AlertDate  string `json:"alert_date"`
	Source     string `json:"source,omitempty"`
	Reviewed   bool   `json:"reviewed"`
	ReviewedAt string `json:"reviewed_at,omitempty"`
}

type transitionResponse struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	FromStage  string `json:"from_stage"`
	ToStage    string `json:"to_stage"`
	Direction  string `json:"direction"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type stageResponse struct {
	Stage          string `json:"stage"`
	Order          int    `json:"order"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	RequiredAction string `json:"required_action"`
}

type issueResponse struct {
	Certificate certificateResponse     `json:"certificate"`
	Compliance  domain.ComplianceResult `json:"compliance"`
}

type certificateResponse struct {
	WorkflowID       string `json:"workflow_id"`
	Status           string `json:"status"`
	TxID             string `json:"tx_id"`
	SerialNumber     int64  `json:"serial_number"`
	AssetID          string `json:"asset_id"`
	IssuerAccount    string `json:"issuer_account"`
	TraceabilityHash string `json:"traceability_hash"`
	IssuedAt         string `json:"issued_at"`
}

func (s *Server) handleListStages(c *gin.Context) {
	descriptors := domain.Stages()
	out := make([]stageResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, stageResponse{
			Stage:          string(d.Stage),
			Order:          d.Order,
			Label:          d.Label,
			Description:    d.Description,
			RequiredAction: d.RequiredAction,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateWorkflow(c *gin.Context) {
	if s.workflows == nil {
		writeNotConfigured(c)
		return
	}
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	workflow, err := s.workflows.Create(c.Request.Context(), usecase.CreateWorkflowInput{
		ProduceType:     req.ProduceType,
		TotalQuantityKG: req.TotalQuantityKG,
		OriginCountry:   req.OriginCountry,
		ExporterID:      req.ExporterID,
		SkipProcessing:  req.SkipProcessing,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildWorkflowResponse(workflow))
}

func (s *Server) handleGetWorkflow(c *gin.Context) {
	if s.workflows == nil {
		writeNotConfigured(c)
		return
	}
	workflow, err := s.workflows.Get(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildWorkflowResponse(workflow))
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	if s.workflows == nil {
		writeNotConfigured(c)
		return
	}
	exporterID := c.Query("exporter_id")
	if exporterID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "exporter_id query parameter is required")
		return
	}
	workflows, err := s.workflows.ListByExporter(c.Request.Context(), exporterID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]workflowResponse, 0, len(workflows))
	for i := range workflows {
		out = append(out, buildWorkflowResponse(&workflows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"workflows": out})
}

func (s *Server) handleStageStatus(c *gin.Context) {
	if s.stages == nil {
		writeNotConfigured(c)
		return
	}
	status, err := s.stages.Status(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleAdvance(c *gin.Context) {
	if s.stages == nil {
		writeNotConfigured(c)
		return
	}
	result, err := s.stages.Advance(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Moved {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

func (s *Server) handleRevert(c *gin.Context) {
	if s.stages == nil {
		writeNotConfigured(c)
		return
	}
	// Body is optional; a missing reason is defaulted downstream.
	var req revertRequest
	_ = c.ShouldBindJSON(&req)
	result, err := s.stages.Revert(c.Request.Context(), c.Param("workflow_id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Moved {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

func (s *Server) handleListTransitions(c *gin.Context) {
	if s.transitions == nil {
		writeNotConfigured(c)
		return
	}
	transitions, err := s.transitions.ListByWorkflow(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]transitionResponse, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, transitionResponse{
			ID:         t.ID,
			WorkflowID: t.WorkflowID,
			FromStage:  string(t.FromStage),
			ToStage:    string(t.ToStage),
			Direction:  string(t.Direction),
			Reason:     t.Reason,
			CreatedAt:  formatTime(t.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListUnits(c *gin.Context) {
	if s.units == nil {
		writeNotConfigured(c)
		return
	}
	units, err := s.units.ListByWorkflow(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]unitResponse, 0, len(units))
	for i := range units {
		out = append(out, buildUnitResponse(&units[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRegisterUnit(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	var req registerUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	unit, err := s.recorder.RegisterProductionUnit(c.Request.Context(), usecase.RegisterUnitInput{
		WorkflowID:      c.Param("workflow_id"),
		FarmerID:        req.FarmerID,
		Name:            req.Name,
		Region:          req.Region,
		CountryCode:     req.CountryCode,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		GeometryGeoJSON: req.GeometryGeoJSON,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildUnitResponse(unit))
}

func (s *Server) handleVerifyGeolocation(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	unit, err := s.recorder.VerifyGeolocation(c.Request.Context(), c.Param("unit_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildUnitResponse(unit))
}

func (s *Server) handleDeleteUnit(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	if err := s.recorder.DeleteProductionUnit(c.Request.Context(), c.Param("unit_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRecordCollection(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	collectedAt, ok := parseOptionalTime(c, req.CollectedAt)
	if !ok {
		return
	}
	event, err := s.recorder.RecordCollection(c.Request.Context(), usecase.CollectionInput{
		WorkflowID:  c.Param("workflow_id"),
		UnitID:      req.UnitID,
		QuantityKG:  req.QuantityKG,
		CollectedAt: collectedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventResponse{
		ID:          event.ID,
		WorkflowID:  event.WorkflowID,
		Kind:        string(domain.EventCollection),
		UnitID:      event.UnitID,
		FarmerID:    event.FarmerID,
		QuantityKG:  event.QuantityKG,
		OccurredAt:  formatTime(event.CollectedAt),
		LedgerTxRef: event.LedgerTxRef,
	})
}

func (s *Server) handleRecordConsolidation(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	var req consolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	consolidatedAt, ok := parseOptionalTime(c, req.ConsolidatedAt)
	if !ok {
		return
	}
	event, err := s.recorder.RecordConsolidation(c.Request.Context(), usecase.ConsolidationInput{
		WorkflowID:     c.Param("workflow_id"),
		FacilityID:     req.FacilityID,
		QuantityKG:     req.QuantityKG,
		ConsolidatedAt: consolidatedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventResponse{
		ID:          event.ID,
		WorkflowID:  event.WorkflowID,
		Kind:        string(domain.EventConsolidation),
		FacilityID:  event.FacilityID,
		QuantityKG:  event.QuantityKG,
		OccurredAt:  formatTime(event.ConsolidatedAt),
		LedgerTxRef: event.LedgerTxRef,
	})
}

func (s *Server) handleRecordProcessing(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	var req processingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	processedAt, ok := parseOptionalTime(c, req.ProcessedAt)
	if !ok {
		return
	}
	event, err := s.recorder.RecordProcessing(c.Request.Context(), usecase.ProcessingInput{
		WorkflowID:  c.Param("workflow_id"),
		FacilityID:  req.FacilityID,
		InputKG:     req.InputKG,
		OutputKG:    req.OutputKG,
		ProcessedAt: processedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventResponse{
		ID:          event.ID,
		WorkflowID:  event.WorkflowID,
		Kind:        string(domain.EventProcessing),
		FacilityID:  event.FacilityID,
		InputKG:     event.InputKG,
		OutputKG:    event.OutputKG,
		OccurredAt:  formatTime(event.ProcessedAt),
		LedgerTxRef: event.LedgerTxRef,
	})
}

func (s *Server) handleRecordShipment(c *gin.Context) {
	if s.recorder == nil {
		writeNotConfigured(c)
		return
	}
	var req shipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	shippedAt, ok := parseOptionalTime(c, req.ShippedAt)
	if !ok {
		return
	}
	event, err := s.recorder.RecordShipment(c.Request.Context(), usecase.ShipmentInput{
		WorkflowID:  c.Param("workflow_id"),
		Carrier:     req.Carrier,
		Destination: req.Destination,
		QuantityKG:  req.QuantityKG,
		ShippedAt:   shippedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventResponse{
		ID:          event.ID,
		WorkflowID:  event.WorkflowID,
		Kind:        string(domain.EventShipment),
		Carrier:     event.Carrier,
		Destination: event.Destination,
		QuantityKG:  event.QuantityKG,
		OccurredAt:  formatTime(event.ShippedAt),
		LedgerTxRef: event.LedgerTxRef,
	})
}

func (s *Server) handleRunScreening(c *gin.Context) {
	if s.screening == nil {
		writeNotConfigured(c)
		return
	}
	result, err := s.screening.Run(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	if s.alerts == nil {
		writeNotConfigured(c)
		return
	}
	alerts, err := s.alerts.ListByWorkflow(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, buildAlertResponse(&alerts[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleReviewAlert(c *gin.Context) {
	if s.screening == nil {
		writeNotConfigured(c)
		return
	}
	alert, err := s.screening.ReviewAlert(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildAlertResponse(alert))
}

func (s *Server) handleAssessRisk(c *gin.Context) {
	if s.risk == nil {
		writeNotConfigured(c)
		return
	}
	assessment, err := s.risk.Assess(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleValidateCertificate(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	result, err := s.gate.ValidateForCertificate(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleIssueCertificate(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	record, compliance, err := s.gate.Issue(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeIssuanceError(c, compliance, err)
		return
	}
	c.JSON(http.StatusCreated, issueResponse{
		Certificate: buildCertificateResponse(record),
		Compliance:  *compliance,
	})
}

func (s *Server) handleIssueCertificateAsync(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	compliance, err := s.gate.IssueAsync(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeIssuanceError(c, compliance, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"workflow_id": c.Param("workflow_id"),
		"status":      string(domain.CertificatePendingVerification),
		"compliance":  compliance,
	})
}

func (s *Server) handleTransferCertificate(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	workflow, err := s.gate.Transfer(c.Request.Context(), c.Param("workflow_id"), req.ImporterID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildWorkflowResponse(workflow))
}

func (s *Server) handleCertificateInTransit(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	s.markCertificate(c, s.gate.MarkInTransit)
}

func (s *Server) handleCertificateCustomsVerified(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	s.markCertificate(c, s.gate.MarkCustomsVerified)
}

func (s *Server) handleCertificateDelivered(c *gin.Context) {
	if s.gate == nil {
		writeNotConfigured(c)
		return
	}
	s.markCertificate(c, s.gate.MarkDelivered)
}

func (s *Server) markCertificate(c *gin.Context, mark func(ctx context.Context, workflowID string) (*domain.Workflow, error)) {
	workflow, err := mark(c.Request.Context(), c.Param("workflow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildWorkflowResponse(workflow))
}

func buildWorkflowResponse(w *domain.Workflow) workflowResponse {
	descriptor := w.CurrentStage.Descriptor()
	out := workflowResponse{
		ID:              w.ID,
		ProduceType:     w.ProduceType,
		TotalQuantityKG: w.TotalQuantityKG,
		OriginCountry:   w.OriginCountry,
		ExporterID:      w.ExporterID,
		ImporterID:      w.ImporterID,
		SkipProcessing:  w.SkipProcessing,
		CurrentStage:    string(w.CurrentStage),
		StageOrder:      descriptor.Order,
		StageLabel:      descriptor.Label,
		StageEnteredAt:  formatTime(w.StageEnteredAt),
		Status:          string(w.Status),
		RiskScore:       w.RiskScore,
		Certificate: certificateStateResponse{
			Status:        string(w.CertificateStatus),
			TxID:          w.CertificateTxID,
			SerialNumber:  w.CertificateSerial,
			AssetID:       w.CertificateAssetID,
			IssuerAccount: w.IssuerAccount,
		},
		CreatedAt: formatTime(w.CreatedAt),
		UpdatedAt: formatTime(w.UpdatedAt),
	}
	if w.RiskClassification != nil {
		out.RiskClassification = string(*w.RiskClassification)
	}
	if w.RiskAssessedAt != nil {
		out.RiskAssessedAt = formatTime(*w.RiskAssessedAt)
	}
	if w.CertificateIssuedAt != nil {
		out.Certificate.IssuedAt = formatTime(*w.CertificateIssuedAt)
	}
	return out
}

func buildUnitResponse(u *domain.ProductionUnitLink) unitResponse {
	return unitResponse{
		ID:                   u.ID,
		WorkflowID:           u.WorkflowID,
		FarmerID:             u.FarmerID,
		Name:                 u.Name,
		Region:               u.Region,
		CountryCode:          u.CountryCode,
		Latitude:             u.Latitude,
		Longitude:            u.Longitude,
		GeometryGeoJSON:      u.GeometryGeoJSON,
		GeolocationVerified:  u.GeolocationVerified,
		DeforestationChecked: u.DeforestationChecked,
		DeforestationClear:   u.DeforestationClear,
		Status:               string(u.Status()),
		CreatedAt:            formatTime(u.CreatedAt),
	}
}

func buildAlertResponse(a *domain.DeforestationAlert) alertResponse {
	out := alertResponse{
		ID:         a.ID,
		WorkflowID: a.WorkflowID,
		UnitID:     a.UnitID,
		Severity:   string(a.Severity),
		AlertDate:  formatTime(a.AlertDate),
		Source:     a.Source,
		Reviewed:   a.Reviewed,
	}
	if a.ReviewedAt != nil {
		out.ReviewedAt = formatTime(*a.ReviewedAt)
	}
	return out
}

func buildCertificateResponse(record *domain.CertificateRecord) certificateResponse {
	return certificateResponse{
		WorkflowID:       record.WorkflowID,
		Status:           string(record.Status),
		TxID:             record.TxID,
		SerialNumber:     record.SerialNumber,
		AssetID:          record.AssetID,
		IssuerAccount:    record.IssuerAccount,
		TraceabilityHash: record.TraceabilityHash,
		IssuedAt:         formatTime(record.IssuedAt),
	}
}

func parseOptionalTime(c *gin.Context, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "invalid timestamp")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeIssuanceError(c *gin.Context, compliance *domain.ComplianceResult, err error) {
	if errors.Is(err, domain.ErrIssuanceBlocked) && compliance != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Code:    "ISSUANCE_BLOCKED",
			Message: err.Error(),
			Details: map[string]any{"failure_reasons": compliance.FailureReasons},
		})
		return
	}
	writeError(c, err)
}

func writeNotConfigured(c *gin.Context) {
	writeErrorCode(c, http.StatusServiceUnavailable, "NOT_CONFIGURED", "dependency not configured")
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrWorkflowNotFound):
		status, code = http.StatusNotFound, "WORKFLOW_NOT_FOUND"
	case errors.Is(err, domain.ErrUnitNotFound):
		status, code = http.StatusNotFound, "UNIT_NOT_FOUND"
	case errors.Is(err, domain.ErrAlertNotFound):
		status, code = http.StatusNotFound, "ALERT_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientQuantity):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_QUANTITY"
	case errors.Is(err, domain.ErrUnitReferenced):
		status, code = http.StatusConflict, "UNIT_REFERENCED"
	case errors.Is(err, domain.ErrCertificateState):
		status, code = http.StatusConflict, "CERTIFICATE_STATE"
	case errors.Is(err, domain.ErrIssuanceBlocked):
		status, code = http.StatusUnprocessableEntity, "ISSUANCE_BLOCKED"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		status, code = http.StatusBadGateway, "LEDGER_UNAVAILABLE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
