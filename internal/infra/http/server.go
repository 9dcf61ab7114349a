package http

import (
	"context"
	"log"
	"net/http"

	"agritrace/internal/config"
	"agritrace/internal/infra/db"
	"agritrace/internal/infra/ledger/gateway"
	"agritrace/internal/infra/policyopa"
	"agritrace/internal/infra/risktable"
	"agritrace/internal/infra/satellite"
	"agritrace/internal/infra/stagecache"
	"agritrace/internal/infra/tasks"
	"agritrace/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	workflows *usecase.WorkflowService
	stages    *usecase.StageService
	recorder  *usecase.TraceabilityRecorder
	screening *usecase.DeforestationScreening
	risk      *usecase.RiskEngine
	gate      *usecase.CertificateGate

	units       usecase.ProductionUnitRepository
	alerts      usecase.AlertRepository
	transitions usecase.StageTransitionRepository

	pool *tasks.Pool

	initErr error
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Workflows *usecase.WorkflowService
	Stages    *usecase.StageService
	Recorder  *usecase.TraceabilityRecorder
	Screening *usecase.DeforestationScreening
	Risk      *usecase.RiskEngine
	Gate      *usecase.CertificateGate

	Units       usecase.ProductionUnitRepository
	Alerts      usecase.AlertRepository
	Transitions usecase.StageTransitionRepository
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		workflows:   deps.Workflows,
		stages:      deps.Stages,
		recorder:    deps.Recorder,
		screening:   deps.Screening,
		risk:        deps.Risk,
		gate:        deps.Gate,
		units:       deps.Units,
		alerts:      deps.Alerts,
		transitions: deps.Transitions,
	}
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var (
		workflowRepo   *db.WorkflowRepository
		unitRepo       *db.ProductionUnitRepository
		eventRepo      *db.TraceabilityEventRepository
		alertRepo      *db.AlertRepository
		transitionRepo *db.StageTransitionRepository
	)
	if s.store != nil {
		// The repositories tolerate a nil DB and report it per call,
		// so no-db mode still serves well-formed errors.
		workflowRepo = db.NewWorkflowRepository(s.store.DB)
		unitRepo = db.NewProductionUnitRepository(s.store.DB)
		eventRepo = db.NewTraceabilityEventRepository(s.store.DB)
		alertRepo = db.NewAlertRepository(s.store.DB)
		transitionRepo = db.NewStageTransitionRepository(s.store.DB)
	}

	loader := &usecase.SnapshotLoader{
		Workflows: workflowRepo,
		Units:     unitRepo,
		Events:    eventRepo,
		Alerts:    alertRepo,
	}

	var cache usecase.StageStatusCache
	if s.cfg.RedisAddr != "" {
		if redisCache, err := stagecache.NewRedis(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB); err == nil {
			cache = redisCache
		}
	}
	if cache == nil {
		cache = stagecache.NewMemory()
	}

	s.pool = tasks.NewPool(s.cfg.AsyncWorkers, s.cfg.AsyncQueueSize)

	var ledger *gateway.Client
	if s.cfg.LedgerGatewayURL != "" {
		client, err := gateway.NewClient(s.cfg.LedgerGatewayURL, s.cfg.LedgerAPIKey, nil)
		if err != nil {
			s.initErr = err
			return
		}
		ledger = client
	}

	var policy usecase.ExportPolicy
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			s.initErr = err
			return
		}
		policy = engine
	}

	riskEngine := &usecase.RiskEngine{
		Workflows: workflowRepo,
		Loader:    loader,
		Countries: risktable.NewStatic(),
	}

	s.workflows = &usecase.WorkflowService{Workflows: workflowRepo}
	s.stages = &usecase.StageService{
		Workflows:   workflowRepo,
		Loader:      loader,
		Validator:   &usecase.StageValidator{},
		Risk:        riskEngine,
		Transitions: transitionRepo,
		Cache:       cache,
		CacheTTL:    s.cfg.CacheTTL(),
	}
	s.recorder = &usecase.TraceabilityRecorder{
		Workflows: workflowRepo,
		Units:     unitRepo,
		Events:    eventRepo,
		Loader:    loader,
		Tasks:     s.pool,
		Cache:     cache,
	}
	if ledger != nil {
		s.recorder.Ledger = ledger
	}
	if s.cfg.SatelliteURL != "" {
		sat, err := satellite.NewClient(s.cfg.SatelliteURL, nil)
		if err != nil {
			s.initErr = err
			return
		}
		s.screening = &usecase.DeforestationScreening{
			Units:      unitRepo,
			Alerts:     alertRepo,
			Satellite:  sat,
			Cache:      cache,
			CutoffDate: s.cfg.Cutoff(),
		}
	}
	s.risk = riskEngine
	s.gate = &usecase.CertificateGate{
		Workflows:     workflowRepo,
		Loader:        loader,
		Risk:          riskEngine,
		Policy:        policy,
		Tasks:         s.pool,
		Cache:         cache,
		CutoffDate:    s.cfg.Cutoff(),
		IssuerAccount: s.cfg.IssuerAccount,
	}
	if ledger != nil {
		s.gate.Ledger = ledger
		s.gate.Accounts = ledger
	} else {
		log.Printf("ledger gateway not configured, certificate issuance disabled")
	}
	s.units = unitRepo
	s.alerts = alertRepo
	s.transitions = transitionRepo
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.GET("/stages", s.handleListStages)

		v1.POST("/workflows", s.handleCreateWorkflow)
		v1.GET("/workflows", s.handleListWorkflows)
		v1.GET("/workflows/:workflow_id", s.handleGetWorkflow)
		v1.GET("/workflows/:workflow_id/status", s.handleStageStatus)
		v1.POST("/workflows/:workflow_id/advance", s.handleAdvance)
		v1.POST("/workflows/:workflow_id/revert", s.handleRevert)
		v1.GET("/workflows/:workflow_id/transitions", s.handleListTransitions)

		v1.GET("/workflows/:workflow_id/units", s.handleListUnits)
		v1.POST("/workflows/:workflow_id/units", s.handleRegisterUnit)
		v1.POST("/units/:unit_id/verify-geolocation", s.handleVerifyGeolocation)
		v1.DELETE("/units/:unit_id", s.handleDeleteUnit)

		v1.POST("/workflows/:workflow_id/events/collection", s.handleRecordCollection)
		v1.POST("/workflows/:workflow_id/events/consolidation", s.handleRecordConsolidation)
		v1.POST("/workflows/:workflow_id/events/processing", s.handleRecordProcessing)
		v1.POST("/workflows/:workflow_id/events/shipment", s.handleRecordShipment)

		v1.POST("/workflows/:workflow_id/screening", s.handleRunScreening)
		v1.GET("/workflows/:workflow_id/alerts", s.handleListAlerts)
		v1.POST("/alerts/:alert_id/review", s.handleReviewAlert)

		v1.POST("/workflows/:workflow_id/risk", s.handleAssessRisk)

		v1.GET("/workflows/:workflow_id/certificate/validate", s.handleValidateCertificate)
		v1.POST("/workflows/:workflow_id/certificate/issue", s.handleIssueCertificate)
		v1.POST("/workflows/:workflow_id/certificate/issue-async", s.handleIssueCertificateAsync)
		v1.POST("/workflows/:workflow_id/certificate/transfer", s.handleTransferCertificate)
		v1.POST("/workflows/:workflow_id/certificate/in-transit", s.handleCertificateInTransit)
		v1.POST("/workflows/:workflow_id/certificate/customs-verified", s.handleCertificateCustomsVerified)
		v1.POST("/workflows/:workflow_id/certificate/delivered", s.handleCertificateDelivered)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) Stop() {
	if s.pool != nil {
		s.pool.Stop()
	}
}
