// Package api exposes the marketing data pipeline over HTTP. Uploaded and derived tables
// live in a handle-keyed store; every route reads or writes tables through it.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/ingestion"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/normalize"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/quality"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/report"
)

// PreviewRows is the number of rows returned alongside upload and transform responses
const PreviewRows = 20

// Services are the pipeline components the server drives
type Services struct {
	Ingestion  *ingestion.Service
	Normalizer *normalize.Normalizer
	Merger     *dataset.Merger
	Quality    *quality.Checker
	Reports    *report.Generator
	Store      dataset.TableStore
}

// Config holds server settings
type Config struct {
	MaxUploadBytes int64
	TargetCurrency string
}

// Server routes HTTP requests onto the pipeline
type Server struct {
	router *chi.Mux
	svc    Services
	config Config
	clock  core.Clock
	logger *internal.Logger
}

// NewServer creates a server with its middleware and routes installed
func NewServer(svc Services, config Config, clock core.Clock, logger *internal.Logger) *Server {
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 50 << 20
	}
	if config.TargetCurrency == "" {
		config.TargetCurrency = "USD"
	}
	s := &Server{
		router: chi.NewRouter(),
		svc:    svc,
		config: config,
		clock:  clock,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)

	// Ingestion
	s.router.Post("/api/upload", s.handleUpload)
	s.router.Post("/api/upload-multiple", s.handleUploadMultiple)
	s.router.Get("/api/sample-data", s.handleSampleData)

	// Transforms
	s.router.Post("/api/normalize/{id}", s.handleNormalize)
	s.router.Post("/api/merge", s.handleMerge)
	s.router.Post("/api/unified", s.handleUnified)
	s.router.Get("/api/aggregate/date/{id}", s.handleAggregateDate)
	s.router.Get("/api/aggregate/campaign/{id}", s.handleAggregateCampaign)
	s.router.Get("/api/compare/platforms/{id}", s.handleComparePlatforms)

	// Quality
	s.router.Get("/api/quality/check/{id}", s.handleQualityCheck)
	s.router.Get("/api/quality/anomalies/{id}", s.handleAnomalies)

	// Reports
	s.router.Post("/api/report/excel/{id}", s.handleReportExcel)
	s.router.Post("/api/report/html/{id}", s.handleReportHTML)
	s.router.Post("/api/report/pdf/{id}", s.handleReportHTML)
	s.router.Get("/api/export/csv/{id}", s.handleExportCSV)
	s.router.Get("/api/download/{filename}", s.handleDownload)

	// Stored tables
	s.router.Get("/api/data", s.handleListData)
	s.router.Get("/api/data/{id}", s.handleGetData)
	s.router.Delete("/api/data/{id}", s.handleDeleteData)
	s.router.Get("/api/data/{id}/stats", s.handleDataStats)
	s.router.Get("/api/history/{kind}", s.handleHistory)
}

// lookup resolves the {id} URL parameter to a stored table
func (s *Server) lookup(r *http.Request) (*dataset.StoredTable, error) {
	h, err := core.ParseHandle(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return s.svc.Store.Get(h)
}
