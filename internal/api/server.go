// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cryptofolio/internal/analytics"
	"github.com/cryptofolio/internal/logging"
	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/service"
	"github.com/cryptofolio/internal/types"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the interface for portfolio service operations
type PortfolioServiceInterface interface {
	CreatePortfolio(ctx context.Context, input *service.CreatePortfolioInput) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID, userID string) error
	GetPositions(ctx context.Context, portfolioID, userID string) ([]analytics.Position, error)
	GetSummary(ctx context.Context, portfolioID, userID string) (*analytics.Summary, error)
	GetPerformers(ctx context.Context, portfolioID, userID string) (*service.PerformersView, error)
}

// TransactionServiceInterface defines the interface for ledger operations
type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error)
	ListTransactions(ctx context.Context, portfolioID, userID string, since *time.Time) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID, portfolioID, userID string) error
}

// CompareServiceInterface defines the interface for comparison charts
type CompareServiceInterface interface {
	Compare(ctx context.Context, input *service.CompareInput) (*service.CompareView, error)
}

// SnapshotServiceInterface defines the interface for snapshot operations
type SnapshotServiceInterface interface {
	Ingest(ctx context.Context, snapshots []models.PriceSnapshot) (int, error)
	GetSeries(ctx context.Context, assetKey string, frame types.TimeFrame) ([]models.PriceSnapshot, error)
}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	portfolioService   PortfolioServiceInterface
	transactionService TransactionServiceInterface
	compareService     CompareServiceInterface
	snapshotService    SnapshotServiceInterface
	config             *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	portfolioService PortfolioServiceInterface,
	transactionService TransactionServiceInterface,
	compareService CompareServiceInterface,
	snapshotService SnapshotServiceInterface,
) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		portfolioService:   portfolioService,
		transactionService: transactionService,
		compareService:     compareService,
		snapshotService:    snapshotService,
		config:             config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolios", s.handleCreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios", s.handleListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios/{id}", s.handleDeletePortfolio).Methods("DELETE")
	api.HandleFunc("/portfolios/{id}/summary", s.handleGetSummary).Methods("GET")
	api.HandleFunc("/portfolios/{id}/positions", s.handleGetPositions).Methods("GET")
	api.HandleFunc("/portfolios/{id}/performers", s.handleGetPerformers).Methods("GET")

	// Transaction endpoints
	api.HandleFunc("/portfolios/{id}/transactions", s.handleCreateTransaction).Methods("POST")
	api.HandleFunc("/portfolios/{id}/transactions", s.handleListTransactions).Methods("GET")
	api.HandleFunc("/portfolios/{id}/transactions/{txId}", s.handleDeleteTransaction).Methods("DELETE")

	// Chart endpoints
	api.HandleFunc("/compare", s.handleCompare).Methods("GET")
	api.HandleFunc("/assets/{key}/series", s.handleGetSeries).Methods("GET")

	// Snapshot ingestion
	api.HandleFunc("/snapshots", s.handleIngestSnapshots).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "cryptofolio",
	})
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithFields(map[string]interface{}{
		"addr": s.httpServer.Addr,
	}).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
