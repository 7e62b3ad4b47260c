package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/msenthi7/medical-chatbot/internal/rag"
	"github.com/msenthi7/medical-chatbot/services/providers"
	"github.com/msenthi7/medical-chatbot/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse describes the running service
type StatusResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Index       string `json:"index"`
	Documents   *int   `json:"documents,omitempty"`
}

// IndexStatter reports vector index statistics
type IndexStatter interface {
	Stats(ctx context.Context) (*rag.IndexStats, error)
}

// ProviderLookup resolves chat providers by name
type ProviderLookup interface {
	GetProvider(name string) (providers.Provider, error)
}

// HealthConfig holds the dependencies probed by HealthHandler. DB and Index
// may be nil when those components are not configured.
type HealthConfig struct {
	DB          *sql.DB
	Index       IndexStatter
	Providers   ProviderLookup
	Provider    string
	Model       string
	IndexName   string
	Version     string
	Environment string
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	config HealthConfig
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(config HealthConfig, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config: config,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only; returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.config.DB != nil {
		if err := h.checkDatabase(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.config.Index == nil {
		checks["vector_index"] = "not_configured"
		allHealthy = false
	} else if _, err := h.config.Index.Stats(ctx); err != nil {
		h.logger.Warn("vector index health check failed", zap.Error(err))
		checks["vector_index"] = "unhealthy"
		allHealthy = false
	} else {
		checks["vector_index"] = "healthy"
	}

	if _, err := h.config.Providers.GetProvider(h.config.Provider); err != nil {
		checks["provider"] = "not_configured"
		allHealthy = false
	} else {
		checks["provider"] = "configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	_ = utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}})
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{
		Version:     h.config.Version,
		Environment: h.config.Environment,
		Provider:    h.config.Provider,
		Model:       h.config.Model,
		Index:       h.config.IndexName,
	}

	if h.config.Index != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if stats, err := h.config.Index.Stats(ctx); err == nil {
			status.Documents = &stats.VectorCount
		}
	}

	_ = utils.WriteOK(w, status)
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.config.DB.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.config.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
