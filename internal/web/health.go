package web

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	httputil "voucherdesk/pkg/http"
	"voucherdesk/pkg/logger"
)

const readyTimeout = 2 * time.Second

type BackendPinger interface {
	Ping(ctx context.Context) error
}

type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend,omitempty"`
	Database string `json:"database,omitempty"`
}

type HealthHandler struct {
	backend BackendPinger
	mongo   MongoPinger
	log     *logger.Logger
}

func NewHealthHandler(backend BackendPinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		log:     log,
	}
}

// WithMongo adds the audit database to the readiness probe.
func (h *HealthHandler) WithMongo(mongo MongoPinger) *HealthHandler {
	h.mongo = mongo
	return h
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Backend: "ok"}
	status := http.StatusOK

	if err := h.backend.Ping(ctx); err != nil {
		h.log.Error("Backend health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Backend = "error"
		status = http.StatusServiceUnavailable
	}

	if h.mongo != nil {
		resp.Database = "ok"
		if err := h.mongo.Ping(ctx, nil); err != nil {
			h.log.Error("Database health check failed",
				"error", err,
				"path", r.URL.Path,
			)
			resp.Database = "error"
			status = http.StatusServiceUnavailable
		}
	}

	if status != http.StatusOK {
		resp.Status = "unavailable"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
