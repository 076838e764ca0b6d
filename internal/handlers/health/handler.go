package health

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/newsinsight.net/internal/handlers"
)

// HealthHandler reports liveness of the orchestrator
type HealthHandler struct {
	orchestratorDone <-chan struct{}
}

// NewHealthHandler creates a health handler; done is closed once the orchestrator stopped
func NewHealthHandler(done <-chan struct{}) *HealthHandler {
	return &HealthHandler{orchestratorDone: done}
}

// RegisterRoutes registers the API routes for HealthHandler
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
}

// Health answers 200 while the orchestrator runs and 503 after it stopped
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-h.orchestratorDone:
		handlers.ResponseError(w, "orchestrator stopped", http.StatusServiceUnavailable)
	default:
		handlers.ResponseWithJson(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
