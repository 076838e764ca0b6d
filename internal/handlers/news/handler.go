package news

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/handlers"
)

// NewsHandler serves the request/response search and analysis routes
type NewsHandler struct {
	orchestrator orchestrator.IOrchestrator
	logger       primary.Logger
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(orch orchestrator.IOrchestrator, logger primary.Logger) *NewsHandler {
	return &NewsHandler{
		orchestrator: orch,
		logger:       logger,
	}
}

// RegisterRoutes registers the API routes for NewsHandler
func (h *NewsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/search", h.task(domain.TaskSentiment)).Methods("GET")
	router.HandleFunc("/api/search/plain", h.task(domain.TaskPlainSearch)).Methods("GET")
	router.HandleFunc("/api/readability", h.task(domain.TaskReadability)).Methods("GET")
	router.HandleFunc("/api/wordstats", h.task(domain.TaskWordStats)).Methods("GET")
	router.HandleFunc("/api/sources", h.ListSources).Methods("GET")
	router.HandleFunc("/api/sources/{sourceId}/articles", h.SourceProfile).Methods("GET")
}

// task builds a handler dispatching one job of kind per request
func (h *NewsHandler) task(kind domain.TaskKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := domain.NewJob(kind, handlers.JobParamsFromQuery(r.URL.Query()))
		h.dispatch(w, r, job)
	}
}

// SourceProfile lists the latest articles of one source
func (h *NewsHandler) SourceProfile(w http.ResponseWriter, r *http.Request) {
	params := handlers.JobParamsFromQuery(r.URL.Query())
	params.Sources = mux.Vars(r)["sourceId"]
	// the API rejects a source filter combined with country or category
	params.Country, params.Category = "", ""
	h.dispatch(w, r, domain.NewJob(domain.TaskSourceProfile, params))
}

// ListSources returns the source catalog
func (h *NewsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := h.orchestrator.ListSources(r.Context(), domain.SourceFilter{
		Language: q.Get("language"),
		Category: q.Get("category"),
		Country:  q.Get("country"),
	})
	handlers.ResponseResult(w, res)
}

func (h *NewsHandler) dispatch(w http.ResponseWriter, r *http.Request, job domain.Job) {
	if err := job.Validate(); err != nil {
		handlers.ResponseErr(w, err)
		return
	}

	res := h.orchestrator.HandleRequest(r.Context(), job)
	if !res.OK() {
		h.logger.Warn("Request failed", "jobId", job.ID, "kind", job.Kind, "status", res.Status(), "code", res.Failure.Code)
	}
	handlers.ResponseResult(w, res)
}
