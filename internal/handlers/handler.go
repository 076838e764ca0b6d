package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/handlers/response"
	"gitlab.com/newsinsight.net/internal/static/errs"
)

func ResponseWithJson(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func ResponseError(w http.ResponseWriter, message string, code int) {
	response.WriteError(w, response.ErrorMessage{
		Message:    message,
		Code:       codeFor(code),
		StatusCode: code,
	})
}

// ResponseResult writes the terminal outcome of a job. A downstream failure is passed through
// with its own status and body; other failures use the error message shape.
func ResponseResult(w http.ResponseWriter, r domain.WorkerResult) {
	if f := r.Failure; f != nil {
		if len(f.Body) > 0 {
			response.WriteRaw(w, f.Status, f.Body)
			return
		}
		response.WriteError(w, response.ErrorMessage{
			Message:    f.Message,
			Code:       f.Code,
			StatusCode: f.Status,
		})
		return
	}
	if raw, ok := r.Payload.(json.RawMessage); ok {
		response.WriteRaw(w, http.StatusOK, raw)
		return
	}
	ResponseWithJson(w, http.StatusOK, r.Payload)
}

// ResponseErr maps a service error onto an HTTP error response
func ResponseErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		ResponseError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errs.ErrInvalidSession),
		errors.Is(err, errs.ErrUnknownTask),
		errors.Is(err, errs.ErrInvalidRefresh),
		errors.Is(err, errs.ErrMissingQuery):
		ResponseError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrOrchestratorStopped):
		ResponseError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		ResponseError(w, err.Error(), http.StatusInternalServerError)
	}
}

func codeFor(status int) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return domain.CodeOrchestratorStopped
	case status >= 400 && status < 500:
		return domain.CodeBadRequest
	default:
		return ""
	}
}

// JobParamsFromQuery reads the recognised job fields from a query string
func JobParamsFromQuery(v url.Values) domain.JobParams {
	return domain.JobParams{
		Query:    v.Get("q"),
		Language: v.Get("language"),
		Sources:  v.Get("sources"),
		Country:  v.Get("country"),
		Category: v.Get("category"),
		SortBy:   v.Get("sortBy"),
		PageSize: v.Get("pageSize"),
	}
}

// StreamSpecFromQuery reads a stream spec: the job fields plus `kinds` (comma list) and
// `refresh` (Go duration or seconds, at least domain.MinRefresh when set)
func StreamSpecFromQuery(v url.Values) (domain.StreamSpec, error) {
	return domain.ParseStreamSpec(JobParamsFromQuery(v), v.Get("kinds"), v.Get("refresh"))
}
