package orchestrator

import (
	"encoding/json"

	"gitlab.com/newsinsight.net/internal/domain"
)

// rawJSON wraps a downstream body, quoting it when it is not valid JSON
func rawJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

// encodePayload renders an outcome as the payload of a stream message: the worker payload
// on success, the downstream body or else the failure itself on failure
func encodePayload(r domain.WorkerResult) json.RawMessage {
	if r.Failure != nil {
		if len(r.Failure.Body) > 0 {
			return rawJSON(r.Failure.Body)
		}
		b, _ := json.Marshal(r.Failure)
		return b
	}
	if raw, ok := r.Payload.(json.RawMessage); ok {
		return rawJSON(raw)
	}
	b, err := json.Marshal(r.Payload)
	if err != nil {
		return rawJSON(nil)
	}
	return b
}
