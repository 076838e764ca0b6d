package defs

import (
	"encoding/json"

	"gitlab.com/newsinsight.net/internal/domain"
)

// Protocol data structures
type (
	// StreamStartData opens or resumes a session on the connection
	StreamStartData struct {
		SessionID string           `json:"session_id,omitempty"`
		Params    domain.JobParams `json:"params"`
		Kinds     string           `json:"kinds,omitempty"`
		Refresh   string           `json:"refresh,omitempty"`
	}

	// StreamAckData confirms the session bound to the connection
	StreamAckData struct {
		SessionID string `json:"session_id"`
	}

	// HistoryRequestData asks for every message pushed to a session
	HistoryRequestData struct {
		SessionID string `json:"session_id"`
	}

	// HistoryData answers a history request
	HistoryData struct {
		SessionID string            `json:"session_id"`
		Messages  []json.RawMessage `json:"messages"`
	}

	// ErrorData represents data sent with error responses
	ErrorData struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)
