package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/static/errs"
	"gitlab.com/newsinsight.net/internal/tcp/connectionmanager"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*HistoryRequestHandler)(nil)

// HistoryRequestHandler handles history request messages
type HistoryRequestHandler struct {
	Orchestrator orchestrator.IOrchestrator
	Logger       primary.Logger
}

// HandleMessage implements the MessageHandler interface. An empty session id in the
// request falls back to the session bound to the connection.
func (h *HistoryRequestHandler) HandleMessage(ctx context.Context, conn primary.FrameWriter, payload []byte, sessionID *string) error {
	var data defs.HistoryRequestData
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			h.Logger.Error("Failed to parse history request", "error", err)
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidPayload, "Invalid history request data")
			return nil
		}
	}
	if data.SessionID == "" {
		data.SessionID = *sessionID
	}

	messages, err := h.Orchestrator.FetchHistory(ctx, data.SessionID)
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeSessionNotFound, err.Error())
		return nil
	case err != nil:
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeHistoryFailed, err.Error())
		return err
	}

	out := defs.HistoryData{SessionID: data.SessionID, Messages: make([]json.RawMessage, len(messages))}
	for i, m := range messages {
		out.Messages[i] = m
	}
	body, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return conn.Send(defs.MsgHistoryData, body)
}
