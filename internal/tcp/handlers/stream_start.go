package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/static/errs"
	"gitlab.com/newsinsight.net/internal/tcp/connectionmanager"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
	"gitlab.com/newsinsight.net/internal/tcp/publishers"
)

var _ primary.MessageHandler = (*StreamStartHandler)(nil)

// StreamStartHandler handles stream start messages
type StreamStartHandler struct {
	Orchestrator  orchestrator.IOrchestrator
	ConnectionMgr *connectionmanager.ConnectionManager
	Publisher     *publishers.StreamDataPublisher
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface. conn must be a *connectionmanager.Conn.
// Spec errors are reported to the client and keep the connection open.
func (h *StreamStartHandler) HandleMessage(ctx context.Context, conn primary.FrameWriter, payload []byte, sessionID *string) error {
	c, ok := conn.(*connectionmanager.Conn)
	if !ok {
		return fmt.Errorf("stream start: unsupported connection %T", conn)
	}
	if *sessionID != "" {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeAlreadyStreamed, "Connection already streams session "+*sessionID)
		return nil
	}

	var data defs.StreamStartData
	if err := json.Unmarshal(payload, &data); err != nil {
		h.Logger.Error("Failed to parse stream start", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidPayload, "Invalid stream start data")
		return nil
	}

	spec, err := domain.ParseStreamSpec(data.Params, data.Kinds, data.Refresh)
	if err != nil {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidSpec, err.Error())
		return nil
	}

	id := data.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	queue := h.Orchestrator.NewQueue()
	if !c.Bind(queue) {
		queue.Close()
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeAlreadyStreamed, "Connection already streams a session")
		return nil
	}
	if err := h.Orchestrator.StartSession(ctx, spec, id, queue); err != nil {
		c.Release()
		h.Logger.Error("Failed to start session", "sessionId", id, "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeStartFailed, err.Error())
		if errors.Is(err, errs.ErrOrchestratorStopped) {
			return err
		}
		return nil
	}

	*sessionID = id
	h.ConnectionMgr.RegisterSession(id, c)

	ack, err := json.Marshal(defs.StreamAckData{SessionID: id})
	if err != nil {
		return err
	}
	if err := conn.Send(defs.MsgStreamAck, ack); err != nil {
		return err
	}

	h.Logger.Info("Stream opened", "sessionId", id, "transport", "tcp")
	go h.Publisher.Pump(ctx, conn, id, queue)
	return nil
}
