package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/handlers"
)

const (
	SessionHeader = "X-Session-Id"
	ndjsonType    = "application/x-ndjson"

	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 2 * wsPingInterval
)

var newline = []byte("\n")

// StreamHandler binds session queues to chunked HTTP responses and websockets
type StreamHandler struct {
	orchestrator orchestrator.IOrchestrator
	logger       primary.Logger
	upgrader     websocket.Upgrader
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(orch orchestrator.IOrchestrator, logger primary.Logger) *StreamHandler {
	return &StreamHandler{
		orchestrator: orch,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes registers the API routes for StreamHandler
func (h *StreamHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stream", h.Stream).Methods("GET")
	router.HandleFunc("/api/stream/ws", h.Socket).Methods("GET")
	router.HandleFunc("/api/stream/{sessionId}/history", h.History).Methods("GET")
}

func sessionFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("session")); id != "" {
		return id
	}
	return uuid.NewString()
}

// Stream starts the session and writes every queued message as one NDJSON line
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	spec, err := handlers.StreamSpecFromQuery(r.URL.Query())
	if err != nil {
		handlers.ResponseErr(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.ResponseError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := sessionFrom(r)
	queue := h.orchestrator.NewQueue()
	defer queue.Close()
	if err := h.orchestrator.StartSession(r.Context(), spec, sessionID, queue); err != nil {
		h.logger.Error("Failed to start session", "sessionId", sessionID, "error", err)
		handlers.ResponseErr(w, err)
		return
	}

	w.Header().Set("Content-Type", ndjsonType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(SessionHeader, sessionID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("Stream opened", "sessionId", sessionID, "transport", "http")
	for {
		msg, err := queue.Next(r.Context())
		if err != nil {
			break
		}
		if _, err := w.Write(msg); err != nil {
			break
		}
		if _, err := w.Write(newline); err != nil {
			break
		}
		flusher.Flush()
	}
	h.logger.Info("Stream closed", "sessionId", sessionID, "transport", "http", "dropped", queue.Dropped())
}

// Socket upgrades to a websocket, starts the session and sends every queued message as a text frame
func (h *StreamHandler) Socket(w http.ResponseWriter, r *http.Request) {
	spec, err := handlers.StreamSpecFromQuery(r.URL.Query())
	if err != nil {
		handlers.ResponseErr(w, err)
		return
	}

	sessionID := sessionFrom(r)
	conn, err := h.upgrader.Upgrade(w, r, http.Header{SessionHeader: []string{sessionID}})
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", "sessionId", sessionID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := h.orchestrator.NewQueue()
	defer queue.Close()
	if err := h.orchestrator.StartSession(ctx, spec, sessionID, queue); err != nil {
		h.logger.Error("Failed to start session", "sessionId", sessionID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(wsWriteTimeout))
		return
	}

	// the read side only exists to notice the peer going away
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	h.logger.Info("Stream opened", "sessionId", sessionID, "transport", "websocket")
	for {
		msg, err := queue.Next(ctx)
		if err != nil {
			break
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	h.logger.Info("Stream closed", "sessionId", sessionID, "transport", "websocket", "dropped", queue.Dropped())
}

// History returns every message pushed to the session, in push order
func (h *StreamHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	messages, err := h.orchestrator.FetchHistory(r.Context(), sessionID)
	if err != nil {
		handlers.ResponseErr(w, err)
		return
	}

	out := make([]json.RawMessage, len(messages))
	for i, m := range messages {
		out[i] = m
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   out,
	})
}
