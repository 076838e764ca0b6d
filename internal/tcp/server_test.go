package tcp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/newsinsight.net/internal/adapter/logging"
	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/tcp/connectionmanager"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
)

func startServer(t *testing.T) (*TCPServer, *orchestrator.Orchestrator) {
	t.Helper()
	logger := logging.NewNopLogger()
	echo := worker.TaskFunc(func(_ context.Context, j domain.Job) (domain.WorkerResult, error) {
		return domain.Success(j, map[string]string{"kind": string(j.Kind)}), nil
	})
	orch := orchestrator.NewOrchestrator(&config.OrchestratorCfg{
		RequestTimeout: time.Second,
		MaxRestarts:    3,
		RestartWindow:  time.Minute,
		InboxSize:      16,
		QueueCapacity:  32,
		SessionIdleTTL: time.Hour,
		MaxSessions:    16,
	}, worker.Tasks{domain.TaskWordStats: echo, domain.TaskSentiment: echo}, nil, logger, nil)
	orch.Start(context.Background())

	srv := NewTCPServer(orch, logger, WithAddress("127.0.0.1:0"))
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		orch.Stop()
	})
	return srv, orch
}

func dial(t *testing.T, srv *TCPServer) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func send(t *testing.T, conn net.Conn, msgType byte, v interface{}) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, connectionmanager.SendMessage(conn, msgType, payload))
}

func expect(t *testing.T, conn net.Conn, msgType byte, v interface{}) {
	t.Helper()
	got, payload, err := connectionmanager.ReadMessage(conn)
	require.NoError(t, err)
	require.Equal(t, msgType, got, "payload: %s", payload)
	if v != nil {
		require.NoError(t, json.Unmarshal(payload, v))
	}
}

func TestTCPServer_StreamsSessionAndHistory(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{
		SessionID: "tcp-1",
		Params:    domain.JobParams{Query: "golang"},
		Kinds:     "wordstats",
	})

	var ack defs.StreamAckData
	expect(t, conn, defs.MsgStreamAck, &ack)
	assert.Equal(t, "tcp-1", ack.SessionID)

	var msg domain.StreamMessage
	expect(t, conn, defs.MsgStreamData, &msg)
	assert.Equal(t, "tcp-1", msg.SessionID)
	assert.Equal(t, domain.TaskWordStats, msg.Kind)
	assert.Equal(t, uint64(1), msg.Seq)

	// empty request falls back to the session bound to the connection
	require.NoError(t, connectionmanager.SendMessage(conn, defs.MsgHistoryRequest, nil))
	var hist defs.HistoryData
	expect(t, conn, defs.MsgHistoryData, &hist)
	assert.Equal(t, "tcp-1", hist.SessionID)
	require.Len(t, hist.Messages, 1)
}

func TestTCPServer_GeneratesSessionID(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{Params: domain.JobParams{Query: "go"}, Kinds: "sentiment"})
	var ack defs.StreamAckData
	expect(t, conn, defs.MsgStreamAck, &ack)
	assert.NotEmpty(t, ack.SessionID)
}

func TestTCPServer_ErrorsKeepConnectionOpen(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	var e defs.ErrorData
	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{Params: domain.JobParams{Query: "go"}, Kinds: "astrology"})
	expect(t, conn, defs.MsgError, &e)
	assert.Equal(t, defs.ErrCodeInvalidSpec, e.Code)

	send(t, conn, defs.MsgHistoryRequest, defs.HistoryRequestData{SessionID: "nobody"})
	expect(t, conn, defs.MsgError, &e)
	assert.Equal(t, defs.ErrCodeSessionNotFound, e.Code)

	require.NoError(t, connectionmanager.SendMessage(conn, 0x7F, nil))
	expect(t, conn, defs.MsgError, &e)
	assert.Equal(t, defs.ErrCodeUnknownMessage, e.Code)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{Params: domain.JobParams{Query: "go"}, Kinds: "wordstats"})
	expect(t, conn, defs.MsgStreamAck, nil)
}

func TestTCPServer_SecondStartOnSameConnectionIsRejected(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{SessionID: "a", Params: domain.JobParams{Query: "go"}, Kinds: "wordstats"})
	expect(t, conn, defs.MsgStreamAck, nil)
	expect(t, conn, defs.MsgStreamData, nil)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{SessionID: "b", Params: domain.JobParams{Query: "go"}, Kinds: "wordstats"})
	var e defs.ErrorData
	expect(t, conn, defs.MsgError, &e)
	assert.Equal(t, defs.ErrCodeAlreadyStreamed, e.Code)
}

func TestTCPServer_StreamEndsWhenOrchestratorStops(t *testing.T) {
	srv, orch := startServer(t)
	conn := dial(t, srv)

	send(t, conn, defs.MsgStreamStart, defs.StreamStartData{SessionID: "end", Params: domain.JobParams{Query: "go"}, Kinds: "wordstats"})
	expect(t, conn, defs.MsgStreamAck, nil)
	expect(t, conn, defs.MsgStreamData, nil)

	orch.Stop()
	expect(t, conn, defs.MsgStreamEnd, nil)
}
