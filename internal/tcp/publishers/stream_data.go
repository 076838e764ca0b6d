package publishers

import (
	"context"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/stream"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
)

var _ primary.MessagePublisher = (*StreamDataPublisher)(nil)

// StreamDataPublisher forwards session queue messages to a connection
type StreamDataPublisher struct {
	Logger primary.Logger
}

func NewStreamDataPublisher(logger primary.Logger) *StreamDataPublisher {
	return &StreamDataPublisher{Logger: logger}
}

// PublishMessage sends one serialized stream message
func (p *StreamDataPublisher) PublishMessage(_ context.Context, conn primary.FrameWriter, payload []byte) error {
	return conn.Send(defs.MsgStreamData, payload)
}

// Pump drains queue onto conn until the queue closes or ctx ends. A closed queue is
// reported to the client with MsgStreamEnd.
func (p *StreamDataPublisher) Pump(ctx context.Context, conn primary.FrameWriter, sessionID string, queue *stream.Queue) {
	for {
		msg, err := queue.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				_ = conn.Send(defs.MsgStreamEnd, nil)
			}
			p.Logger.Info("Stream closed", "sessionId", sessionID, "transport", "tcp", "dropped", queue.Dropped())
			return
		}
		if err := p.PublishMessage(ctx, conn, msg); err != nil {
			p.Logger.Error("Failed to publish stream message", "sessionId", sessionID, "error", err)
			queue.Close()
			return
		}
	}
}
