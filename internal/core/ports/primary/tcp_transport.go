package primary

import (
	"context"
)

// FrameWriter sends one framed message to a connected client
type FrameWriter interface {
	Send(msgType byte, payload []byte) error
}

// MessageHandler defines an interface for handling different message types.
// sessionID holds the session bound to the connection and may be set by the handler.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn FrameWriter, payload []byte, sessionID *string) error
}

type MessagePublisher interface {
	PublishMessage(ctx context.Context, conn FrameWriter, payload []byte) error
}
