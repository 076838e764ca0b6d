package connectionmanager

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/stream"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
)

var _ primary.FrameWriter = (*Conn)(nil)

// Conn is a client connection with serialized frame writes and the session queue bound to it
type Conn struct {
	net.Conn
	writeMu sync.Mutex

	mu    sync.Mutex
	queue *stream.Queue
}

// NewConn wraps a raw connection
func NewConn(conn net.Conn) *Conn {
	return &Conn{Conn: conn}
}

// Send writes one frame; concurrent senders never interleave
func (c *Conn) Send(msgType byte, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return SendMessage(c.Conn, msgType, payload)
}

// Bind attaches the session queue; it fails when the connection already streams
func (c *Conn) Bind(q *stream.Queue) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue != nil {
		return false
	}
	c.queue = q
	return true
}

// Release closes the bound queue, if any
func (c *Conn) Release() {
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	if q != nil {
		q.Close()
	}
}

// ConnectionManager tracks the connections streaming a session
type ConnectionManager struct {
	Connections map[string]*Conn // sessionId -> connection
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[string]*Conn),
		Logger:      logger,
	}
}

// RegisterSession records the connection streaming a session. A connection already
// streaming the same session is released and returned.
func (cm *ConnectionManager) RegisterSession(sessionID string, conn *Conn) *Conn {
	cm.ConnMutex.Lock()
	prev := cm.Connections[sessionID]
	cm.Connections[sessionID] = conn
	cm.ConnMutex.Unlock()

	if prev != nil && prev != conn {
		prev.Release()
		return prev
	}
	return nil
}

// RemoveSession forgets the session when conn is still the one streaming it
func (cm *ConnectionManager) RemoveSession(sessionID string, conn *Conn) {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()
	if cm.Connections[sessionID] == conn {
		delete(cm.Connections, sessionID)
	}
}

// GetConnection returns the connection streaming a session
func (cm *ConnectionManager) GetConnection(sessionID string) (*Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[sessionID]
	return conn, exists
}

// Count returns the number of streaming connections
func (cm *ConnectionManager) Count() int {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()
	return len(cm.Connections)
}

// SendErrorMessage sends an error message to a client
func SendErrorMessage(conn primary.FrameWriter, code int, message string) {
	errorBytes, err := json.Marshal(defs.ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}

	// Ignore errors here as the connection might be closing
	_ = conn.Send(defs.MsgError, errorBytes)
}

// SendMessage writes a header and payload frame
func SendMessage(w io.Writer, msgType byte, payload []byte) error {
	frame := make([]byte, defs.HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], defs.MagicNumber)
	frame[2] = msgType
	frame[3] = 0 // Reserved
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[defs.HeaderSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadMessage reads one frame, rejecting a bad magic number or an oversized payload
func ReadMessage(r io.Reader) (byte, []byte, error) {
	header := make([]byte, defs.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := header[2]
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	if magic != defs.MagicNumber {
		return 0, nil, fmt.Errorf("invalid magic number: %x", magic)
	}
	if payloadLen > defs.MaxPayloadSize {
		return 0, nil, fmt.Errorf("payload too large: %d bytes", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}
