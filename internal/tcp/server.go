// package internal
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/tcp/connectionmanager"
	"gitlab.com/newsinsight.net/internal/tcp/defs"
	"gitlab.com/newsinsight.net/internal/tcp/handlers"
	"gitlab.com/newsinsight.net/internal/tcp/publishers"
)

// TCPServer streams sessions to clients speaking the framed protocol
type TCPServer struct {
	address       string
	orchestrator  orchestrator.IOrchestrator
	logger        primary.Logger
	listener      net.Listener
	connectionMgr *connectionmanager.ConnectionManager
	stopCh        chan struct{}
	stopOnce      sync.Once
	handlers      map[byte]primary.MessageHandler
	publisher     *publishers.StreamDataPublisher

	connsMu sync.Mutex
	conns   map[*connectionmanager.Conn]struct{}
	wg      sync.WaitGroup
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	orch orchestrator.IOrchestrator,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:       ":9000", // Default address
		orchestrator:  orch,
		logger:        logger,
		connectionMgr: connectionmanager.NewConnectionManager(logger),
		stopCh:        make(chan struct{}),
		conns:         make(map[*connectionmanager.Conn]struct{}),
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	// Register message handlers
	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *TCPServer) setupMessageHandlers() {
	s.publisher = publishers.NewStreamDataPublisher(s.logger)
	s.handlers = map[byte]primary.MessageHandler{
		defs.MsgStreamStart: &handlers.StreamStartHandler{
			Orchestrator:  s.orchestrator,
			ConnectionMgr: s.connectionMgr,
			Publisher:     s.publisher,
			Logger:        s.logger,
		},
		defs.MsgHistoryRequest: &handlers.HistoryRequestHandler{Orchestrator: s.orchestrator, Logger: s.logger},
	}
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("TCP server listening", "address", s.listener.Addr().String())

	// Accept connections in a goroutine
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listener address, nil before Start
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every client connection, then waits for the connection
// goroutines until ctx ends
func (s *TCPServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	s.closeAllConnections()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeAllConnections closes all client connections
func (s *TCPServer) closeAllConnections() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for conn := range s.conns {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close connection", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
				continue
			}
		}

		c := connectionmanager.NewConn(conn)
		s.connsMu.Lock()
		select {
		case <-s.stopCh:
			s.connsMu.Unlock()
			_ = conn.Close()
			return
		default:
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
		s.connsMu.Unlock()

		go s.handleConnection(c)
	}
}

// handleConnection serves one client until it disconnects or a handler fails
func (s *TCPServer) handleConnection(conn *connectionmanager.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	var sessionID string
	defer func() {
		cancel()
		conn.Release()
		if sessionID != "" {
			s.connectionMgr.RemoveSession(sessionID, conn)
			s.logger.Info("Client disconnected", "sessionId", sessionID)
		}
		_ = conn.Close()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		s.wg.Done()
	}()

	// the first request must arrive promptly; streaming clients may stay silent afterwards
	_ = conn.SetReadDeadline(time.Now().Add(defs.InitialRequestTimeout))

	for {
		msgType, payload, err := connectionmanager.ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Failed to read message", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Time{})

		handler, exists := s.handlers[msgType]
		if !exists {
			s.logger.Error("Unknown message type", "type", msgType)
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeUnknownMessage, fmt.Sprintf("Unknown message type: %d", msgType))
			continue
		}

		if err := handler.HandleMessage(ctx, conn, payload, &sessionID); err != nil {
			s.logger.Error("Error handling message", "type", msgType, "error", err)
			return
		}
	}
}
