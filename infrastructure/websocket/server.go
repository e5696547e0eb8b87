// Package websocket serves the browser transport: one JSON frame per
// websocket text message, in both directions.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/infrastructure/wire"
	"nolmessage/observability"
	"nolmessage/services"
	"nolmessage/sink"
	"sync"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	// Oversized text is clamped by the sanitizer, not rejected here.
	maxMessageSize = 1 << 20
)

type Server struct {
	log        *slog.Logger
	service    services.IChatService
	monitoring *observability.MonitoringManager
	upgrader   gws.Upgrader
	bufferSize int

	mu    sync.Mutex
	conns map[domain.ConnectionID]*gws.Conn
}

func NewServer(log *slog.Logger, service services.IChatService,
	monitoring *observability.MonitoringManager, connectionBufferSize int) *Server {
	return &Server{
		log:        log,
		service:    service,
		monitoring: monitoring,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay has no notion of origin or identity.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize: connectionBufferSize,
		conns:      make(map[domain.ConnectionID]*gws.Conn),
	}
}

// ServeHTTP upgrades the request and blocks until the connection is gone.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	connectionSink := sink.NewConnectionSink(s.bufferSize)
	s.track(connID, conn)
	s.service.Connect(connID, connectionSink)
	s.monitoring.ConnectionOpened()
	s.log.Debug("Websocket connected", "conn_id", connID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.writePump(conn, connID, connectionSink)
	s.readPump(ctx, conn, connID, connectionSink)
}

// CloseAll drops every live connection. Each read loop then runs its
// normal disconnect path.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
}

// Active returns the number of connections currently served.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) readPump(ctx context.Context, conn *gws.Conn, connID domain.ConnectionID, connectionSink *sink.ConnectionSink) {
	defer func() {
		s.service.Disconnecting(ctx, connID)
		connectionSink.Close()
		s.monitoring.ConnectionClosed()
		s.untrack(connID)
		_ = conn.Close()
		s.log.Debug("Websocket disconnected", "conn_id", connID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure, gws.CloseNoStatusReceived) {
				s.log.Warn("Websocket closed unexpectedly", "conn_id", connID, "error", err)
			}
			return
		}

		in, err := wire.Decode(raw)
		if err != nil {
			s.log.Warn("Ignoring client frame", "conn_id", connID, "error", err)
			continue
		}
		if in.Name == event.Disconnecting {
			return
		}
		in.Apply(ctx, s.service, connID)
	}
}

// writePump is the only writer of conn.
func (s *Server) writePump(conn *gws.Conn, connID domain.ConnectionID, connectionSink *sink.ConnectionSink) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-connectionSink.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
			return
		case e := <-connectionSink.Events():
			raw, err := wire.Encode(e)
			if err != nil {
				s.log.Error("Failed to encode event", "conn_id", connID, "event", e.EventName(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gws.TextMessage, raw); err != nil {
				s.log.Debug("Websocket write failed", "conn_id", connID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) track(connID domain.ConnectionID, conn *gws.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = conn
}

func (s *Server) untrack(connID domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}
