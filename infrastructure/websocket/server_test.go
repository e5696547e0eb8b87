package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"nolmessage/domain"
	"nolmessage/observability"
	"nolmessage/runtime"
	"nolmessage/runtime/workers"
	"nolmessage/services"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	gws "github.com/gorilla/websocket"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ServerSuite struct {
	suite.Suite
	monitoring   *observability.MonitoringManager
	store        *runtime.RoomStore
	orchestrator *runtime.Orchestrator
	server       *Server
	http         *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	limits := domain.DefaultLimits()
	limits.MaxMembers = 2

	s.monitoring = observability.NewMonitoringManager(log)
	s.store = runtime.NewRoomStore(log, limits)
	registry := runtime.NewRegistry()
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	s.orchestrator = runtime.NewOrchestrator(log, supervisor, registry, s.store, s.monitoring,
		64, 100*time.Millisecond, 0, 0)
	s.orchestrator.Start(context.Background())

	service := services.NewChatService(log, s.store, registry, s.orchestrator, s.monitoring,
		limits, []string{"flownol"}, "15:04:05")
	s.server = NewServer(log, service, s.monitoring, 16)
	s.http = httptest.NewServer(s.server)
}

func (s *ServerSuite) TearDownTest() {
	s.server.CloseAll()
	s.http.Close()
	s.orchestrator.Stop()
}

func (s *ServerSuite) dial() *gws.Conn {
	url := "ws" + strings.TrimPrefix(s.http.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *ServerSuite) send(conn *gws.Conn, event string, data any) {
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(gws.TextMessage, raw))
}

func (s *ServerSuite) receive(conn *gws.Conn) frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var f frame
	s.Require().NoError(conn.ReadJSON(&f))
	return f
}

func (s *ServerSuite) TestJoin_Then_Broadcast() {
	req := s.Require()
	alice := s.dial()
	bob := s.dial()

	s.send(alice, "join-chat", map[string]string{"username": "Alice", "chatId": "Lobby"})
	history := s.receive(alice)
	req.Equal("load-history", history.Event)
	req.JSONEq(`[]`, string(history.Data))

	s.send(bob, "join-chat", map[string]string{"username": "Bob", "chatId": "lobby"})
	req.Equal("load-history", s.receive(bob).Event)

	s.send(alice, "send-message", map[string]string{"username": "FlowNol", "text": "hello", "chatId": "LOBBY"})

	for _, conn := range []*gws.Conn{alice, bob} {
		f := s.receive(conn)
		req.Equal("new-message", f.Event)
		var message domain.Message
		req.NoError(json.Unmarshal(f.Data, &message))
		req.Equal(domain.Username("flownol"), message.User)
		req.Equal("hello", message.Text)
		req.Equal(domain.StyleAdminGradient, message.Style)
	}
}

func (s *ServerSuite) TestFull_Room_Replies_Error() {
	req := s.Require()
	for i := 0; i < 2; i++ {
		conn := s.dial()
		s.send(conn, "join-chat", map[string]string{"username": fmt.Sprintf("u%d", i), "chatId": "small"})
		req.Equal("load-history", s.receive(conn).Event)
	}

	late := s.dial()
	s.send(late, "join-chat", map[string]string{"username": "late", "chatId": "small"})
	f := s.receive(late)
	req.Equal("error-message", f.Event)
	req.JSONEq(`"Chat is full (Max 2 people)."`, string(f.Data))
}

func (s *ServerSuite) TestMalformed_Frame_Is_Ignored() {
	req := s.Require()
	conn := s.dial()

	req.NoError(conn.WriteMessage(gws.TextMessage, []byte("{oops")))
	s.send(conn, "kick-user", map[string]string{})
	s.send(conn, "join-chat", map[string]string{"username": "a", "chatId": "x"})

	req.Equal("load-history", s.receive(conn).Event)
}

func (s *ServerSuite) TestLong_Text_Is_Clamped_Not_Rejected() {
	req := s.Require()
	conn := s.dial()
	s.send(conn, "join-chat", map[string]string{"username": "a", "chatId": "x"})
	req.Equal("load-history", s.receive(conn).Event)

	s.send(conn, "send-message", map[string]string{"username": "a", "text": strings.Repeat("x", 5000), "chatId": "x"})

	f := s.receive(conn)
	req.Equal("new-message", f.Event)
	var message domain.Message
	req.NoError(json.Unmarshal(f.Data, &message))
	req.Equal(strings.Repeat("x", 500), message.Text)
	room, ok := s.store.Get("x")
	req.True(ok)
	req.Len(room.Members(), 1)
}

func (s *ServerSuite) TestClose_Frees_The_Slot() {
	req := s.Require()
	first := s.dial()
	s.send(first, "join-chat", map[string]string{"username": "a", "chatId": "room"})
	req.Equal("load-history", s.receive(first).Event)
	req.NoError(first.Close())

	req.Eventually(func() bool {
		room, ok := s.store.Get("room")
		return ok && len(room.Members()) == 0 && s.server.Active() == 0
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal(int64(0), s.monitoring.GetLatest().ActiveConnections)
}

func TestUpgrade_Rejects_Plain_HTTP(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	server := NewServer(log, nil, observability.NewMonitoringManager(log), 1)
	recorder := httptest.NewRecorder()

	server.ServeHTTP(recorder, httptest.NewRequest("GET", "/ws", nil))

	require.Equal(t, 400, recorder.Code)
}
