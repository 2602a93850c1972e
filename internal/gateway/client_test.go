package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voicecall-engine/internal/signaling"

	"github.com/gorilla/websocket"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type capturingHandler struct {
	mu     sync.Mutex
	offers []signaling.Message
	status []signaling.Message
}

func (h *capturingHandler) HandleOffer(msg signaling.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offers = append(h.offers, msg)
}

func (h *capturingHandler) HandleCandidate(msg signaling.Message) {}

func (h *capturingHandler) HandleStatus(msg signaling.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = append(h.status, msg)
}

func (h *capturingHandler) offerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.offers)
}

type wsServer struct {
	t *testing.T

	mu    sync.Mutex
	conns []*websocket.Conn
	auths []string
	read  []signaling.Message
}

func newWSServer(t *testing.T) (*wsServer, *httptest.Server) {
	t.Helper()
	s := &wsServer{t: t}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auths = append(s.auths, r.Header.Get("Authorization"))
		s.mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		for {
			var msg signaling.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.read = append(s.read, msg)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *wsServer) waitConn(n int) *websocket.Conn {
	s.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.conns) >= n {
			conn := s.conns[n-1]
			s.mu.Unlock()
			return conn
		}
		s.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	s.t.Fatalf("server never saw connection %d", n)
	return nil
}

func (s *wsServer) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.read)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitCond(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestClient_ConnectsWithBearerToken(t *testing.T) {
	server, srv := newWSServer(t)
	handler := &capturingHandler{}
	client := NewClient(Config{URL: wsURL(srv), Token: "sekrit"}, signaling.NewRouter(handler, nil, discardLog), discardLog)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	server.waitConn(1)
	waitCond(t, "connectivity", client.IsConnected)

	server.mu.Lock()
	auth := server.auths[0]
	server.mu.Unlock()
	if auth != "Bearer sekrit" {
		t.Fatalf("authorization header %q, want bearer token", auth)
	}
}

func TestClient_DispatchesInboundFrames(t *testing.T) {
	server, srv := newWSServer(t)
	handler := &capturingHandler{}
	client := NewClient(Config{URL: wsURL(srv)}, signaling.NewRouter(handler, nil, discardLog), discardLog)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	conn := server.waitConn(1)
	offer := signaling.Message{
		MessageID: "11111111-1111-4111-8111-111111111111",
		SenderID:  "peer",
		Category:  signaling.CategoryOffer,
		Data:      "e30=",
	}
	if err := conn.WriteJSON(offer); err != nil {
		t.Fatalf("server write: %v", err)
	}
	waitCond(t, "offer dispatch", func() bool { return handler.offerCount() == 1 })

	handler.mu.Lock()
	got := handler.offers[0]
	handler.mu.Unlock()
	if got.MessageID != offer.MessageID || got.Category != signaling.CategoryOffer {
		t.Fatalf("dispatched %+v, want the sent offer", got)
	}
}

func TestClient_SendWritesEnvelope(t *testing.T) {
	server, srv := newWSServer(t)
	handler := &capturingHandler{}
	client := NewClient(Config{URL: wsURL(srv)}, signaling.NewRouter(handler, nil, discardLog), discardLog)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	server.waitConn(1)
	waitCond(t, "connectivity", client.IsConnected)

	client.Send(signaling.Message{
		MessageID: "22222222-2222-4222-8222-222222222222",
		SenderID:  "self",
		Category:  signaling.CategoryEnd,
	}, "peer")

	waitCond(t, "server receive", func() bool { return server.readCount() == 1 })
	server.mu.Lock()
	got := server.read[0]
	server.mu.Unlock()
	if got.RecipientID != "peer" {
		t.Fatalf("recipient %q, want %q (Send must address the envelope)", got.RecipientID, "peer")
	}
	if got.Category != signaling.CategoryEnd {
		t.Fatalf("category %q, want END", got.Category)
	}
}

func TestClient_SendWithoutConnectionDrops(t *testing.T) {
	handler := &capturingHandler{}
	client := NewClient(Config{URL: "ws://127.0.0.1:1/ws"}, signaling.NewRouter(handler, nil, discardLog), discardLog)

	if client.IsConnected() {
		t.Fatalf("fresh client must not report connected")
	}
	// Must not panic or block.
	client.Send(signaling.Message{MessageID: "x", Category: signaling.CategoryEnd}, "peer")
}

func TestClient_ReconnectsAfterServerClose(t *testing.T) {
	server, srv := newWSServer(t)
	handler := &capturingHandler{}
	client := NewClient(Config{
		URL:          wsURL(srv),
		ReconnectMin: 5 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	}, signaling.NewRouter(handler, nil, discardLog), discardLog)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	first := server.waitConn(1)
	waitCond(t, "connectivity", client.IsConnected)

	first.Close()
	server.waitConn(2)
	waitCond(t, "reconnect connectivity", client.IsConnected)
}
