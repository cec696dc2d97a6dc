package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/ecocity/game/engine"
	"github.com/wricardo/ecocity/game/service"
)

func testClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, engine.WebSocketBufferSize),
	}
}

func testState(t *testing.T) *service.CityState {
	t.Helper()
	e := engine.NewEngineWithDefaults()
	return &service.CityState{Snapshot: e.Snapshot(), Risks: []string{}}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	c1 := testClient(hub, "abcd")
	c2 := testClient(hub, "abcd")

	hub.registerClient(c1)
	hub.registerClient(c2)
	if len(hub.sessions["abcd"]) != 2 {
		t.Fatalf("Expected 2 clients, got %d", len(hub.sessions["abcd"]))
	}

	hub.unregisterClient(c1)
	if !hub.sessions["abcd"][c2] || len(hub.sessions["abcd"]) != 1 {
		t.Error("Expected only c2 to remain")
	}
	if _, open := <-c1.send; open {
		t.Error("Expected unregistered client's channel to be closed")
	}

	hub.unregisterClient(c2)
	if _, exists := hub.sessions["abcd"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}

	// Unregistering twice is harmless
	hub.unregisterClient(c2)
}

func TestHubBroadcastOnlyToSession(t *testing.T) {
	hub := NewHub()
	mine := testClient(hub, "mine")
	other := testClient(hub, "other")
	hub.registerClient(mine)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "mine", City: testState(t), Event: EventStateUpdate})

	select {
	case data := <-mine.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Event != EventStateUpdate || msg.City == nil || msg.City.ConfigName != "classic" {
			t.Errorf("Unexpected message %+v", msg)
		}
	default:
		t.Fatal("Expected a message for the subscribed client")
	}

	select {
	case <-other.send:
		t.Error("Client of another session received the broadcast")
	default:
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "s", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: EventCity})
	if _, exists := hub.sessions["s"]; exists {
		t.Error("Expected the blocked client to be dropped")
	}
}

func TestBroadcastDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < engine.WebSocketBufferSize+10; i++ {
			hub.BroadcastEvent("s", EventCity, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastEvent blocked on a full queue")
	}
}

func TestWebSocketReceivesStateUpdates(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session_id"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session_id=abcd"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("abcd") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastToSession("abcd", testState(t))
	hub.BroadcastEvent("abcd", EventCity, service.CityEvent{Type: "placed", Message: "House"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read state update: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if first.Event != EventStateUpdate || first.City == nil || first.City.Grid == nil {
		t.Errorf("Unexpected state update %+v", first.Event)
	}
	if second.Event != EventCity {
		t.Errorf("Expected city event, got %q", second.Event)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount("abcd") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client never unregistered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubStopsWithContext(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop")
	}
	if hub.ClientCount("any") != 0 {
		t.Error("Expected zero clients after stop")
	}
}
