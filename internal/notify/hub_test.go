package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"livenotes/internal/domain"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitForClients(t, hub, 1)
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.clientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.clientCount())
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg.Type, msg.Data
}

func TestHubBroadcastsChunk(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	conn := dialHub(t, hub)

	hub.ChunkTranscribed(domain.ChunkTranscript{Session: "s-1", Index: 4, Text: "hello", Path: "/tmp/chunk-0004.wav", Size: 3200})

	eventType, data := readMessage(t, conn)
	if eventType != EventTranscriptChunk {
		t.Fatalf("unexpected event type %q", eventType)
	}
	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if chunk["chunk"] != float64(4) || chunk["text"] != "hello" || chunk["size"] != float64(3200) {
		t.Fatalf("unexpected chunk payload: %v", chunk)
	}
}

func TestHubBroadcastsErrorsAndSessionEnd(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	conn := dialHub(t, hub)

	hub.RecordingError(domain.ErrorCodeSegmentTimeout, "chunk 2 timed out")
	hub.SessionEnded(domain.SessionInfo{ID: "s-1"}, domain.SessionEndStopped)

	eventType, data := readMessage(t, conn)
	if eventType != EventRecordingError {
		t.Fatalf("unexpected event type %q", eventType)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Code != domain.ErrorCodeSegmentTimeout || payload.Message != "chunk 2 timed out" {
		t.Fatalf("unexpected error payload: %+v", payload)
	}

	eventType, data = readMessage(t, conn)
	if eventType != EventSessionEnded {
		t.Fatalf("unexpected event type %q", eventType)
	}
	var ended SessionEndedPayload
	if err := json.Unmarshal(data, &ended); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ended.Session.ID != "s-1" || ended.Reason != domain.SessionEndStopped {
		t.Fatalf("unexpected session ended payload: %+v", ended)
	}
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	conn := dialHub(t, hub)

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	waitForClients(t, hub, 0)

	// Broadcasting with no clients is a no-op.
	hub.RecorderModeSelected(domain.SessionInfo{ID: "s-2"})
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	conn := dialHub(t, hub)

	hub.Close()
	waitForClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to be closed")
	}
}
