package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livenotes/internal/domain"
	"livenotes/internal/logging"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub broadcasts notifications to connected websocket clients. Slow clients
// are disconnected rather than allowed to block the session.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger: logger.Named("hub"),
		upgrader: websocket.Upgrader{
			// Local presentation clients only; the listener binds to the configured address.
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and streams notifications until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugw("websocket client connected", "remote", r.RemoteAddr, "clients", h.clientCount())

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve listens on addr and serves the hub at /events until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	h.logger.Infow("serving live events", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.drop(client)
	}
}

func (h *Hub) RecorderModeSelected(session domain.SessionInfo) {
	h.broadcast(EventRecorderMode, session)
}

func (h *Hub) ChunkTranscribed(chunk domain.ChunkTranscript) {
	h.broadcast(EventTranscriptChunk, chunk)
}

func (h *Hub) RecordingError(code domain.ErrorCode, detail string) {
	h.broadcast(EventRecordingError, ErrorPayload{Code: code, Message: detail})
}

func (h *Hub) SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason) {
	h.broadcast(EventSessionEnded, SessionEndedPayload{Session: session, Reason: reason})
}

func (h *Hub) broadcast(eventType string, data any) {
	payload, err := json.Marshal(Message{Type: eventType, Data: data, Timestamp: time.Now()})
	if err != nil {
		h.logger.Warnw("failed to encode event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	var slow []*hubClient
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		h.logger.Warnw("dropping slow websocket client", "remote", client.conn.RemoteAddr().String())
		h.drop(client)
	}
}

func (h *Hub) drop(client *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		client.once.Do(func() { close(client.send) })
		h.logger.Debugw("websocket client disconnected", "clients", h.clientCount())
	}
}

func (h *Hub) writeLoop(client *hubClient) {
	defer client.conn.Close()
	for payload := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(client)
			break
		}
	}
	_ = client.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

// readLoop discards client frames and detects disconnects.
func (h *Hub) readLoop(client *hubClient) {
	defer h.drop(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
