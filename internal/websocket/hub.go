package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

type tokenParser interface {
	ParseSessionToken(tokenStr string) (uuid.UUID, error)
}

// client owns one socket. Frames are queued on send and written by the
// client's own goroutine, so publishers never wait on the network.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump(sessionID uuid.UUID) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed for session %s: %v", sessionID, err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub streams quiz state updates to websocket clients. With Redis configured,
// updates travel over pub/sub so every instance serving a session's sockets
// sees them; without it they are delivered in-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	redisClient *redis.Client
	tokens      tokenParser
	upgrader    websocket.Upgrader
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

// NewHub creates a hub. allowedOrigin is the frontend origin browsers may
// connect from; "*" allows any. Requests without an Origin header are not
// from a browser and are always accepted.
func NewHub(redisClient *redis.Client, tokens tokenParser, allowedOrigin string) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		redisClient: redisClient,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func channelName(sessionID uuid.UUID) string {
	return "quiz_updates:" + sessionID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.tokens.ParseSessionToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.registerClient(sessionID, c)
	go c.writePump(sessionID)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterClient(sessionID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// PublishState sends a state update to every client watching the session.
func (h *Hub) PublishState(ctx context.Context, sessionID uuid.UUID, state models.QuizState) {
	data, err := json.Marshal(models.WSMessage{
		Type: "state_update",
		Payload: models.StateUpdate{
			SessionID: sessionID,
			State:     state,
			Progress:  quiz.Progress(state),
		},
	})
	if err != nil {
		log.Printf("Failed to encode state update: %v", err)
		return
	}

	if h.redisClient == nil {
		h.broadcast(sessionID, data)
		return
	}
	if err := h.redisClient.Publish(ctx, channelName(sessionID), data).Err(); err != nil {
		log.Printf("Failed to publish state update for session %s: %v", sessionID, err)
	}
}

func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

func (h *Hub) registerClient(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)

	// Start pub/sub subscription if this is the first connection for this session
	if len(h.connections[sessionID]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Printf("WebSocket connected: session %s (total: %d)", sessionID, len(h.connections[sessionID]))
}

func (h *Hub) unregisterClient(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(sessionID, c) {
		log.Printf("WebSocket disconnected: session %s", sessionID)
	}
}

// removeLocked detaches c and closes its send queue, which ends its writer
// and the socket. It reports false when c was already removed.
func (h *Hub) removeLocked(sessionID uuid.UUID, c *client) bool {
	clients := h.connections[sessionID]
	found := false
	for i, existing := range clients {
		if existing == c {
			h.connections[sessionID] = append(clients[:i], clients[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	close(c.send)

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}
	return true
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// broadcast queues data for every client of the session. A client whose
// queue is full is too slow to keep up and is disconnected.
func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*client
	for _, c := range h.connections[sessionID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		log.Printf("WebSocket client too slow, dropping: session %s", sessionID)
		h.removeLocked(sessionID, c)
	}
}
