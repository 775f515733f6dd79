package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"temporalos-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel carries snapshots between instances.
const RedisChannel = "mode_events"

type envelope struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub fans ModeState snapshots out to the websocket clients watching a session.
type Hub struct {
	// Registered clients map: SessionID -> clients (several overlays may watch one session)
	clients map[string][]*Client

	// latest is the last snapshot delivered to each watched session, or the one its
	// first client was sent on connect.
	latest map[string][]byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instance tags our own redis messages so they are not delivered twice
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		latest:     make(map[string][]byte),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			if _, ok := h.latest[client.SessionID]; !ok && client.initial != nil {
				h.latest[client.SessionID] = client.initial
			}
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func Encode(snapshot interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": "mode_state",
		"data": snapshot,
	})
}

// Publish sends a snapshot to local watchers of the session and to other instances.
func (h *Hub) Publish(sessionID string, snapshot interface{}) {
	data, err := Encode(snapshot)
	if err != nil {
		h.logger.Error("HUB", "Failed to encode snapshot", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		return
	}

	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(envelope{Origin: h.instance, SessionID: sessionID, Message: data})
		if err := h.rdb.Publish(context.Background(), RedisChannel, payload).Err(); err != nil {
			h.logger.Warn("HUB", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Watchers reports how many local clients watch the session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) deliver(sessionID string, data []byte) {
	var slow []*Client

	// Sends happen under the lock so remove cannot close a channel mid-send.
	h.mu.Lock()
	if len(h.clients[sessionID]) > 0 {
		h.latest[sessionID] = data
	}
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		h.logger.Warn("HUB", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
		h.remove(client)
	}
}

// resend delivers the session's latest snapshot to one registered client.
func (h *Hub) resend(client *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, ok := h.latest[client.SessionID]
	if !ok {
		return
	}
	for _, c := range h.clients[client.SessionID] {
		if c != client {
			continue
		}
		select {
		case c.Send <- data:
		default:
		}
		return
	}
}

// remove unregisters the client and closes its send channel exactly once.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.SessionID]
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		delete(h.latest, client.SessionID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, id)
		delete(h.latest, id)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, RedisChannel)
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
			var payload envelope
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instance {
				continue
			}
			h.deliver(payload.SessionID, payload.Message)
		}
	}
}
