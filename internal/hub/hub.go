// Package hub fans engine events out to websocket listeners and routes their
// commands back in. Each connection gets its own read/write pumps; the hub
// itself only tracks membership.
package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whisper-Tech/DNA-radio/internal/models"
	"github.com/whisper-Tech/DNA-radio/internal/radio"
	"github.com/whisper-Tech/DNA-radio/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from whatever origin hosts the player; CORS
	// policy is enforced on the REST surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Hub struct {
	engine *radio.Engine
	store  store.Store
	clock  radio.Clock

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func New(engine *radio.Engine, st store.Store, clock radio.Clock) *Hub {
	return &Hub{
		engine:  engine,
		store:   st,
		clock:   clock,
		clients: make(map[*Client]struct{}),
	}
}

// HandleWS upgrades the request and starts the connection's pumps. The new
// listener immediately receives a full sync snapshot.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ [HUB] Upgrade failed: %v", err)
		return
	}

	fp := fingerprint(c.Request)
	listenerID := fp
	if listener, err := h.store.GetOrCreateListener(fp); err != nil {
		log.Printf("❌ [HUB] Listener lookup failed: %v", err)
	} else {
		listenerID = listener.ID
	}

	client := &Client{
		id:         uuid.NewString()[:8],
		listenerID: listenerID,
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		closeChan:  make(chan struct{}),
	}

	h.register(client)
	go client.writePump()
	go client.readPump()

	client.sendEvent(evtSyncResponse, h.engine.FullSync())
	log.Printf("✅ [HUB] Listener %s connected (%s)", client.id, listenerID)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.engine.SetListenerCount(n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if present {
		h.engine.SetListenerCount(n)
		log.Printf("👋 [HUB] Listener %s disconnected", c.id)
	}
}

// ListenerCount reports currently connected clients.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(eventType string, data any) {
	raw, err := json.Marshal(serverMessage{Type: eventType, Data: data})
	if err != nil {
		log.Printf("❌ [HUB] Marshal %s failed: %v", eventType, err)
		return
	}
	h.mu.RLock()
	for c := range h.clients {
		c.enqueue(raw)
	}
	h.mu.RUnlock()
}

// Broadcaster implementation. The engine calls these under its own lock, so
// everything below must stay non-blocking.

func (h *Hub) StateUpdate(state models.BroadcastState) {
	h.broadcast(evtStateUpdate, state)
}

func (h *Hub) SongRemoved(event radio.SongRemovedEvent) {
	h.broadcast(evtSongRemoved, event)
}

func (h *Hub) SongImmortal(event radio.SongImmortalEvent) {
	h.broadcast(evtSongImmortal, event)
}

// fingerprint derives a stable device identity from headers, good enough to
// enforce one vote per listener per play without accounts.
func fingerprint(r *http.Request) string {
	seed := r.UserAgent() + "|" + r.Header.Get("Accept-Language")
	if seed == "|" {
		return "anon_" + uuid.NewString()[:8]
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:8])
}
