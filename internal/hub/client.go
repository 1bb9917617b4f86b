package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second // must be shorter than pongWait
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket listener. Outbound traffic goes through a buffered
// channel so broadcasts never block on a slow socket; a listener that can't
// keep up gets disconnected instead of stalling everyone else.
type Client struct {
	id         string
	listenerID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closeChan chan struct{}
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.conn.Close()
	})
}

// enqueue hands a frame to the write pump without blocking. Engine
// broadcasts run through here while the engine lock is held.
func (c *Client) enqueue(message []byte) {
	select {
	case <-c.closeChan:
	case c.send <- message:
	default:
		log.Printf("⚠️ [HUB] Listener %s too slow, dropping connection", c.id)
		c.close()
	}
}

func (c *Client) sendEvent(eventType string, data any) {
	raw, err := json.Marshal(serverMessage{Type: eventType, Data: data})
	if err != nil {
		log.Printf("❌ [HUB] Marshal %s failed: %v", eventType, err)
		return
	}
	c.enqueue(raw)
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.hub.unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ [HUB] Read error from %s: %v", c.id, err)
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closeChan:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	// Invalid input gets no reply; silence is the only error channel
	// listeners see.
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("⚠️ [HUB] Dropping malformed message from %s", c.id)
		return
	}

	switch msg.Type {
	case msgPing:
		c.sendEvent(evtPong, pongPayload{
			ClientTime: msg.ClientTime,
			ServerTime: c.hub.clock.Now().UnixMilli(),
		})

	case msgVote:
		c.hub.engine.Vote(msg.SongID, msg.VoteType, c.listenerID)

	case msgSelectSuggestion:
		c.hub.engine.SelectSuggestion(c.listenerID, msg.Index)

	case msgSkip:
		c.hub.engine.Skip()

	case msgTogglePlayback:
		c.hub.engine.TogglePlayback()

	case msgRequestSync:
		c.sendEvent(evtSyncResponse, c.hub.engine.FullSync())

	default:
		log.Printf("⚠️ [HUB] Unknown command %q from %s", msg.Type, c.id)
	}
}
