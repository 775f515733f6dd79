package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// CommandResync asks the hub to resend the session's latest snapshot.
const CommandResync = "resync"

type command struct {
	Type string `json:"type"`
}

// Client is one overlay watching a session's mode.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string

	// Send carries encoded snapshots; the hub closes it on unregister.
	Send chan []byte

	// initial is the snapshot sent on connect. It seeds resync until a change arrives.
	initial []byte
}

// readPump handles resync commands and keeps the read deadline alive. Mode changes
// themselves arrive over HTTP.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("HUB", "Unexpected websocket close", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type != CommandResync {
			c.Hub.logger.Debug("HUB", "Ignoring client message", map[string]interface{}{"session_id": c.SessionID})
			continue
		}
		c.Hub.resend(c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
