package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection for the session, sends the current snapshot and
// blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, current interface{}) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 64)}
	if data, err := Encode(current); err == nil {
		client.initial = data
		client.Send <- data
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
