package stream

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/matter/internal/reducer"
)

// Client is one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump decodes actions from the connection and submits them.
// Undecodable or rejected messages are answered with an error message to
// this client only.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		a, err := reducer.DecodeAction(data)
		if err != nil {
			c.reply(Message{Type: TypeError, Payload: err.Error()})
			continue
		}
		if u, ok := a.(reducer.Unknown); ok {
			c.reply(Message{Type: TypeError, Payload: "unknown action " + u.Type})
			continue
		}
		if !c.hub.submit.Enqueue(a) {
			c.reply(Message{Type: TypeError, Payload: "game is not running"})
		}
	}
}

// reply routes msg through the hub, which owns c.send.
func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("encode reply failed", "error", err)
		return
	}
	c.hub.send(c.hub.reply, outbound{data: data, to: c})
}

// writePump writes queued messages until the hub closes send.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
