package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pongonline/internal/net"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// Connection pairs one websocket with its buffered send queue. All lobby
// state lives in the Registry; the connection only pumps bytes.
type Connection struct {
	conn *websocket.Conn
	send chan []byte
	reg  *Registry
}

func NewConnection(conn *websocket.Conn, reg *Registry) *Connection {
	return &Connection{
		conn: conn,
		send: make(chan []byte, 64),
		reg:  reg,
	}
}

// SendMessage marshals v onto the send queue without blocking. A full queue
// means the peer stopped reading; dropping here keeps broadcasts moving and
// leaves cleanup to that peer's own disconnect path.
func (c *Connection) SendMessage(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping frame")
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.reg.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Ignore non-JSON garbage
		kind, ok := net.Kind(message)
		if !ok {
			continue
		}

		switch kind {
		case net.TypeListLobbies:
			c.reg.ListLobbies(c)

		case net.TypeCreateLobby:
			var msg net.CreateLobbyMessage
			if err := json.Unmarshal(message, &msg); err == nil {
				c.reg.CreateLobby(c, msg.Owner)
			}

		case net.TypeJoinLobby:
			var msg net.JoinLobbyMessage
			if err := json.Unmarshal(message, &msg); err == nil {
				c.reg.JoinLobby(c, msg.ID)
			}

		case net.TypeLeaveLobby:
			c.reg.LeaveLobby(c)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func HandleWebSocket(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		c := NewConnection(conn, reg)
		reg.Connect(c)
		go c.writePump()
		go c.readPump()

		log.Printf("Client connected")
	}
}
