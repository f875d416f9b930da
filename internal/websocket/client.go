package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	QuizID   string
	Username string
}

func NewClient(hub *Hub, conn *websocket.Conn, quizID, username string) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		QuizID:   quizID,
		Username: username,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			c.SendError("Invalid message format")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		c.handleJoinRoom(msg.Payload)

	case MessageTypePing:
		c.SendMessage(MessageTypePong, nil)

	default:
		// Subscribers are read-only beyond keepalives; answers travel
		// over the HTTP API.
		c.SendError("Unknown message type")
	}
}

// handleJoinRoom acknowledges the room membership established at upgrade
// time. The quiz_id query parameter already subscribed the client, so this
// only updates the display name and confirms; a connection cannot move to
// another room.
func (c *Client) handleJoinRoom(payload any) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		c.SendError("Invalid join_room payload")
		return
	}

	var join JoinRoomPayload
	if err := json.Unmarshal(payloadBytes, &join); err != nil {
		c.SendError("Invalid join_room payload")
		return
	}

	if join.QuizID != "" && join.QuizID != c.QuizID {
		c.SendError("Cannot switch rooms on an open connection")
		return
	}
	if join.Username != "" {
		c.Username = join.Username
	}

	c.SendMessage(MessageTypeConnected, ConnectedPayload{
		QuizID:   c.QuizID,
		Username: c.Username,
	})
}

func (c *Client) WritePump() {
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

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
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

func (c *Client) SendMessage(msgType MessageType, payload any) {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("Client send channel full, dropping message for %s", c.Username)
	}
}

func (c *Client) SendError(message string) {
	c.SendMessage(MessageTypeError, ErrorPayload{Message: message})
}
