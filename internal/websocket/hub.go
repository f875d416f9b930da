package websocket

import (
	"log"
	"sync"
)

const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

// Hub keeps one room per quiz and fans server events out to every client
// subscribed to that room.
type Hub struct {
	rooms map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.rooms[client.QuizID] == nil {
		h.rooms[client.QuizID] = make(map[*Client]bool)
	}
	h.rooms[client.QuizID][client] = true
	count := len(h.rooms[client.QuizID])
	h.mu.Unlock()

	log.Printf("Client registered: user=%s, quiz=%s", client.Username, client.QuizID)

	client.SendMessage(MessageTypeConnected, ConnectedPayload{
		QuizID:   client.QuizID,
		Username: client.Username,
	})

	h.broadcastToRoom(client.QuizID, MessageTypeParticipantsUpdate, ParticipantsUpdatePayload{
		Action:   ActionJoined,
		Username: client.Username,
		Count:    count,
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[client.QuizID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.Send)
	count := len(clients)
	if count == 0 {
		delete(h.rooms, client.QuizID)
	}
	h.mu.Unlock()

	log.Printf("Client unregistered: user=%s, quiz=%s", client.Username, client.QuizID)

	if count > 0 {
		h.broadcastToRoom(client.QuizID, MessageTypeParticipantsUpdate, ParticipantsUpdatePayload{
			Action:   ActionLeft,
			Username: client.Username,
			Count:    count,
		})
	}
}

func (h *Hub) broadcastToRoom(quizID string, msgType MessageType, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[quizID] {
		client.SendMessage(msgType, payload)
	}
}

// RoomSize reports how many clients are subscribed to a quiz room.
func (h *Hub) RoomSize(quizID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[quizID])
}

// QuizStarted, QuizClosed and NewResponse implement the notifier the quiz
// service fans lifecycle events through.

func (h *Hub) QuizStarted(quizID string) {
	h.broadcastToRoom(quizID, MessageTypeQuizStarted, QuizEventPayload{QuizID: quizID})
}

func (h *Hub) QuizClosed(quizID string) {
	h.broadcastToRoom(quizID, MessageTypeQuizClosed, QuizEventPayload{QuizID: quizID})
}

func (h *Hub) NewResponse(quizID, username, response string) {
	h.broadcastToRoom(quizID, MessageTypeNewResponse, NewResponsePayload{
		Username: username,
		Response: response,
	})
}
