package websocket

type MessageType string

const (
	// Client -> Server
	MessageTypePing     MessageType = "ping"
	MessageTypeJoinRoom MessageType = "join_room"

	// Server -> Client
	MessageTypeConnected          MessageType = "connected"
	MessageTypeQuizStarted        MessageType = "quiz_started"
	MessageTypeQuizClosed         MessageType = "quiz_closed"
	MessageTypeNewResponse        MessageType = "new_response"
	MessageTypeParticipantsUpdate MessageType = "participants_update"
	MessageTypeError              MessageType = "error"
	MessageTypePong               MessageType = "pong"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	QuizID   string `json:"quiz_id"`
	Username string `json:"username,omitempty"`
}

type ConnectedPayload struct {
	QuizID   string `json:"quizId"`
	Username string `json:"username,omitempty"`
}

type QuizEventPayload struct {
	QuizID string `json:"quizId"`
}

type NewResponsePayload struct {
	Username string `json:"username"`
	Response string `json:"response"`
}

type ParticipantsUpdatePayload struct {
	Action   string `json:"action"` // "joined" or "left"
	Username string `json:"username,omitempty"`
	Count    int    `json:"count"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
