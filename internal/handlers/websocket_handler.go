package handlers

import (
	"errors"
	"log"
	"net/http"

	"classquiz-service/internal/dto"
	"classquiz-service/internal/service"
	ws "classquiz-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // students join from arbitrary devices via the share link
	},
}

type WebSocketHandler struct {
	hub         *ws.Hub
	quizService *service.QuizService
}

func NewWebSocketHandler(hub *ws.Hub, quizService *service.QuizService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		quizService: quizService,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	quizID := c.Query("quiz_id")
	if quizID == "" {
		dto.JsonError(c, http.StatusBadRequest, "Missing quiz_id")
		return
	}
	username := c.Query("username")

	if _, err := h.quizService.Get(c.Request.Context(), quizID); err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			dto.JsonError(c, http.StatusNotFound, "Quiz not found.")
			return
		}
		log.Printf("Failed to load quiz %s: %v", quizID, err)
		dto.JsonError(c, http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, quizID, username)

	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
