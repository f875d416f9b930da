package handlers

import (
	"net/http"

	"classquiz-service/internal/middleware"
	"classquiz-service/pkg/database"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the HTTP surface: the quiz API, the websocket endpoint
// and the health probes.
func NewRouter(quizHandler *QuizHandler, wsHandler *WebSocketHandler, dbClient *database.Client) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "classquiz-service",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if dbClient == nil || dbClient.GetDB().PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	api := router.Group("/api")
	{
		api.POST("/create-quiz", quizHandler.CreateQuiz)
		api.POST("/start-quiz", quizHandler.StartQuiz)
		api.POST("/close-quiz", quizHandler.CloseQuiz)
		api.POST("/join-quiz", quizHandler.JoinQuiz)
		api.POST("/submit-response", quizHandler.SubmitResponse)
		api.POST("/cluster-responses", quizHandler.ClusterResponses)
		api.GET("/quiz/:id/responses", quizHandler.ListResponses)
	}

	router.GET("/ws", wsHandler.HandleWebSocket)

	return router
}
