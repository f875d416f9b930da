package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"classquiz-service/internal/dto"
	"classquiz-service/internal/models"
	"classquiz-service/internal/service"
	"classquiz-service/pkg/qr"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService    *service.QuizService
	clusterService *service.ClusterService
	publicBaseURL  string
}

func NewQuizHandler(quizService *service.QuizService, clusterService *service.ClusterService, publicBaseURL string) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		clusterService: clusterService,
		publicBaseURL:  publicBaseURL,
	}
}

type createQuizRequest struct {
	Question       string   `json:"question" binding:"required"`
	Misconceptions []string `json:"misconceptions"`
	CorrectAnswers []string `json:"correctAnswers"`
}

type createQuizResponse struct {
	QuizID    string `json:"quizId"`
	QuizLink  string `json:"quizLink"`
	QRDataURL string `json:"qrDataURL"`
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "question is required")
		return
	}

	quizID, err := h.quizService.Create(c.Request.Context(), req.Question, req.Misconceptions, req.CorrectAnswers)
	if err != nil {
		log.Printf("Error creating quiz: %v", err)
		dto.JsonError(c, http.StatusInternalServerError, "Failed to create quiz.")
		return
	}

	quizLink := fmt.Sprintf("%s/student?quizId=%s", h.publicBaseURL, quizID)
	qrDataURL, err := qr.DataURL(quizLink)
	if err != nil {
		log.Printf("Error generating QR code for quiz %s: %v", quizID, err)
		dto.JsonError(c, http.StatusInternalServerError, "Failed to create quiz.")
		return
	}

	c.JSON(http.StatusOK, createQuizResponse{
		QuizID:    quizID,
		QuizLink:  quizLink,
		QRDataURL: qrDataURL,
	})
}

type quizIDRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

func (h *QuizHandler) StartQuiz(c *gin.Context) {
	var req quizIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "quizId is required")
		return
	}

	if err := h.quizService.Start(c.Request.Context(), req.QuizID); err != nil {
		h.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Quiz started"})
}

func (h *QuizHandler) CloseQuiz(c *gin.Context) {
	var req quizIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "quizId is required")
		return
	}

	if err := h.quizService.Close(c.Request.Context(), req.QuizID); err != nil {
		h.transitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Quiz closed"})
}

// transitionError maps start/close failures: a terminal quiz is a client
// mistake (400), not a lifecycle-phase rejection (403).
func (h *QuizHandler) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		dto.JsonError(c, http.StatusNotFound, "Quiz not found.")
	case errors.Is(err, service.ErrQuizEnded):
		dto.JsonError(c, http.StatusBadRequest, "Quiz is already ended.")
	default:
		log.Printf("Quiz transition error: %v", err)
		dto.JsonError(c, http.StatusInternalServerError)
	}
}

type joinQuizRequest struct {
	QuizID   string `json:"quizId" binding:"required"`
	Username string `json:"username"`
}

func (h *QuizHandler) JoinQuiz(c *gin.Context) {
	var req joinQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "quizId is required")
		return
	}

	err := h.quizService.AuthorizeJoin(c.Request.Context(), req.QuizID, req.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrQuizNotFound):
		dto.JsonError(c, http.StatusNotFound, "Quiz not found.")
	case errors.Is(err, service.ErrQuizStarted):
		dto.JsonError(c, http.StatusForbidden, "Quiz already started. Cannot join.")
	case errors.Is(err, service.ErrQuizEnded):
		dto.JsonError(c, http.StatusForbidden, "Quiz is ended.")
	default:
		log.Printf("Error joining quiz: %v", err)
		dto.JsonError(c, http.StatusInternalServerError, "Cannot join quiz.")
	}
}

type submitResponseRequest struct {
	QuizID   string `json:"quizId" binding:"required"`
	Username string `json:"username" binding:"required"`
	Response string `json:"response"`
}

func (h *QuizHandler) SubmitResponse(c *gin.Context) {
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "quizId and username are required")
		return
	}

	err := h.quizService.SubmitResponse(c.Request.Context(), req.QuizID, req.Username, req.Response)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrQuizNotFound):
		dto.JsonError(c, http.StatusNotFound, "Quiz not found.")
	case errors.Is(err, service.ErrQuizEnded):
		dto.JsonError(c, http.StatusForbidden, "Quiz is ended. No more responses allowed.")
	default:
		log.Printf("Error submitting response: %v", err)
		dto.JsonError(c, http.StatusInternalServerError, "Cannot submit response.")
	}
}

func (h *QuizHandler) ListResponses(c *gin.Context) {
	quizID := c.Param("id")

	responses, err := h.quizService.Responses(c.Request.Context(), quizID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"responses": responses})
	case errors.Is(err, service.ErrQuizNotFound):
		dto.JsonError(c, http.StatusNotFound, "Quiz not found.")
	default:
		log.Printf("Error listing responses: %v", err)
		dto.JsonError(c, http.StatusInternalServerError)
	}
}

type clusterRequest struct {
	Question       string                   `json:"question" binding:"required"`
	CorrectAnswers []string                 `json:"correctAnswers"`
	Misconceptions []string                 `json:"misconceptions"`
	Responses      []models.StudentResponse `json:"responses"`
}

func (h *QuizHandler) ClusterResponses(c *gin.Context) {
	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "question is required")
		return
	}

	set, err := h.clusterService.Cluster(c.Request.Context(), req.Question, req.CorrectAnswers, req.Misconceptions, req.Responses)
	if err != nil {
		var invalidOutput *service.InvalidModelOutputError
		if errors.As(err, &invalidOutput) {
			log.Printf("Error parsing model JSON: %s", invalidOutput.RawOutput)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Model returned invalid JSON",
				"rawOutput": invalidOutput.RawOutput,
			})
			return
		}

		log.Printf("Error calling cluster endpoint: %v", err)
		dto.JsonError(c, http.StatusInternalServerError, "Could not cluster responses.")
		return
	}

	c.JSON(http.StatusOK, set)
}
