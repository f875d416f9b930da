package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"classquiz-service/internal/models"
	"classquiz-service/internal/repository"

	"github.com/google/uuid"
)

const (
	eventsQueue  = "quiz-events"
	quizCacheTTL = 24 * time.Hour
)

// Notifier pushes realtime events to everyone subscribed to a quiz room.
type Notifier interface {
	QuizStarted(quizID string)
	QuizClosed(quizID string)
	NewResponse(quizID, username, response string)
}

// EventPublisher hands lifecycle events to the message broker for downstream
// consumers (analytics, notifications).
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Cache is a read-through cache for quiz records. Implementations may be nil
// at runtime; the service degrades to plain store reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// QuizService owns the quiz state machine: created -> started -> closed, with
// both flags monotonic. Joining is only open before start; submissions stay
// open until close.
type QuizService struct {
	quizRepo     *repository.QuizRepository
	responseRepo *repository.ResponseRepository
	notifier     Notifier
	cache        Cache
	publisher    EventPublisher
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	responseRepo *repository.ResponseRepository,
	notifier Notifier,
	cache Cache,
	publisher EventPublisher,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		responseRepo: responseRepo,
		notifier:     notifier,
		cache:        cache,
		publisher:    publisher,
	}
}

func (s *QuizService) Create(ctx context.Context, question string, misconceptions, correctAnswers []string) (string, error) {
	if misconceptions == nil {
		misconceptions = []string{}
	}
	if correctAnswers == nil {
		correctAnswers = []string{}
	}

	quiz := &models.Quiz{
		ID:             uuid.New().String(),
		Question:       question,
		Misconceptions: misconceptions,
		CorrectAnswers: correctAnswers,
	}

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return "", fmt.Errorf("failed to create quiz: %w", err)
	}

	s.publishEvent(ctx, "quiz.created", quiz.ID)

	return quiz.ID, nil
}

// Get returns the quiz record, serving repeated lookups from the cache when
// one is configured. A reader racing a transition can write a pre-transition
// copy back after the invalidation, so cached records may report stale
// started/ended flags; lifecycle gates read the store via getFresh instead.
func (s *QuizService) Get(ctx context.Context, quizID string) (*models.Quiz, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, quizCacheKey(quizID)); err == nil {
			var quiz models.Quiz
			if err := json.Unmarshal([]byte(data), &quiz); err == nil {
				return &quiz, nil
			}
		}
	}

	quiz, err := s.getFresh(ctx, quizID)
	if err != nil {
		return nil, err
	}

	s.cacheQuiz(ctx, quiz)

	return quiz, nil
}

// getFresh reads the quiz straight from the store, bypassing the cache.
func (s *QuizService) getFresh(ctx context.Context, quizID string) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// Start marks the quiz as started and announces it to the room. Only the
// ended flag gates the transition: re-starting a live quiz is a permitted
// no-op that re-broadcasts the announcement.
func (s *QuizService) Start(ctx context.Context, quizID string) error {
	updated, err := s.quizRepo.MarkStarted(ctx, quizID)
	if err != nil {
		return err
	}
	if !updated {
		return s.rejectTransition(ctx, quizID)
	}

	s.invalidateQuiz(ctx, quizID)
	if s.notifier != nil {
		s.notifier.QuizStarted(quizID)
	}
	s.publishEvent(ctx, "quiz.started", quizID)

	return nil
}

// Close marks the quiz as ended and announces it. A quiz that was never
// started can still be closed.
func (s *QuizService) Close(ctx context.Context, quizID string) error {
	updated, err := s.quizRepo.MarkEnded(ctx, quizID)
	if err != nil {
		return err
	}
	if !updated {
		return s.rejectTransition(ctx, quizID)
	}

	s.invalidateQuiz(ctx, quizID)
	if s.notifier != nil {
		s.notifier.QuizClosed(quizID)
	}
	s.publishEvent(ctx, "quiz.closed", quizID)

	return nil
}

// AuthorizeJoin checks whether a participant may still enter the room.
// Joining closes as soon as the quiz starts, while submissions stay open, so
// the gates here are deliberately stricter than SubmitResponse's.
func (s *QuizService) AuthorizeJoin(ctx context.Context, quizID, username string) error {
	// Admission depends on the started/ended flags, so never trust a cached
	// record here: one stale entry would keep admitting participants until
	// its TTL ran out.
	quiz, err := s.getFresh(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.Started {
		return ErrQuizStarted
	}
	if quiz.Ended {
		return ErrQuizEnded
	}

	log.Printf("Participant %s joined quiz %s", username, quizID)
	return nil
}

// SubmitResponse upserts the participant's answer and fans it out to the
// room. A resubmission by the same username replaces the earlier text.
func (s *QuizService) SubmitResponse(ctx context.Context, quizID, username, response string) error {
	stored, err := s.responseRepo.Upsert(ctx, quizID, username, response)
	if err != nil {
		return err
	}
	if !stored {
		return s.rejectTransition(ctx, quizID)
	}

	if s.notifier != nil {
		s.notifier.NewResponse(quizID, username, response)
	}

	return nil
}

// Responses returns the current working set for a quiz, one entry per
// participant with their latest text.
func (s *QuizService) Responses(ctx context.Context, quizID string) ([]models.StudentResponse, error) {
	if _, err := s.Get(ctx, quizID); err != nil {
		return nil, err
	}
	return s.responseRepo.ListByQuiz(ctx, quizID)
}

// rejectTransition turns a failed conditional write into the right domain
// error: the quiz either does not exist or has already ended.
func (s *QuizService) rejectTransition(ctx context.Context, quizID string) error {
	_, err := s.quizRepo.GetByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrQuizNotFound
	}
	if err != nil {
		return err
	}
	return ErrQuizEnded
}

func (s *QuizService) cacheQuiz(ctx context.Context, quiz *models.Quiz) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, quizCacheKey(quiz.ID), string(data), quizCacheTTL); err != nil {
		log.Printf("Failed to cache quiz %s: %v", quiz.ID, err)
	}
}

func (s *QuizService) invalidateQuiz(ctx context.Context, quizID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, quizCacheKey(quizID)); err != nil {
		log.Printf("Failed to invalidate quiz cache %s: %v", quizID, err)
	}
}

func quizCacheKey(quizID string) string {
	return fmt.Sprintf("quiz:%s", quizID)
}

type quizEvent struct {
	Event  string    `json:"event"`
	QuizID string    `json:"quizId"`
	At     time.Time `json:"at"`
}

func (s *QuizService) publishEvent(ctx context.Context, event, quizID string) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(quizEvent{Event: event, QuizID: quizID, At: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventsQueue, body); err != nil {
		log.Printf("Failed to publish %s event for quiz %s: %v", event, quizID, err)
	}
}
