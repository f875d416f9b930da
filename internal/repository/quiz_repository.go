package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"classquiz-service/internal/models"
)

var ErrNotFound = errors.New("quiz not found")

type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	misJSON, err := json.Marshal(quiz.Misconceptions)
	if err != nil {
		return fmt.Errorf("failed to marshal misconceptions: %w", err)
	}
	corrJSON, err := json.Marshal(quiz.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("failed to marshal correct_answers: %w", err)
	}

	query := `
		INSERT INTO quizzes (id, question, misconceptions, correct_answers, started, ended)
		VALUES ($1, $2, $3, $4, FALSE, FALSE)
	`

	_, err = r.db.ExecContext(ctx, query, quiz.ID, quiz.Question, string(misJSON), string(corrJSON))
	if err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}

	return nil
}

func (r *QuizRepository) GetByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	query := `
		SELECT id, question, misconceptions, correct_answers, started, ended
		FROM quizzes
		WHERE id = $1
	`

	quiz := &models.Quiz{}
	var misJSON, corrJSON string
	err := r.db.QueryRowContext(ctx, query, quizID).Scan(
		&quiz.ID,
		&quiz.Question,
		&misJSON,
		&corrJSON,
		&quiz.Started,
		&quiz.Ended,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := json.Unmarshal([]byte(misJSON), &quiz.Misconceptions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal misconceptions: %w", err)
	}
	if err := json.Unmarshal([]byte(corrJSON), &quiz.CorrectAnswers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correct_answers: %w", err)
	}

	return quiz, nil
}

// MarkStarted flips the started flag. The update is conditional on the quiz
// not having ended, so a concurrent close cannot be overtaken. Returns false
// when no row matched (unknown quiz or already ended); re-starting a live quiz
// matches and is allowed.
func (r *QuizRepository) MarkStarted(ctx context.Context, quizID string) (bool, error) {
	return r.conditionalUpdate(ctx, `UPDATE quizzes SET started = TRUE WHERE id = $1 AND ended = FALSE`, quizID)
}

// MarkEnded flips the ended flag, failing when it is already set. A quiz that
// never started can still be closed.
func (r *QuizRepository) MarkEnded(ctx context.Context, quizID string) (bool, error) {
	return r.conditionalUpdate(ctx, `UPDATE quizzes SET ended = TRUE WHERE id = $1 AND ended = FALSE`, quizID)
}

func (r *QuizRepository) conditionalUpdate(ctx context.Context, query, quizID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, quizID)
	if err != nil {
		return false, fmt.Errorf("failed to update quiz: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}
