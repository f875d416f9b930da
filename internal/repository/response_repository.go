package repository

import (
	"context"
	"database/sql"
	"fmt"

	"classquiz-service/internal/models"
)

type ResponseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Upsert stores a participant's response, replacing any earlier one for the
// same (quiz, username) key. The insert is guarded by the quiz still being
// open, in the same statement, so it cannot race a concurrent close. Returns
// false when nothing was written (unknown quiz or quiz ended).
func (r *ResponseRepository) Upsert(ctx context.Context, quizID, username, response string) (bool, error) {
	query := `
		INSERT INTO responses (quiz_id, username, response)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM quizzes WHERE id = $1 AND ended = FALSE)
		ON CONFLICT (quiz_id, username) DO UPDATE SET response = excluded.response
	`

	result, err := r.db.ExecContext(ctx, query, quizID, username, response)
	if err != nil {
		return false, fmt.Errorf("failed to store response: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *ResponseRepository) ListByQuiz(ctx context.Context, quizID string) ([]models.StudentResponse, error) {
	query := `
		SELECT username, response
		FROM responses
		WHERE quiz_id = $1
		ORDER BY username
	`

	rows, err := r.db.QueryContext(ctx, query, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	responses := []models.StudentResponse{}
	for rows.Next() {
		var resp models.StudentResponse
		if err := rows.Scan(&resp.Username, &resp.Response); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}
