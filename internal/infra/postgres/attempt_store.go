package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists attempts in the attempts table. Answers are stored as
// a JSONB map of question id to option id, matching the wire shape.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	answers, err := marshalAnswers(attempt.Answers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (id, quiz_id, user_id, status, correct_count, total_questions, points_earned, time_limit_sec, started_at, submitted_at, answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.QuizID, attempt.UserID, string(attempt.Status),
		attempt.CorrectCount, attempt.TotalQuestions, attempt.PointsEarned,
		attempt.TimeLimitSec, attempt.StartedAt, attempt.SubmittedAt, answers)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, quiz_id, user_id, status, correct_count, total_questions, points_earned, time_limit_sec, started_at, submitted_at, answers
		FROM attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Update(ctx context.Context, attempt domain.Attempt) error {
	answers, err := marshalAnswers(attempt.Answers)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE attempts
		SET status=$2, correct_count=$3, points_earned=$4, submitted_at=$5, answers=$6
		WHERE id=$1`,
		attempt.ID, string(attempt.Status), attempt.CorrectCount,
		attempt.PointsEarned, attempt.SubmittedAt, answers)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) ListByUser(ctx context.Context, quizID, userID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, user_id, status, correct_count, total_questions, points_earned, time_limit_sec, started_at, submitted_at, answers
		FROM attempts WHERE quiz_id=$1 AND user_id=$2
		ORDER BY started_at DESC`, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var (
		attempt     domain.Attempt
		status      string
		submittedAt *time.Time
		answers     []byte
	)
	err := row.Scan(&attempt.ID, &attempt.QuizID, &attempt.UserID, &status,
		&attempt.CorrectCount, &attempt.TotalQuestions, &attempt.PointsEarned,
		&attempt.TimeLimitSec, &attempt.StartedAt, &submittedAt, &answers)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.Status = domain.AttemptStatus(status)
	attempt.SubmittedAt = submittedAt
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return domain.Attempt{}, err
		}
	}
	return attempt, nil
}

func marshalAnswers(answers domain.AnswerSet) ([]byte, error) {
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	return raw, nil
}
