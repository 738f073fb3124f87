package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campus-quiz-service/internal/domain"
)

// Client implements the engine's collaborator interfaces (question source,
// attempt API, attempt history) over the REST surface of a quiz server.
// Backend error codes are converted to domain sentinels once, here, so the
// engine never inspects transport details.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

type Config struct {
	BaseURL string
	UserID  string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		userID:  cfg.UserID,
		http:    &http.Client{Timeout: timeout},
	}
}

// Quiz fetches the sanitized quiz for an attempt.
func (c *Client) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.do(ctx, http.MethodGet, "/api/quizzes/"+quizID+"/questions", nil, &quiz, quizErr)
	return quiz, err
}

// Start begins a fresh attempt for the configured user.
func (c *Client) Start(ctx context.Context, quizID, _ string) (domain.Attempt, error) {
	var attempt domain.Attempt
	err := c.do(ctx, http.MethodPost, "/api/quizzes/"+quizID+"/attempts", nil, &attempt, startErr)
	return attempt, err
}

// Submit sends the answer buffer for grading.
func (c *Client) Submit(ctx context.Context, attemptID string, answers domain.AnswerSet) (domain.GradeSummary, error) {
	payload := struct {
		Answers domain.AnswerSet `json:"answers"`
	}{Answers: answers}
	var summary domain.GradeSummary
	err := c.do(ctx, http.MethodPost, "/api/attempts/"+attemptID+"/submit", payload, &summary, submitErr)
	return summary, err
}

// Detail fetches the graded review of an attempt.
func (c *Client) Detail(ctx context.Context, attemptID string) (domain.GradedDetail, error) {
	var detail domain.GradedDetail
	err := c.do(ctx, http.MethodGet, "/api/attempts/"+attemptID+"/detail", nil, &detail, detailErr)
	return detail, err
}

// ListAttempts returns the user's attempt history for a quiz.
func (c *Client) ListAttempts(ctx context.Context, quizID, _ string) ([]domain.Attempt, error) {
	var attempts []domain.Attempt
	err := c.do(ctx, http.MethodGet, "/api/quizzes/"+quizID+"/attempts", nil, &attempts, quizErr)
	return attempts, err
}

// do runs one JSON round-trip. mapErr converts non-2xx statuses into domain
// sentinels per endpoint.
func (c *Client) do(ctx context.Context, method, path string, body, out any, mapErr func(int) error) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		if err := mapErr(res.StatusCode); err != nil {
			return err
		}
		var remote struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&remote)
		if remote.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, remote.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func quizErr(status int) error {
	if status == http.StatusNotFound {
		return domain.ErrQuizNotFound
	}
	return nil
}

func startErr(status int) error {
	switch status {
	case http.StatusNotFound:
		return domain.ErrQuizNotFound
	case http.StatusConflict:
		return domain.ErrAttemptLimitReached
	}
	return nil
}

func submitErr(status int) error {
	switch status {
	case http.StatusNotFound:
		return domain.ErrAttemptNotFound
	case http.StatusConflict:
		return domain.ErrAttemptFinished
	}
	return nil
}

func detailErr(status int) error {
	switch status {
	case http.StatusNotFound:
		return domain.ErrAttemptNotFound
	case http.StatusConflict:
		return domain.ErrAttemptInProgress
	}
	return nil
}
