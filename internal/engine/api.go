package engine

import (
	"context"
	"errors"

	"campus-quiz-service/internal/domain"
)

// QuestionSource returns the quiz a session plays: policy fields populated,
// questions sanitized (no correctness markers).
type QuestionSource interface {
	Quiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptAPI is the backend grading service a session talks to. The returned
// status is authoritative; the engine never recomputes pass/fail locally.
type AttemptAPI interface {
	Start(ctx context.Context, quizID, userID string) (domain.Attempt, error)
	Submit(ctx context.Context, attemptID string, answers domain.AnswerSet) (domain.GradeSummary, error)
	Detail(ctx context.Context, attemptID string) (domain.GradedDetail, error)
}

// AttemptHistory lists a student's past attempts, used to gate retries before
// a start call is even issued.
type AttemptHistory interface {
	ListAttempts(ctx context.Context, quizID, userID string) ([]domain.Attempt, error)
}

// Confirmer answers the two advisory prompts of the attempt flow. Both are
// non-destructive until confirmed; timeout submits bypass them entirely.
type Confirmer interface {
	// ConfirmPartialSubmit is asked before a manual submit that leaves
	// questions unanswered.
	ConfirmPartialSubmit(answered, total int) bool
	// ConfirmRetakeAfterPass is asked before starting a new attempt when a
	// prior attempt already passed (a new result overwrites the ranking).
	ConfirmRetakeAfterPass() bool
}

// AlwaysConfirm accepts every prompt. Useful default for non-interactive callers.
type AlwaysConfirm struct{}

func (AlwaysConfirm) ConfirmPartialSubmit(int, int) bool { return true }
func (AlwaysConfirm) ConfirmRetakeAfterPass() bool       { return true }

var (
	// ErrNotReady is returned when Start is called before questions loaded.
	ErrNotReady = errors.New("session not ready: questions not loaded")
	// ErrAlreadyStarted guards against a second start on the same session.
	ErrAlreadyStarted = errors.New("attempt already started")
	// ErrSubmitInFlight is returned when a submit is already outstanding.
	ErrSubmitInFlight = errors.New("submit already in flight")
	// ErrSubmitDeclined means the partial-answer prompt was answered no;
	// nothing was sent and the attempt keeps running.
	ErrSubmitDeclined = errors.New("submit declined")
	// ErrRetakeDeclined means the overwrite prompt was answered no; no
	// attempt was started.
	ErrRetakeDeclined = errors.New("retake declined")
	// ErrNotGraded is returned when detail is requested before grading.
	ErrNotGraded = errors.New("attempt not graded yet")
)
