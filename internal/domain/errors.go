package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions is returned when a quiz exists but carries zero questions.
	// Starting an attempt against such a quiz is a fatal precondition failure.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAttemptNotFound is returned when an attempt id is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptLimitReached means the student already used all allowed attempts.
	ErrAttemptLimitReached = errors.New("maximum attempts reached")
	// ErrAttemptFinished guards the single grading transition: a graded attempt
	// rejects any further submission.
	ErrAttemptFinished = errors.New("attempt already graded")
	// ErrAttemptInProgress is returned when graded detail is requested before
	// the attempt has been submitted.
	ErrAttemptInProgress = errors.New("attempt still in progress")
)
