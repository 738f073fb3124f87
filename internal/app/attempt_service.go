package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campus-quiz-service/internal/domain"
)

// QuizRepository loads full quiz content including the answer key
// (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists attempts (in-memory, Postgres, etc).
type AttemptStore interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	Update(ctx context.Context, attempt domain.Attempt) error
	ListByUser(ctx context.Context, quizID, userID string) ([]domain.Attempt, error)
}

// BoardRepository hands out the per-quiz scoreboards.
type BoardRepository interface {
	GetOrCreate(quizID string) *Board
}

// AttemptService contains the attempt lifecycle use cases: sanitized question
// delivery, attempt start under the max-attempts policy, the single grading
// transition, and post-grade review. Grading here is the authority the client
// engine trusts.
type AttemptService struct {
	quizzes  QuizRepository
	attempts AttemptStore
	boards   BoardRepository
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(quizzes QuizRepository, attempts AttemptStore, boards BoardRepository) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		attempts: attempts,
		boards:   boards,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps and ids.
func NewAttemptServiceWithClock(quizzes QuizRepository, attempts AttemptStore, boards BoardRepository, now func() time.Time, newID func() string) *AttemptService {
	s := NewAttemptService(quizzes, attempts, boards)
	s.now = now
	s.newID = newID
	return s
}

// Questions returns the quiz with correctness markers stripped. A quiz with
// zero questions is rejected so no attempt can start against it.
func (s *AttemptService) Questions(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}
	sanitized := quiz
	sanitized.Questions = make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		sanitized.Questions[i] = q.Sanitized()
	}
	return sanitized, nil
}

// StartAttempt creates a fresh IN_PROGRESS attempt. The max-attempts policy is
// enforced here authoritatively; the client-side gate only saves a round-trip.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Attempt{}, domain.ErrNoQuestions
	}

	if quiz.MaxAttempts > 0 {
		past, err := s.attempts.ListByUser(ctx, quizID, userID)
		if err != nil {
			return domain.Attempt{}, err
		}
		completed := 0
		for _, a := range past {
			if a.Status.Terminal() {
				completed++
			}
		}
		if completed >= quiz.MaxAttempts {
			return domain.Attempt{}, domain.ErrAttemptLimitReached
		}
	}

	attempt := domain.Attempt{
		ID:             s.newID(),
		QuizID:         quizID,
		UserID:         userID,
		Status:         domain.StatusInProgress,
		TotalQuestions: len(quiz.Questions),
		TimeLimitSec:   quiz.TimeLimitSec,
		StartedAt:      s.now().UTC(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

// SubmitAttempt grades the answers and performs the single terminal
// transition. Re-submitting a graded attempt is rejected, which gives the
// client's in-flight guard a server-side backstop.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID string, answers domain.AnswerSet) (domain.GradeSummary, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.GradeSummary{}, err
	}
	if attempt.Status.Terminal() {
		return domain.GradeSummary{}, domain.ErrAttemptFinished
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.GradeSummary{}, err
	}

	correct, points := gradeAnswers(quiz, answers)
	status := domain.StatusFailed
	if correct >= quiz.RequiredCorrect {
		status = domain.StatusPassed
	}

	submittedAt := s.now().UTC()
	attempt.Status = status
	attempt.CorrectCount = correct
	attempt.PointsEarned = points
	attempt.SubmittedAt = &submittedAt
	attempt.Answers = answers
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return domain.GradeSummary{}, err
	}

	summary := domain.GradeSummary{
		CorrectCount:   correct,
		TotalQuestions: len(quiz.Questions),
		Status:         status,
		PointsEarned:   points,
	}
	if s.boards != nil {
		s.boards.GetOrCreate(attempt.QuizID).Record(attempt.UserID, summary)
	}
	return summary, nil
}

// AttemptDetail builds the read-only per-question review of a graded attempt.
func (s *AttemptService) AttemptDetail(ctx context.Context, attemptID string) (domain.GradedDetail, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.GradedDetail{}, err
	}
	if !attempt.Status.Terminal() {
		return domain.GradedDetail{}, domain.ErrAttemptInProgress
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.GradedDetail{}, err
	}

	detail := domain.GradedDetail{
		Status:         attempt.Status,
		CorrectCount:   attempt.CorrectCount,
		TotalQuestions: attempt.TotalQuestions,
		Questions:      make([]domain.GradedQuestion, 0, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		selected := attempt.Answers[q.ID]
		correctID := correctOptionID(q)
		graded := domain.GradedQuestion{
			ID:               q.ID,
			Prompt:           q.Prompt,
			ImageURL:         q.ImageURL,
			IsCorrect:        selected != "" && selected == correctID,
			SelectedOptionID: selected,
			CorrectOptionID:  correctID,
			DisplayOrder:     i + 1,
			Options:          make([]domain.GradedOption, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			graded.Options = append(graded.Options, domain.GradedOption{
				ID:         opt.ID,
				Text:       opt.Text,
				IsCorrect:  opt.Correct,
				IsSelected: opt.ID == selected,
			})
		}
		detail.Questions = append(detail.Questions, graded)
	}
	return detail, nil
}

// ListAttempts returns a student's attempt history for a quiz, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, quizID, userID string) ([]domain.Attempt, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.attempts.ListByUser(ctx, quizID, userID)
}

// WatchScoreboard returns a channel receiving ranked-score updates for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) WatchScoreboard(ctx context.Context, quizID string) (<-chan domain.Scoreboard, func(), error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.boards.GetOrCreate(quizID).Subscribe()
	return ch, cancel, nil
}

// gradeAnswers scores a submission against the answer key. Unanswered
// questions simply score nothing; unknown option ids are wrong answers.
func gradeAnswers(quiz domain.Quiz, answers domain.AnswerSet) (correct, points int) {
	for _, q := range quiz.Questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		if selected != correctOptionID(q) {
			continue
		}
		correct++
		if q.Points > 0 {
			points += q.Points
		} else {
			points++
		}
	}
	return correct, points
}

func correctOptionID(q domain.Question) string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}
