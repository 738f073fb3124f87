package memory

import (
	"context"
	"sort"
	"sync"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Update(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; !ok {
		return domain.ErrAttemptNotFound
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s *AttemptStore) ListByUser(_ context.Context, quizID, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID && attempt.UserID == userID {
			out = append(out, cloneAttempt(attempt))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// cloneAttempt guards the map against callers mutating the shared answer set.
func cloneAttempt(attempt domain.Attempt) domain.Attempt {
	out := attempt
	if attempt.Answers != nil {
		out.Answers = make(domain.AnswerSet, len(attempt.Answers))
		for q, o := range attempt.Answers {
			out.Answers[q] = o
		}
	}
	return out
}

// BoardStore is an in-memory implementation of app.BoardRepository.
type BoardStore struct {
	mu     sync.Mutex
	boards map[string]*app.Board
}

func NewBoardStore() *BoardStore {
	return &BoardStore{boards: make(map[string]*app.Board)}
}

func (s *BoardStore) GetOrCreate(quizID string) *app.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[quizID]; ok {
		return board
	}
	board := app.NewBoard(quizID)
	s.boards[quizID] = board
	return board
}
