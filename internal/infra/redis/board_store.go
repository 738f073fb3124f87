package redis

import (
	"context"
	"sync"
	"time"

	"campus-quiz-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// BoardStore is a Redis-aware implementation of app.BoardRepository.
// Notes:
//   - It keeps a local in-memory map of boards to reuse the in-process
//     broadcast logic.
//   - Redis marks board liveness (and could be extended to share snapshots or
//     route cross-instance pub/sub).
//   - For true distribution you'd pair this with a pub/sub projector that fans
//     out scoreboard updates.
type BoardStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
	boards map[string]*app.Board
}

func NewBoardStore(client *redis.Client, ttl time.Duration) *BoardStore {
	return &BoardStore{
		client: client,
		ttl:    ttl,
		boards: make(map[string]*app.Board),
	}
}

func (s *BoardStore) GetOrCreate(quizID string) *app.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[quizID]; ok {
		return board
	}
	board := app.NewBoard(quizID)
	s.boards[quizID] = board
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(quizID), "1", s.ttl).Err()
	return board
}

func (s *BoardStore) key(quizID string) string {
	return "quiz:board:" + quizID
}
