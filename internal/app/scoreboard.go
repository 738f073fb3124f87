package app

import (
	"sort"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
)

// Board holds the ranked training scores for one quiz and fans updates out to
// subscribers. The latest graded attempt per student is the recorded score;
// retaking a quiz overwrites the previous entry.
type Board struct {
	quizID      string
	now         func() time.Time
	mu          sync.RWMutex
	entries     map[string]domain.ScoreEntry
	gradedAt    map[string]time.Time
	subscribers map[chan domain.Scoreboard]struct{}
}

func NewBoard(quizID string) *Board {
	return NewBoardWithClock(quizID, time.Now)
}

// NewBoardWithClock allows deterministic timestamps in tests.
func NewBoardWithClock(quizID string, now func() time.Time) *Board {
	return &Board{
		quizID:      quizID,
		now:         now,
		entries:     make(map[string]domain.ScoreEntry),
		gradedAt:    make(map[string]time.Time),
		subscribers: make(map[chan domain.Scoreboard]struct{}),
	}
}

// Record stores a student's graded result and broadcasts the new ranking.
func (b *Board) Record(userID string, summary domain.GradeSummary) domain.Scoreboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[userID] = domain.ScoreEntry{
		UserID:       userID,
		CorrectCount: summary.CorrectCount,
		PointsEarned: summary.PointsEarned,
		Status:       summary.Status,
	}
	b.gradedAt[userID] = b.now()
	return b.broadcastLocked()
}

// Subscribe returns a channel that receives scoreboard updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (b *Board) Subscribe() (<-chan domain.Scoreboard, func()) {
	ch := make(chan domain.Scoreboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current ranking without subscribing.
func (b *Board) Snapshot() domain.Scoreboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Board) broadcastLocked() domain.Scoreboard {
	board := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- board:
		default:
			// Drop the stale snapshot so slow clients never block grading.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
	return board
}

func (b *Board) snapshotLocked() domain.Scoreboard {
	entries := make([]domain.ScoreEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		entries = append(entries, entry)
	}

	// Points desc, then who got there first, then user id.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PointsEarned != entries[j].PointsEarned {
			return entries[i].PointsEarned > entries[j].PointsEarned
		}
		ti := b.gradedAt[entries[i].UserID]
		tj := b.gradedAt[entries[j].UserID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].UserID < entries[j].UserID
	})

	return domain.Scoreboard{
		QuizID:    b.quizID,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
