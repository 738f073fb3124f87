package memory

import (
	"context"
	"testing"
	"time"

	"campus-quiz-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	attempt := domain.Attempt{
		ID:        "a1",
		QuizID:    "quiz-1",
		UserID:    "u1",
		Status:    domain.StatusInProgress,
		StartedAt: time.Now(),
	}
	if err := store.Create(ctx, attempt); err != nil {
		t.Fatalf("create: %v", err)
	}

	attempt.Status = domain.StatusPassed
	attempt.Answers = domain.AnswerSet{"q1": "o2"}
	if err := store.Update(ctx, attempt); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPassed || got.Answers["q1"] != "o2" {
		t.Fatalf("unexpected attempt: %+v", got)
	}

	// Mutating the returned copy must not leak back into the store.
	got.Answers["q1"] = "o9"
	again, _ := store.Get(ctx, "a1")
	if again.Answers["q1"] != "o2" {
		t.Fatalf("store must hand out copies, got %v", again.Answers)
	}

	if _, err := store.Get(ctx, "missing"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected attempt not found, got %v", err)
	}
}

func TestAttemptStoreListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	base := time.Now()

	for i, id := range []string{"a1", "a2", "a3"} {
		_ = store.Create(ctx, domain.Attempt{
			ID:        id,
			QuizID:    "quiz-1",
			UserID:    "u1",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = store.Create(ctx, domain.Attempt{ID: "other", QuizID: "quiz-2", UserID: "u1", StartedAt: base})

	list, err := store.ListByUser(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "a3" {
		t.Fatalf("expected newest first for quiz-1, got %+v", list)
	}
}
