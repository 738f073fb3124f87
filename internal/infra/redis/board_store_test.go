package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBoardStoreSetsLivenessKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewBoardStore(client, time.Minute)

	board := store.GetOrCreate("quiz-1")
	if board == nil {
		t.Fatalf("expected board")
	}
	if !mr.Exists("quiz:board:quiz-1") {
		t.Fatalf("expected redis liveness key to be set")
	}

	if again := store.GetOrCreate("quiz-1"); again != board {
		t.Fatalf("expected the same board instance on repeat lookups")
	}
}
