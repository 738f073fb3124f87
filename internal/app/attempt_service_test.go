package app_test

import (
	"context"
	"testing"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
)

func TestQuestionsAreSanitized(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	quiz, err := service.Questions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	for _, q := range quiz.Questions {
		for _, opt := range q.Options {
			if opt.Correct {
				t.Fatalf("sanitized question leaked answer key: %+v", q)
			}
		}
	}
	if quiz.RequiredCorrect != 2 || quiz.TimeLimitSec != 60 {
		t.Fatalf("policy fields must survive sanitizing, got %+v", quiz)
	}
}

func TestStartSubmitDetailFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	attempt, err := service.StartAttempt(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.Status != domain.StatusInProgress || attempt.TotalQuestions != 3 {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}

	summary, err := service.SubmitAttempt(ctx, attempt.ID, domain.AnswerSet{
		"q1": "o2", // correct
		"q2": "o1", // correct
		"q3": "o1", // wrong
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Status != domain.StatusPassed || summary.CorrectCount != 2 {
		t.Fatalf("expected PASSED 2/3, got %+v", summary)
	}

	detail, err := service.AttemptDetail(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Questions) != 3 {
		t.Fatalf("expected 3 graded questions, got %d", len(detail.Questions))
	}
	q3 := detail.Questions[2]
	if q3.IsCorrect || q3.SelectedOptionID != "o1" || q3.CorrectOptionID != "o3" {
		t.Fatalf("unexpected grading for q3: %+v", q3)
	}
	var selectedSeen, correctSeen bool
	for _, opt := range q3.Options {
		if opt.IsSelected {
			selectedSeen = true
		}
		if opt.IsCorrect {
			correctSeen = true
		}
	}
	if !selectedSeen || !correctSeen {
		t.Fatalf("graded options must flag selection and key: %+v", q3.Options)
	}
}

func TestSubmitIsSingleShot(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	attempt, _ := service.StartAttempt(ctx, "quiz-1", "u1")
	if _, err := service.SubmitAttempt(ctx, attempt.ID, domain.AnswerSet{"q1": "o2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.SubmitAttempt(ctx, attempt.ID, domain.AnswerSet{"q1": "o2"}); err != domain.ErrAttemptFinished {
		t.Fatalf("expected re-submit rejection, got %v", err)
	}
}

func TestDetailRequiresGradedAttempt(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	attempt, _ := service.StartAttempt(ctx, "quiz-1", "u1")
	if _, err := service.AttemptDetail(ctx, attempt.ID); err != domain.ErrAttemptInProgress {
		t.Fatalf("expected in-progress rejection, got %v", err)
	}
	if _, err := service.AttemptDetail(ctx, "missing"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMaxAttemptsEnforcedServerSide(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	for i := 0; i < 2; i++ {
		attempt, err := service.StartAttempt(ctx, "quiz-1", "u1")
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if _, err := service.SubmitAttempt(ctx, attempt.ID, nil); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := service.StartAttempt(ctx, "quiz-1", "u1"); err != domain.ErrAttemptLimitReached {
		t.Fatalf("expected limit error on third attempt, got %v", err)
	}
	// An unfinished attempt does not count against the limit for another user.
	if _, err := service.StartAttempt(ctx, "quiz-1", "u2"); err != nil {
		t.Fatalf("other user must still be allowed: %v", err)
	}
}

func TestEmptyQuizRejected(t *testing.T) {
	ctx := context.Background()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"empty": {ID: "empty", RequiredCorrect: 1},
	}), time.Minute)
	service := app.NewAttemptService(quizzes, memory.NewAttemptStore(), memory.NewBoardStore())

	if _, err := service.Questions(ctx, "empty"); err != domain.ErrNoQuestions {
		t.Fatalf("expected no-questions error, got %v", err)
	}
	if _, err := service.StartAttempt(ctx, "empty", "u1"); err != domain.ErrNoQuestions {
		t.Fatalf("start must refuse an empty quiz, got %v", err)
	}
}

func TestScoreboardReflectsLatestGrade(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	updates, cancel, err := service.WatchScoreboard(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()
	<-updates // initial snapshot

	attempt, _ := service.StartAttempt(ctx, "quiz-1", "u1")
	if _, err := service.SubmitAttempt(ctx, attempt.ID, domain.AnswerSet{"q1": "o2", "q2": "o1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	board := <-updates
	if len(board.Entries) != 1 || board.Entries[0].UserID != "u1" || board.Entries[0].PointsEarned != 2 {
		t.Fatalf("unexpected scoreboard: %+v", board.Entries)
	}
}

func newTestService(t *testing.T) *app.AttemptService {
	t.Helper()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz(),
	}), 5*time.Minute)
	return app.NewAttemptService(quizzes, memory.NewAttemptStore(), memory.NewBoardStore())
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Safety training checkpoint",
		TimeLimitSec:    60,
		RequiredCorrect: 2,
		MaxAttempts:     2,
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "First aid kit location?",
				Options: []domain.Option{
					{ID: "o1", Text: "Lobby"},
					{ID: "o2", Text: "Gym entrance", Correct: true},
				},
				Points: 1,
			},
			{
				ID:     "q2",
				Prompt: "Emergency number?",
				Options: []domain.Option{
					{ID: "o1", Text: "112", Correct: true},
					{ID: "o2", Text: "411"},
				},
				Points: 1,
			},
			{
				ID:     "q3",
				Prompt: "Assembly point?",
				Options: []domain.Option{
					{ID: "o1", Text: "Parking lot"},
					{ID: "o2", Text: "Roof"},
					{ID: "o3", Text: "Main field", Correct: true},
				},
				Points: 1,
			},
		},
	}
}
