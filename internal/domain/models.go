package domain

import "time"

// AttemptStatus is the lifecycle state of one attempt. An attempt is
// IN_PROGRESS until exactly one submission (manual or timeout) grades it.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusPassed     AttemptStatus = "PASSED"
	StatusFailed     AttemptStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s AttemptStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// Option is a possible answer for a question. Correct is stripped before
// questions are handed to a student mid-attempt.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Options  []Option `json:"options"`
	Points   int      `json:"points"` // defaults to 1 if zero
}

// Sanitized returns a copy safe to show during an attempt: no correctness flags.
func (q Question) Sanitized() Question {
	out := q
	out.Options = make([]Option, len(q.Options))
	for i, opt := range q.Options {
		out.Options[i] = Option{ID: opt.ID, Text: opt.Text}
	}
	return out
}

// Quiz is a collection of questions plus the attempt policy knobs.
// TimeLimitSec == 0 means untimed; MaxAttempts == 0 means unlimited.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	TimeLimitSec    int        `json:"timeLimitSec,omitempty"`
	RequiredCorrect int        `json:"requiredCorrect"`
	MaxAttempts     int        `json:"maxAttempts,omitempty"`
	Questions       []Question `json:"questions"`
}

// AnswerSet maps question id to the chosen option id. String-keyed end to end;
// wire payloads convert at the boundary, never per call site.
type AnswerSet map[string]string

// Attempt is one timed instance of a student taking a quiz.
type Attempt struct {
	ID             string        `json:"id"`
	QuizID         string        `json:"quizId"`
	UserID         string        `json:"userId"`
	Status         AttemptStatus `json:"status"`
	CorrectCount   int           `json:"correctCount"`
	TotalQuestions int           `json:"totalQuestions"`
	PointsEarned   int           `json:"pointsEarned"`
	TimeLimitSec   int           `json:"timeLimitSec,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	SubmittedAt    *time.Time    `json:"submittedAt,omitempty"`
	Answers        AnswerSet     `json:"-"`
}

// GradeSummary is the authoritative result of a submission. Status comes from
// the grader; clients must never recompute it locally.
type GradeSummary struct {
	CorrectCount   int           `json:"correctCount"`
	TotalQuestions int           `json:"totalQuestions"`
	Status         AttemptStatus `json:"status"`
	PointsEarned   int           `json:"pointsEarned,omitempty"`
}

// GradedOption is an option annotated for post-submission review.
type GradedOption struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	IsSelected bool   `json:"isSelected"`
}

// GradedQuestion is the per-question breakdown inside a GradedDetail.
type GradedQuestion struct {
	ID               string         `json:"id"`
	Prompt           string         `json:"questionText"`
	ImageURL         string         `json:"imageUrl,omitempty"`
	IsCorrect        bool           `json:"isCorrect"`
	SelectedOptionID string         `json:"selectedOptionId,omitempty"`
	CorrectOptionID  string         `json:"correctOptionId"`
	Options          []GradedOption `json:"options"`
	DisplayOrder     int            `json:"displayOrder"`
}

// GradedDetail is the read-only review view of a graded attempt.
type GradedDetail struct {
	Status         AttemptStatus    `json:"status"`
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	Questions      []GradedQuestion `json:"questions"`
}

// ScoreEntry is one row of a quiz scoreboard (best graded result per student).
type ScoreEntry struct {
	UserID       string        `json:"userId"`
	CorrectCount int           `json:"correctCount"`
	PointsEarned int           `json:"pointsEarned"`
	Status       AttemptStatus `json:"status"`
}

// Scoreboard captures the ordered ranking for a quiz.
type Scoreboard struct {
	QuizID    string       `json:"quizId"`
	Entries   []ScoreEntry `json:"entries"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
