package engine

import (
	"context"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
)

// Phase is the single finite state of a session. It replaces the separate
// loading/submitting/showResults flags a naive client would juggle, so
// impossible combinations cannot be represented.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseLoading
	PhaseReady
	PhaseRunning
	PhaseSubmitting
	PhaseGraded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	case PhaseSubmitting:
		return "submitting"
	case PhaseGraded:
		return "graded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is pushed to subscribers on phase transitions and watchdog ticks.
type Event struct {
	Phase     Phase
	Remaining time.Duration
	Summary   *domain.GradeSummary
}

// Session coordinates the timed lifecycle of exactly one quiz attempt:
// load questions, start the clock, buffer answer selections, enforce the
// deadline, and hand the buffer to the grading service exactly once.
type Session struct {
	quizID  string
	userID  string
	source  QuestionSource
	api     AttemptAPI
	history AttemptHistory
	confirm Confirmer
	now     func() time.Time
	tick    time.Duration

	mu          sync.Mutex
	phase       Phase
	quiz        domain.Quiz
	attempt     domain.Attempt
	answers     domain.AnswerSet
	deadline    time.Time
	summary     domain.GradeSummary
	inFlight    bool
	stopWatch   chan struct{}
	watchDone   chan struct{}
	subscribers map[chan Event]struct{}
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTick overrides the watchdog interval (default 1s).
func WithTick(d time.Duration) SessionOption {
	return func(s *Session) { s.tick = d }
}

// WithConfirmer installs the prompt hook for partial submits and retakes.
func WithConfirmer(c Confirmer) SessionOption {
	return func(s *Session) { s.confirm = c }
}

func NewSession(quizID, userID string, source QuestionSource, api AttemptAPI, history AttemptHistory, opts ...SessionOption) *Session {
	s := &Session{
		quizID:      quizID,
		userID:      userID,
		source:      source,
		api:         api,
		history:     history,
		confirm:     AlwaysConfirm{},
		now:         time.Now,
		tick:        time.Second,
		phase:       PhaseNotStarted,
		answers:     domain.AnswerSet{},
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadQuestions fetches the sanitized quiz. It must succeed before Start.
// A quiz with zero questions is a fatal precondition, not retried here;
// callers may call LoadQuestions again as an explicit retry affordance.
func (s *Session) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	if s.phase != PhaseNotStarted && s.phase != PhaseFailed {
		qs := s.quiz.Questions
		s.mu.Unlock()
		return qs, nil
	}
	s.phase = PhaseLoading
	s.mu.Unlock()

	quiz, err := s.source.Quiz(ctx, s.quizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseFailed
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		s.phase = PhaseFailed
		return nil, domain.ErrNoQuestions
	}
	s.quiz = quiz
	s.phase = PhaseReady
	return quiz.Questions, nil
}

// Start begins the attempt. It gates on the max-attempts policy using the
// history service, asks for confirmation when a prior attempt already passed,
// then calls the backend and arms the deadline watchdog. The deadline is
// computed from the server-returned start timestamp, not the local click time.
func (s *Session) Start(ctx context.Context) (domain.Attempt, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseReady:
	case PhaseRunning, PhaseSubmitting, PhaseGraded:
		s.mu.Unlock()
		return domain.Attempt{}, ErrAlreadyStarted
	default:
		s.mu.Unlock()
		return domain.Attempt{}, ErrNotReady
	}
	quiz := s.quiz
	s.mu.Unlock()

	if s.history != nil {
		past, err := s.history.ListAttempts(ctx, s.quizID, s.userID)
		if err != nil {
			return domain.Attempt{}, err
		}
		completed, passed := 0, false
		for _, a := range past {
			if a.Status.Terminal() {
				completed++
			}
			if a.Status == domain.StatusPassed {
				passed = true
			}
		}
		if quiz.MaxAttempts > 0 && completed >= quiz.MaxAttempts {
			return domain.Attempt{}, domain.ErrAttemptLimitReached
		}
		if passed && !s.confirm.ConfirmRetakeAfterPass() {
			return domain.Attempt{}, ErrRetakeDeclined
		}
	}

	attempt, err := s.api.Start(ctx, s.quizID, s.userID)
	if err != nil {
		return domain.Attempt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt = attempt
	s.answers = domain.AnswerSet{}
	s.phase = PhaseRunning
	if attempt.TimeLimitSec > 0 {
		s.deadline = attempt.StartedAt.Add(time.Duration(attempt.TimeLimitSec) * time.Second)
		s.stopWatch = make(chan struct{})
		s.watchDone = make(chan struct{})
		go s.watch(s.stopWatch, s.watchDone)
	}
	s.broadcastLocked(Event{Phase: PhaseRunning, Remaining: s.remainingLocked()})
	return attempt, nil
}

// SelectAnswer upserts into the answer buffer: last write per question wins.
// Pure local mutation; once the attempt is terminal the call is a no-op.
// Unknown question ids are ignored so the buffer never outgrows the quiz.
func (s *Session) SelectAnswer(questionID, optionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		return
	}
	for _, q := range s.quiz.Questions {
		if q.ID == questionID {
			s.answers[questionID] = optionID
			return
		}
	}
}

// Answers returns a snapshot of the current buffer.
func (s *Session) Answers() domain.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotAnswersLocked()
}

// Submit sends the buffered answers for grading. When some questions are
// unanswered, the configured Confirmer is consulted first; declining sends
// nothing. At most one submit is ever outstanding, and a submit failure
// releases the guard so the student can retry manually.
func (s *Session) Submit(ctx context.Context) (domain.GradeSummary, error) {
	return s.submit(ctx, false)
}

func (s *Session) submit(ctx context.Context, forced bool) (domain.GradeSummary, error) {
	s.mu.Lock()
	switch {
	case s.phase == PhaseGraded:
		s.mu.Unlock()
		if forced {
			return domain.GradeSummary{}, nil
		}
		return domain.GradeSummary{}, domain.ErrAttemptFinished
	case s.phase == PhaseSubmitting || s.inFlight:
		s.mu.Unlock()
		if forced {
			return domain.GradeSummary{}, nil
		}
		return domain.GradeSummary{}, ErrSubmitInFlight
	case s.phase != PhaseRunning:
		s.mu.Unlock()
		return domain.GradeSummary{}, ErrNotReady
	}
	answered := len(s.answers)
	total := len(s.quiz.Questions)
	if !forced && answered < total {
		s.mu.Unlock()
		// Prompt outside the lock; re-enter through submit so the in-flight
		// check runs again (a timeout may have fired meanwhile).
		if !s.confirm.ConfirmPartialSubmit(answered, total) {
			return domain.GradeSummary{}, ErrSubmitDeclined
		}
		return s.submitConfirmed(ctx)
	}
	return s.dispatchLocked(ctx)
}

// submitConfirmed skips the partial-answer prompt; used after it was accepted.
func (s *Session) submitConfirmed(ctx context.Context) (domain.GradeSummary, error) {
	s.mu.Lock()
	switch {
	case s.phase == PhaseGraded:
		s.mu.Unlock()
		return domain.GradeSummary{}, domain.ErrAttemptFinished
	case s.phase == PhaseSubmitting || s.inFlight:
		s.mu.Unlock()
		return domain.GradeSummary{}, ErrSubmitInFlight
	case s.phase != PhaseRunning:
		s.mu.Unlock()
		return domain.GradeSummary{}, ErrNotReady
	}
	return s.dispatchLocked(ctx)
}

// dispatchLocked performs the single grading round-trip. Caller holds mu;
// the lock is released for the network call and reacquired to settle state.
func (s *Session) dispatchLocked(ctx context.Context) (domain.GradeSummary, error) {
	s.inFlight = true
	s.phase = PhaseSubmitting
	attemptID := s.attempt.ID
	snapshot := s.snapshotAnswersLocked()
	s.mu.Unlock()

	summary, err := s.api.Submit(ctx, attemptID, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		// Attempt stays in progress locally so a manual retry can follow.
		// A forced submit never retries itself: the watchdog is single-shot.
		s.phase = PhaseRunning
		return domain.GradeSummary{}, err
	}
	s.summary = summary
	s.attempt.Status = summary.Status
	s.attempt.CorrectCount = summary.CorrectCount
	s.attempt.TotalQuestions = summary.TotalQuestions
	s.phase = PhaseGraded
	s.stopWatchLocked()
	s.broadcastLocked(Event{Phase: PhaseGraded, Summary: &summary})
	return summary, nil
}

// GradedDetail fetches the per-question review. Best effort: callers must
// still show the grade summary when this fails.
func (s *Session) GradedDetail(ctx context.Context) (domain.GradedDetail, error) {
	s.mu.Lock()
	if s.phase != PhaseGraded {
		s.mu.Unlock()
		return domain.GradedDetail{}, ErrNotGraded
	}
	attemptID := s.attempt.ID
	s.mu.Unlock()
	return s.api.Detail(ctx, attemptID)
}

// Summary returns the grade summary once the session is graded.
func (s *Session) Summary() (domain.GradeSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, s.phase == PhaseGraded
}

// Quiz returns the loaded quiz (policy fields are display-only here; the
// backend status stays authoritative).
func (s *Session) Quiz() domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Remaining reports time left until the deadline, and whether a deadline
// exists. It is recomputed from the wall clock, never decremented, so it
// stays correct across suspend/resume.
func (s *Session) Remaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadline.IsZero() {
		return 0, false
	}
	return s.remainingLocked(), true
}

// Subscribe returns a channel receiving phase transitions and watchdog ticks.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := Event{Phase: s.phase, Remaining: s.remainingLocked()}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close tears down the watchdog. Safe to call at any point, including after
// grading; the session keeps its terminal state.
func (s *Session) Close() {
	s.mu.Lock()
	done := s.watchDone
	s.stopWatchLocked()
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// watch is the 1 Hz deadline check. It recomputes remaining on every tick and
// fires the forced submit exactly once, then exits.
func (s *Session) watch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			remaining := s.remainingLocked()
			if remaining > 0 {
				s.broadcastLocked(Event{Phase: s.phase, Remaining: remaining})
				s.mu.Unlock()
				continue
			}
			s.mu.Unlock()
			// Deadline passed: single forced submit with whatever is
			// buffered, no confirmation prompt. Failures surface to
			// subscribers via the phase staying running; no auto-retry.
			_, _ = s.submit(context.Background(), true)
			return
		}
	}
}

func (s *Session) remainingLocked() time.Duration {
	if s.deadline.IsZero() {
		return 0
	}
	return s.deadline.Sub(s.now())
}

func (s *Session) snapshotAnswersLocked() domain.AnswerSet {
	out := make(domain.AnswerSet, len(s.answers))
	for q, o := range s.answers {
		out[q] = o
	}
	return out
}

func (s *Session) stopWatchLocked() {
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the stale event so slow consumers never block the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
