package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"campus-quiz-service/internal/client"
	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/engine"
)

// NewPlayCmd drives one attempt session from the terminal, talking to a
// running server through the REST client. Mostly a smoke-test tool, but it
// exercises the exact flow a front-end would.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		serverURL string
		quizID    string
		userID    string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz attempt from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			tick := time.Second
			if cfg, err := config.Load(*configPath); err == nil {
				tick = config.TTLDuration(cfg.Engine.Tick, time.Second)
			}
			return runPlay(cmd.Context(), serverURL, quizID, userID, tick, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the quiz server")
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id to attempt")
	cmd.Flags().StringVar(&userID, "user", "", "student user id")
	_ = cmd.MarkFlagRequired("quiz")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runPlay(ctx context.Context, serverURL, quizID, userID string, tick time.Duration, in io.Reader, out io.Writer) error {
	api := client.New(client.Config{BaseURL: serverURL, UserID: userID})
	scanner := bufio.NewScanner(in)

	session := engine.NewSession(quizID, userID, api, api, api,
		engine.WithTick(tick),
		engine.WithConfirmer(&promptConfirmer{scanner: scanner, out: out}))
	defer session.Close()

	questions, err := session.LoadQuestions(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuestions) {
			fmt.Fprintln(out, "this quiz has no questions yet")
			return nil
		}
		return err
	}

	attempt, err := session.Start(ctx)
	switch {
	case errors.Is(err, domain.ErrAttemptLimitReached):
		fmt.Fprintln(out, "you already used all allowed attempts for this quiz")
		return nil
	case errors.Is(err, engine.ErrRetakeDeclined):
		fmt.Fprintln(out, "attempt cancelled")
		return nil
	case err != nil:
		return err
	}

	quiz := session.Quiz()
	fmt.Fprintf(out, "%s: %d questions, %d correct to pass\n", quiz.Title, len(questions), quiz.RequiredCorrect)
	if attempt.TimeLimitSec > 0 {
		fmt.Fprintf(out, "time limit: %ds\n", attempt.TimeLimitSec)
	}

	for i, q := range questions {
		if session.Phase() == engine.PhaseGraded {
			fmt.Fprintln(out, "time is up, attempt was submitted automatically")
			break
		}
		fmt.Fprintf(out, "\n%d) %s\n", i+1, q.Prompt)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %d. %s\n", j+1, opt.Text)
		}
		if remaining, ok := session.Remaining(); ok {
			fmt.Fprintf(out, "   (%s left) ", remaining.Round(time.Second))
		}
		fmt.Fprint(out, "answer (number, empty to skip): ")
		if !scanner.Scan() {
			break
		}
		choice := strings.TrimSpace(scanner.Text())
		if choice == "" {
			continue
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(q.Options) {
			fmt.Fprintln(out, "   skipped (not a valid option number)")
			continue
		}
		session.SelectAnswer(q.ID, q.Options[idx-1].ID)
	}

	summary, err := session.Submit(ctx)
	switch {
	case errors.Is(err, engine.ErrSubmitDeclined):
		fmt.Fprintln(out, "submission cancelled; attempt is still running until the deadline")
		return nil
	case errors.Is(err, domain.ErrAttemptFinished):
		// Timed out mid-play; the forced submit already graded it.
		if graded, ok := session.Summary(); ok {
			summary = graded
		}
	case err != nil:
		fmt.Fprintf(out, "submission failed: %v\nyour answers are kept, run play again to retry\n", err)
		return nil
	}

	fmt.Fprintf(out, "\nresult: %s, %d/%d correct, %d points\n",
		summary.Status, summary.CorrectCount, summary.TotalQuestions, summary.PointsEarned)

	detail, err := session.GradedDetail(ctx)
	if err != nil {
		// Review is an enhancement; the summary above is already shown.
		fmt.Fprintln(out, "(detailed review unavailable)")
		return nil
	}
	for _, q := range detail.Questions {
		mark := "✗"
		if q.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(out, " %s %d) %s\n", mark, q.DisplayOrder, q.Prompt)
	}
	return nil
}

// promptConfirmer asks the advisory questions on the terminal.
type promptConfirmer struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (c *promptConfirmer) ConfirmPartialSubmit(answered, total int) bool {
	fmt.Fprintf(c.out, "only %d of %d questions answered, submit anyway? [y/N] ", answered, total)
	return c.yes()
}

func (c *promptConfirmer) ConfirmRetakeAfterPass() bool {
	fmt.Fprint(c.out, "you already passed this quiz; a new attempt overwrites your recorded score, continue? [y/N] ")
	return c.yes()
}

func (c *promptConfirmer) yes() bool {
	if !c.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return answer == "y" || answer == "yes"
}
