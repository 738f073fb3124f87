package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
	pgstore "campus-quiz-service/internal/infra/postgres"
	redisstore "campus-quiz-service/internal/infra/redis"
	transport "campus-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptStore = memory.NewAttemptStore()
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
	}

	var boards app.BoardRepository
	if redisClient != nil {
		boards = redisstore.NewBoardStore(redisClient, redisTTL)
	} else {
		boards = memory.NewBoardStore()
	}

	service := app.NewAttemptService(quizRepo, attempts, boards)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Routes(r)
	r.Get("/ws/scoreboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal data set for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"orientation": {
			ID:              "orientation",
			Title:           "Campus orientation mini-game",
			TimeLimitSec:    120,
			RequiredCorrect: 2,
			MaxAttempts:     3,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Where is the student activity office?",
					Options: []domain.Option{
						{ID: "o1", Text: "Building A"},
						{ID: "o2", Text: "Building C", Correct: true},
						{ID: "o3", Text: "The gym"},
					},
					Points: 1,
				},
				{
					ID:     "q2",
					Prompt: "How do you sign up for an activity?",
					Options: []domain.Option{
						{ID: "o1", Text: "Through the activities portal", Correct: true},
						{ID: "o2", Text: "Email the dean"},
					},
					Points: 1,
				},
				{
					ID:     "q3",
					Prompt: "Training scores are ranked by?",
					Options: []domain.Option{
						{ID: "o1", Text: "Points earned", Correct: true},
						{ID: "o2", Text: "Alphabetical order"},
					},
					Points: 1,
				},
			},
		},
	}
}
