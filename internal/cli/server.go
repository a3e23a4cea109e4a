package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"flux-quiz-service/internal/app"
	"flux-quiz-service/internal/config"
	"flux-quiz-service/internal/domain"
	"flux-quiz-service/internal/infra/memory"
	pgstore "flux-quiz-service/internal/infra/postgres"
	"flux-quiz-service/internal/infra/rabbit"
	redisstore "flux-quiz-service/internal/infra/redis"
	transport "flux-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader    memory.QuizLoader
		quizStore app.QuizStore
	)
	if pool != nil {
		pg := pgstore.NewQuizLoader(pool)
		loader, quizStore = pg, pg
	} else {
		static := memory.NewStaticQuizLoader(sampleQuizzes())
		loader, quizStore = static, static
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo  app.QuizRepository
		quizCache app.QuizCache
	)
	if redisClient != nil {
		cached := redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		quizRepo, quizCache = cached, cached
	} else {
		cached := memory.NewQuizRepository(loader, quizTTL)
		quizRepo, quizCache = cached, cached
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var results app.ResultStore
	if pool != nil {
		results = pgstore.NewResultStore(pool)
	} else {
		results = memory.NewResultStore()
	}

	var events app.EventPublisher = app.NopPublisher{}
	if cfg.Rabbit.URL != "" {
		exchange := cfg.Rabbit.Exchange
		if exchange == "" {
			exchange = "quiz.events"
		}
		publisher, err := rabbit.NewPublisher(cfg.Rabbit.URL, exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
	}

	attempts := app.NewAttemptService(quizRepo, results, events)
	arena := app.NewArenaService(sessions, quizRepo, results, events)
	arena.SetTiming(app.ArenaTiming{
		StartDelay:  config.Duration(cfg.Arena.StartDelay, 3*time.Second),
		QuestionGap: config.Duration(cfg.Arena.QuestionGap, 2*time.Second),
	})

	wsHandler := transport.NewWSHandler(arena)
	attemptHandler := transport.NewAttemptHandler(attempts, results)
	quizHandler := transport.NewQuizHandler(app.NewQuizService(quizStore, quizCache))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	attemptHandler.Register(mux)
	quizHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting flux quiz service on :%s", finalPort)
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

// sampleQuizzes provides demo content for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:      "quiz-1",
			Title:   "General Knowledge Warm-up",
			Subject: "general",
			OwnerID: "master-1",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Type:   domain.QuestionMCQ,
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4"},
						{ID: "o3", Text: "5"},
					},
					Answer:       "o2",
					Points:       1,
					TimeLimitSec: 15,
				},
				{
					ID:           "q2",
					Type:         domain.QuestionTrueFalse,
					Prompt:       "The capital of France is Paris.",
					Answer:       "TRUE",
					Points:       1,
					TimeLimitSec: 10,
				},
				{
					ID:           "q3",
					Type:         domain.QuestionShort,
					Prompt:       "Which planet is known as the red planet?",
					Answer:       "mars",
					Points:       2,
					TimeLimitSec: 20,
				},
			},
		},
	}
}
