package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"flux-quiz-service/internal/app"
	"flux-quiz-service/internal/domain"
	pgstore "flux-quiz-service/internal/infra/postgres"
	pgmigrations "flux-quiz-service/internal/infra/postgres/migrations"
	infraredis "flux-quiz-service/internal/infra/redis"
)

func TestSoloAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	quizStore := pgstore.NewQuizLoader(pool)
	if err := quizStore.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, quizStore, 5*time.Minute)
	results := pgstore.NewResultStore(pool)
	attempts := app.NewAttemptService(quizRepo, results, nil)

	snap, err := attempts.Start(ctx, "quiz-1", "u1", "Alice")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if snap.Question == nil || snap.Question.Prompt == "" {
		t.Fatalf("expected prompt from cached quiz, got %+v", snap)
	}

	outcome, err := attempts.Submit(ctx, snap.ID, domain.AnswerSubmission{QuestionIndex: 0, Answer: "o2"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	outcome, err = attempts.Submit(ctx, snap.ID, domain.AnswerSubmission{QuestionIndex: 1, Answer: "FALSE"})
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if !outcome.Completed || outcome.Score != 1 {
		t.Fatalf("expected completed run with score 1, got %+v", outcome)
	}

	standings, err := results.QuizStandings(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 1 || standings[0].Score != 1 || standings[0].Mode != domain.ModeSolo {
		t.Fatalf("unexpected persisted standings: %+v", standings)
	}

	top, err := results.TopPlayers(ctx, 10)
	if err != nil {
		t.Fatalf("top players: %v", err)
	}
	if len(top) != 1 || top[0].UserID != "u1" {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		Title:   "Integration Sample",
		OwnerID: "m1",
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
				Answer: "o2",
				Points: 1,
			},
			{
				ID:     "q2",
				Type:   domain.QuestionTrueFalse,
				Prompt: "The capital of France is Paris.",
				Answer: "TRUE",
				Points: 1,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
