package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/content"
	"examprep-service/internal/domain"
	"examprep-service/internal/infra/postgres"
	infraredis "examprep-service/internal/infra/redis"
	"examprep-service/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

type stack struct {
	db      *bun.DB
	store   *postgres.Store
	catalog *postgres.Catalog
	redis   *goredis.Client
	board   *infraredis.Leaderboard
	grading *app.GradingService
}

func TestSubmitAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	result, err := s.grading.SubmitAttempt(ctx, "student-2", "q1", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := domain.AttemptResult{IsCorrect: true, CorrectAnswer: 1, XPEarned: 50, NewXP: 1000, NewLevel: 2, LeveledUp: true}
	if result != want {
		t.Fatalf("unexpected result %+v", result)
	}

	student, err := s.store.GetStudent(ctx, "student-2")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if student.XP != 1000 || student.Level != 2 {
		t.Fatalf("unexpected stored student %+v", student)
	}
	rank, ok, err := s.board.Rank(ctx, "student-2")
	if err != nil || !ok || rank != 2 {
		t.Fatalf("expected rank 2, got %d %v %v", rank, ok, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.grading.SubmitAttempt(ctx, "student-1", "q1", 0); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	entries, err := s.store.ListQuestProgress(ctx, "student-1", app.DayKey(time.Now()))
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(entries) != 1 || entries[0].QuestID != "dq-1" || entries[0].Progress != 3 || !entries[0].Completed {
		t.Fatalf("expected completed quiz count quest, got %+v", entries)
	}
}

func TestConcurrentAttemptsLoseNothing(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.grading.SubmitAttempt(ctx, "student-1", "q2", 0); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("attempt failed: %v", err)
	}

	student, err := s.store.GetStudent(ctx, "student-1")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if student.XP != n*100 || student.Level != 3 {
		t.Fatalf("expected %d xp at level 3, got %+v", n*100, student)
	}
	count, err := s.db.NewSelect().TableExpr("quiz_attempts").Where("student_id = ?", "student-1").Count(ctx)
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != n {
		t.Fatalf("expected %d attempts, got %d", n, count)
	}
	entries, err := s.store.ListQuestProgress(ctx, "student-1", app.DayKey(time.Now()))
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	for _, e := range entries {
		switch e.QuestID {
		case "dq-1":
			if e.Progress != n {
				t.Fatalf("expected quiz count %d, got %d", n, e.Progress)
			}
		case "dq-2":
			if e.Progress != n*100 {
				t.Fatalf("expected xp quest %d, got %d", n*100, e.Progress)
			}
		}
	}
}

func TestStoreCompareAndSwapAndRollback(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	ok, err := s.store.UpdateProgression(ctx, "student-1", 500, 600, 1)
	if err != nil || ok {
		t.Fatalf("stale expected xp must lose, ok=%v err=%v", ok, err)
	}
	if _, err := s.store.UpdateProgression(ctx, "ghost", 0, 1, 1); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	boom := errors.New("boom")
	key := domain.QuestKey{StudentID: "student-1", QuestID: "dq-1", Day: "2026-10-16"}
	err = s.store.Do(ctx, func(ctx context.Context, stores app.Stores) error {
		if _, err := stores.Students.UpdateProgression(ctx, "student-1", 0, 50, 1); err != nil {
			return err
		}
		if _, err := stores.Quests.IncrementQuestProgress(ctx, key, 1, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	student, _ := s.store.GetStudent(ctx, "student-1")
	if student.XP != 0 {
		t.Fatalf("xp write must roll back, got %d", student.XP)
	}
	entries, _ := s.store.ListQuestProgress(ctx, "student-1", key.Day)
	if len(entries) != 0 {
		t.Fatalf("quest write must roll back, got %+v", entries)
	}

	p, err := s.store.IncrementQuestProgress(ctx, key, 3, 3)
	if err != nil || !p.Completed || p.Progress != 3 {
		t.Fatalf("expected completed on first insert, got %+v %v", p, err)
	}
	p, err = s.store.IncrementQuestProgress(ctx, key, 1, 10)
	if err != nil || !p.Completed || p.Progress != 4 {
		t.Fatalf("completion must stay set, got %+v %v", p, err)
	}
}

func TestCatalogAndSeed(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	again, err := postgres.Seed(ctx, s.db, content.Default())
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if again != (postgres.SeedResult{}) {
		t.Fatalf("reseed must not insert rows, got %+v", again)
	}

	quizzes, err := s.catalog.ListQuizzes(ctx, "", 3)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(quizzes) != 3 || quizzes[0].ID != "q1" || quizzes[2].ID != "q3" || len(quizzes[0].Options) != 4 {
		t.Fatalf("unexpected quizzes %+v", quizzes)
	}
	if _, err := s.catalog.LoadQuiz(ctx, "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	def, err := s.catalog.GetQuestDefinitionByType(ctx, domain.QuestXPEarned)
	if err != nil || def.ID != "dq-2" || def.Target != 200 {
		t.Fatalf("unexpected quest %+v %v", def, err)
	}
	subjects, err := s.catalog.ListSubjects(ctx)
	if err != nil || len(subjects) != 5 {
		t.Fatalf("unexpected subjects %+v %v", subjects, err)
	}
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := postgres.OpenBun(pgURL)
	t.Cleanup(func() { db.Close() })
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := postgres.Seed(ctx, db, content.Default()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	catalog := postgres.NewCatalog(pool)
	store := postgres.NewStore(db)
	board := infraredis.NewLeaderboard(redisClient)
	if _, err := app.PrimeLeaderboard(ctx, store, board); err != nil {
		t.Fatalf("prime leaderboard: %v", err)
	}

	grading := app.NewGradingService(
		infraredis.NewQuizRepository(redisClient, catalog, 5*time.Minute, logging.Discard()),
		store,
		app.NewQuestTracker(catalog, store),
		infraredis.NewLocker(redisClient, 5*time.Second, 10*time.Second),
		app.WithLeaderboard(board),
	)
	return &stack{db: db, store: store, catalog: catalog, redis: redisClient, board: board, grading: grading}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "examprep", "POSTGRES_PASSWORD": "examprep", "POSTGRES_DB": "examprep"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://examprep:examprep@%s:%s/examprep?sslmode=disable", host, port.Port())
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
