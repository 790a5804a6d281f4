package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/config"
	"examprep-service/internal/content"
	"examprep-service/internal/domain"
	"examprep-service/internal/infra/memory"
	"examprep-service/internal/infra/postgres"
	"examprep-service/internal/infra/rabbitmq"
	infraredis "examprep-service/internal/infra/redis"
	"examprep-service/internal/logging"
	"examprep-service/internal/metrics"
	transport "examprep-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// contentSource is what both catalog backends provide.
type contentSource interface {
	app.ContentCatalog
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// progressBackend is what both progression store backends provide.
type progressBackend interface {
	app.UnitOfWork
	app.StudentStore
	app.StudentLister
	app.QuestProgressStore
}

type services struct {
	handler http.Handler
	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(serviceName, cfg.Log.Level)

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      svc.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting examprep service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildServices picks Postgres, Redis and RabbitMQ backends when configured and
// in-memory ones otherwise.
func buildServices(ctx context.Context, cfg config.Config, log *logrus.Entry) (*services, error) {
	svc := &services{}
	fail := func(err error) (*services, error) {
		svc.Close()
		return nil, err
	}

	auth, err := newTokenAuth(cfg)
	if err != nil {
		return nil, err
	}

	var (
		catalog contentSource
		store   progressBackend
	)
	if cfg.Postgres.URL != "" {
		db := postgres.OpenBun(cfg.Postgres.URL)
		svc.closers = append(svc.closers, func() { db.Close() })
		if _, err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		svc.closers = append(svc.closers, pool.Close)
		catalog = postgres.NewCatalog(pool)
		store = postgres.NewStore(db)
		log.Info("using postgres store")
	} else {
		cat := content.Default()
		catalog = memory.NewStaticCatalog(cat)
		store = memory.NewProgressStore(cat.Students...)
		log.Info("using in-memory store with demo content")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizzes app.QuizRepository
		locker  app.Locker
		board   app.Leaderboard
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		quizzes = infraredis.NewQuizRepository(client, catalog, config.TTLDuration(cfg.Redis.TTL, quizTTL), log)
		locker = infraredis.NewLocker(client,
			config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second),
			config.TTLDuration(cfg.Redis.LockWait, 2*time.Second))
		board = infraredis.NewLeaderboard(client)
	} else {
		quizzes = memory.NewQuizRepository(catalog, quizTTL)
		locker = memory.NewKeyedLocker()
		board = memory.NewLeaderboard()
	}

	var events app.EventPublisher = memory.NewLogPublisher(log)
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueuePrefix)
		if err != nil {
			return fail(err)
		}
		svc.closers = append(svc.closers, func() { publisher.Close() })
		events = publisher
	}

	primed, err := app.PrimeLeaderboard(ctx, store, board)
	if err != nil {
		return fail(err)
	}
	log.WithField("students", primed).Info("leaderboard primed")

	m := metrics.New()
	opts := append(gradingOptions(cfg),
		app.WithLeaderboard(board),
		app.WithEvents(events),
		app.WithMetrics(m),
		app.WithLogger(log),
	)
	grading := app.NewGradingService(quizzes, store, app.NewQuestTracker(catalog, store), locker, opts...)
	dashboard := app.NewDashboardService(store, catalog, store, board).
		WithLimits(cfg.Dashboard.MaxQuests, cfg.Dashboard.LeaderboardSize)
	feed := app.NewLeaderboardFeed(board, cfg.Dashboard.LeaderboardSize)

	svc.handler = transport.NewRouter(transport.RouterConfig{
		API:         transport.NewAPI(grading, dashboard, catalog, feed, log),
		WS:          transport.NewWSHandler(grading, dashboard, feed, auth, log),
		Auth:        auth,
		Metrics:     m,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	return svc, nil
}

// gradingOptions maps the grading config section onto service options.
func gradingOptions(cfg config.Config) []app.GradingOption {
	var opts []app.GradingOption
	if cfg.Grading.MaxCASRetries != nil {
		opts = append(opts, app.WithMaxCASRetries(*cfg.Grading.MaxCASRetries))
	}
	return opts
}
