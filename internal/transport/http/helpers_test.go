package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/content"
	"examprep-service/internal/infra/memory"
	"examprep-service/internal/metrics"
)

type testEnv struct {
	server    *httptest.Server
	auth      *TokenAuth
	store     *memory.ProgressStore
	metrics   *metrics.Metrics
	feed      *app.LeaderboardFeed
	grading   *app.GradingService
	dashboard *app.DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	cat := content.Default()
	catalog := memory.NewStaticCatalog(cat)
	store := memory.NewProgressStore(cat.Students...)
	board := memory.NewLeaderboard()
	if _, err := app.PrimeLeaderboard(ctx, store, board); err != nil {
		t.Fatalf("prime leaderboard: %v", err)
	}

	m := metrics.New()
	grading := app.NewGradingService(
		memory.NewQuizRepository(catalog, time.Minute),
		store,
		app.NewQuestTracker(catalog, store),
		memory.NewKeyedLocker(),
		app.WithLeaderboard(board),
		app.WithMetrics(m),
	)
	dashboard := app.NewDashboardService(store, catalog, store, board)
	feed := app.NewLeaderboardFeed(board, 50)
	auth := NewTokenAuth("test-secret", time.Hour)

	handler := NewRouter(RouterConfig{
		API:     NewAPI(grading, dashboard, catalog, feed, nil),
		WS:      NewWSHandler(grading, dashboard, feed, auth, nil),
		Auth:    auth,
		Metrics: m,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testEnv{server: server, auth: auth, store: store, metrics: m, feed: feed, grading: grading, dashboard: dashboard}
}

func (e *testEnv) token(t *testing.T, studentID string) string {
	t.Helper()
	token, err := e.auth.Issue(studentID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
