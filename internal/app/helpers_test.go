package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/content"
	"examprep-service/internal/domain"
	"examprep-service/internal/infra/memory"
)

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

const testDay = "2026-10-16"

func testClock() time.Time { return testNow }

func testCatalog(quests ...domain.QuestDefinition) content.Catalog {
	if quests == nil {
		quests = []domain.QuestDefinition{
			{ID: "dq-1", Description: "Complete 3 quizzes", Type: domain.QuestQuizCount, Target: 3, XPReward: 150},
			{ID: "dq-2", Description: "Earn 200 XP today", Type: domain.QuestXPEarned, Target: 200, XPReward: 100},
		}
	}
	return content.Catalog{
		Subjects: []domain.Subject{{ID: "subj-1", Name: "Mathematics", MaxScore: 800}},
		Quizzes: []domain.Quiz{{
			ID:            "quiz-1",
			SubjectID:     "subj-1",
			Question:      "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "22"},
			CorrectAnswer: 1,
			Difficulty:    domain.DifficultyEasy,
			XP:            100,
		}},
		Quests: quests,
	}
}

type fixture struct {
	catalog *memory.StaticCatalog
	store   *memory.ProgressStore
	lb      *memory.Leaderboard
	events  *recordingPublisher
	service *app.GradingService
}

func newFixture(cat content.Catalog, students []domain.Student, opts ...app.GradingOption) *fixture {
	f := &fixture{
		catalog: memory.NewStaticCatalog(cat),
		store:   memory.NewProgressStore(students...),
		lb:      memory.NewLeaderboard(),
		events:  &recordingPublisher{},
	}
	f.service = f.build(f.store, opts...)
	return f
}

func (f *fixture) build(uow app.UnitOfWork, opts ...app.GradingOption) *app.GradingService {
	tracker := app.NewQuestTrackerWithClock(f.catalog, f.store, testClock)
	base := []app.GradingOption{
		app.WithClock(testClock),
		app.WithLeaderboard(f.lb),
		app.WithEvents(f.events),
		app.WithIDGenerator(sequentialIDs()),
	}
	return app.NewGradingService(
		memory.NewQuizRepository(f.catalog, time.Minute),
		uow,
		tracker,
		memory.NewKeyedLocker(),
		append(base, opts...)...,
	)
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("attempt-%d", n)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.fail
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// uowFunc adapts a function to app.UnitOfWork so tests can swap stores inside a transaction.
type uowFunc func(ctx context.Context, fn func(ctx context.Context, stores app.Stores) error) error

func (u uowFunc) Do(ctx context.Context, fn func(ctx context.Context, stores app.Stores) error) error {
	return u(ctx, fn)
}
