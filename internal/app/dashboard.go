package app

import (
	"context"
	"time"

	"examprep-service/internal/domain"
	"examprep-service/internal/progression"
)

const (
	defaultMaxQuests       = 3
	defaultLeaderboardSize = 50
)

// DashboardService serves the read-side views: daily quests and the leaderboard.
type DashboardService struct {
	students        StudentStore
	catalog         QuestCatalog
	quests          QuestProgressStore
	leaderboard     Leaderboard
	now             func() time.Time
	maxQuests       int
	leaderboardSize int
}

// NewDashboardService uses the default limits of 3 quests and 50 leaderboard rows.
func NewDashboardService(students StudentStore, catalog QuestCatalog, quests QuestProgressStore, leaderboard Leaderboard) *DashboardService {
	return &DashboardService{
		students:        students,
		catalog:         catalog,
		quests:          quests,
		leaderboard:     leaderboard,
		now:             time.Now,
		maxQuests:       defaultMaxQuests,
		leaderboardSize: defaultLeaderboardSize,
	}
}

// WithLimits overrides how many quests and leaderboard rows are returned. Zero keeps the default.
func (s *DashboardService) WithLimits(maxQuests, leaderboardSize int) *DashboardService {
	if maxQuests > 0 {
		s.maxQuests = maxQuests
	}
	if leaderboardSize > 0 {
		s.leaderboardSize = leaderboardSize
	}
	return s
}

// WithClock is test-only for deterministic days.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Stats returns the student's XP summary and today's quests merged with progress.
// Quests without an entry today report zero progress.
func (s *DashboardService) Stats(ctx context.Context, studentID string) (domain.DashboardStats, error) {
	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return domain.DashboardStats{}, domain.ReadErr("get student", err)
	}
	defs, err := s.catalog.ListQuestDefinitions(ctx)
	if err != nil {
		return domain.DashboardStats{}, domain.ReadErr("list quests", err)
	}
	entries, err := s.quests.ListQuestProgress(ctx, studentID, DayKey(s.now()))
	if err != nil {
		return domain.DashboardStats{}, domain.ReadErr("list quest progress", err)
	}

	byQuest := make(map[string]domain.QuestProgress, len(entries))
	for _, e := range entries {
		byQuest[e.QuestID] = e
	}

	quests := make([]domain.DailyQuest, 0, len(defs))
	for _, def := range defs {
		dq := domain.DailyQuest{QuestDefinition: def}
		if e, ok := byQuest[def.ID]; ok {
			dq.Progress = e.Progress
			dq.Completed = e.Completed
		}
		quests = append(quests, dq)
	}
	if len(quests) > s.maxQuests {
		quests = quests[:s.maxQuests]
	}

	level := progression.LevelForXP(student.XP)
	into, needed := progression.ProgressToNextLevel(student.XP)
	return domain.DashboardStats{
		XP:             student.XP,
		Level:          level,
		Streak:         student.Streak,
		XPIntoLevel:    into,
		XPForNextLevel: needed,
		DailyQuests:    quests,
	}, nil
}

// Leaderboard returns the top students by XP and the caller's own rank.
func (s *DashboardService) Leaderboard(ctx context.Context, studentID string) (domain.Leaderboard, error) {
	entries, err := s.leaderboard.Top(ctx, s.leaderboardSize)
	if err != nil {
		return domain.Leaderboard{}, domain.ReadErr("leaderboard top", err)
	}
	lb := domain.Leaderboard{Entries: entries}

	rank, ok, err := s.leaderboard.Rank(ctx, studentID)
	if err != nil {
		return domain.Leaderboard{}, domain.ReadErr("leaderboard rank", err)
	}
	if ok {
		lb.MyRank = &rank
	}
	return lb, nil
}

// PrimeLeaderboard loads every known student into the leaderboard.
func PrimeLeaderboard(ctx context.Context, students StudentLister, lb Leaderboard) (int, error) {
	all, err := students.ListStudents(ctx)
	if err != nil {
		return 0, domain.ReadErr("list students", err)
	}
	for _, st := range all {
		err := lb.Record(ctx, domain.LeaderboardEntry{
			StudentID: st.ID,
			Username:  st.Username,
			XP:        st.XP,
			Level:     progression.LevelForXP(st.XP),
		})
		if err != nil {
			return 0, domain.WriteErr("record leaderboard", err)
		}
	}
	return len(all), nil
}
