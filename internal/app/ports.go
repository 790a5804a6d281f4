package app

import (
	"context"

	"examprep-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestCatalog resolves daily quest definitions.
type QuestCatalog interface {
	// GetQuestDefinitionByType returns domain.ErrQuestNotFound when no quest of that type is active.
	GetQuestDefinitionByType(ctx context.Context, questType domain.QuestType) (domain.QuestDefinition, error)
	ListQuestDefinitions(ctx context.Context) ([]domain.QuestDefinition, error)
}

// ContentCatalog is the read-only content store.
type ContentCatalog interface {
	QuestCatalog
	ListQuizzes(ctx context.Context, subjectID string, limit int) ([]domain.Quiz, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
}

// StudentStore reads and updates student progression.
type StudentStore interface {
	GetStudent(ctx context.Context, studentID string) (domain.Student, error)
	// UpdateProgression writes xp and level only if the stored xp still equals expectedXP.
	// It reports false when the compare-and-swap lost.
	UpdateProgression(ctx context.Context, studentID string, expectedXP, xp, level int) (bool, error)
}

// StudentLister enumerates students, used to prime the leaderboard.
type StudentLister interface {
	ListStudents(ctx context.Context) ([]domain.Student, error)
}

// AttemptLog is the append-only attempt history.
type AttemptLog interface {
	AppendAttempt(ctx context.Context, attempt domain.Attempt) error
}

// QuestProgressStore owns quest progress entries.
type QuestProgressStore interface {
	// IncrementQuestProgress atomically inserts the entry with progress=delta or adds delta
	// to the existing one, keeping completion monotonic against target.
	IncrementQuestProgress(ctx context.Context, key domain.QuestKey, delta, target int) (domain.QuestProgress, error)
	ListQuestProgress(ctx context.Context, studentID, day string) ([]domain.QuestProgress, error)
}

// Stores is the set of writable stores bound to one unit of work.
type Stores struct {
	Students StudentStore
	Attempts AttemptLog
	Quests   QuestProgressStore
}

// UnitOfWork runs fn atomically: either every write in fn is kept or none is.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// Locker serializes work per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Leaderboard keeps the XP ranking.
type Leaderboard interface {
	Record(ctx context.Context, entry domain.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	// Rank returns the 1-based rank of the student, false if unranked.
	Rank(ctx context.Context, studentID string) (int, bool, error)
}

// EventPublisher fans domain events out to other services.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
