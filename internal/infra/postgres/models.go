package postgres

import (
	"time"

	"examprep-service/internal/domain"
	"github.com/uptrace/bun"
)

type subjectRow struct {
	bun.BaseModel `bun:"table:subjects"`

	ID       string `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	MaxScore int    `bun:"max_score,notnull"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID            string    `bun:"id,pk"`
	SubjectID     string    `bun:"subject_id,notnull"`
	Question      string    `bun:"question,notnull"`
	Options       []string  `bun:"options,type:jsonb,notnull"`
	CorrectAnswer int       `bun:"correct_answer,notnull"`
	Difficulty    string    `bun:"difficulty,notnull"`
	XP            int       `bun:"xp,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type studentRow struct {
	bun.BaseModel `bun:"table:students"`

	ID        string    `bun:"id,pk"`
	Username  string    `bun:"username,notnull"`
	XP        int       `bun:"xp,notnull"`
	Level     int       `bun:"level,notnull"`
	Streak    int       `bun:"streak,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r studentRow) toDomain() domain.Student {
	return domain.Student{
		ID:       r.ID,
		Username: r.Username,
		XP:       r.XP,
		Level:    r.Level,
		Streak:   r.Streak,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts"`

	ID             string    `bun:"id,pk"`
	StudentID      string    `bun:"student_id,notnull"`
	QuizID         string    `bun:"quiz_id,notnull"`
	SelectedAnswer int       `bun:"selected_answer,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	XPEarned       int       `bun:"xp_earned,notnull"`
	AttemptedAt    time.Time `bun:"attempted_at,nullzero,notnull,default:current_timestamp"`
}

type questRow struct {
	bun.BaseModel `bun:"table:daily_quests"`

	ID          string `bun:"id,pk"`
	Description string `bun:"description,notnull"`
	QuestType   string `bun:"quest_type,notnull"`
	Target      int    `bun:"target,notnull"`
	XPReward    int    `bun:"xp_reward,notnull"`
}

type questProgressRow struct {
	bun.BaseModel `bun:"table:quest_progress"`

	StudentID string    `bun:"student_id,pk"`
	QuestID   string    `bun:"quest_id,pk"`
	Day       string    `bun:"day,pk"`
	Progress  int       `bun:"progress,notnull"`
	Completed bool      `bun:"completed,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r questProgressRow) toDomain() domain.QuestProgress {
	return domain.QuestProgress{
		QuestKey:  domain.QuestKey{StudentID: r.StudentID, QuestID: r.QuestID, Day: r.Day},
		Progress:  r.Progress,
		Completed: r.Completed,
		UpdatedAt: r.UpdatedAt,
	}
}
