package domain

import "time"

// Difficulty tags quiz content.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty tags.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Quiz is a single multiple-choice question with a fixed XP reward.
type Quiz struct {
	ID            string     `json:"id"`
	SubjectID     string     `json:"subjectId"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"` // zero-based index into Options
	Difficulty    Difficulty `json:"difficulty"`
	XP            int        `json:"xp"`
}

// Subject groups quizzes by exam subject.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxScore int    `json:"maxScore"`
}

// Student is the progression state of one student.
type Student struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}

// Attempt is the append-only audit record of one graded submission.
type Attempt struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"studentId"`
	QuizID         string    `json:"quizId"`
	SelectedAnswer int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	XPEarned       int       `json:"xpEarned"`
	AttemptedAt    time.Time `json:"attemptedAt"`
}

// AttemptResult is returned to the caller after grading.
type AttemptResult struct {
	IsCorrect     bool `json:"isCorrect"`
	CorrectAnswer int  `json:"correctAnswer"`
	XPEarned      int  `json:"xpEarned"`
	NewXP         int  `json:"newXp"`
	NewLevel      int  `json:"newLevel"`
	LeveledUp     bool `json:"leveledUp"`
}

// QuestType identifies what kind of event advances a daily quest.
type QuestType string

const (
	QuestQuizCount QuestType = "quiz_count"
	QuestXPEarned  QuestType = "xp_earned"
	QuestStreak    QuestType = "streak"
)

// QuestDefinition is immutable quest content.
type QuestDefinition struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Type        QuestType `json:"questType"`
	Target      int       `json:"target"`
	XPReward    int       `json:"xpReward"`
}

// QuestKey identifies one progress entry. Day is YYYY-MM-DD in UTC.
type QuestKey struct {
	StudentID string `json:"studentId"`
	QuestID   string `json:"questId"`
	Day       string `json:"date"`
}

// QuestProgress counts a student's progress on a quest for a single day.
// Completed never reverts to false once set.
type QuestProgress struct {
	QuestKey
	Progress  int       `json:"progress"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DailyQuest is a quest definition merged with the student's progress for today.
type DailyQuest struct {
	QuestDefinition
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}

// DashboardStats is the student's home screen summary.
type DashboardStats struct {
	XP             int          `json:"xp"`
	Level          int          `json:"level"`
	Streak         int          `json:"streak"`
	XPIntoLevel    int          `json:"xpIntoLevel"`
	XPForNextLevel int          `json:"xpForNextLevel"`
	DailyQuests    []DailyQuest `json:"dailyQuests"`
}

// LeaderboardEntry is one ranked row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	StudentID string `json:"id"`
	Username  string `json:"username"`
	XP        int    `json:"xp"`
	Level     int    `json:"level"`
}

// Leaderboard is the top of the XP ranking plus the caller's own rank.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"leaderboard"`
	MyRank  *int               `json:"myRank"`
}
