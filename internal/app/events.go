package app

import "time"

// Event topics published after an attempt commits.
const (
	TopicAttemptGraded  = "attempt.graded"
	TopicLevelUp        = "level.up"
	TopicQuestCompleted = "quest.completed"
)

type AttemptGradedEvent struct {
	AttemptID string    `json:"attemptId"`
	StudentID string    `json:"studentId"`
	QuizID    string    `json:"quizId"`
	IsCorrect bool      `json:"isCorrect"`
	XPEarned  int       `json:"xpEarned"`
	NewXP     int       `json:"newXp"`
	NewLevel  int       `json:"newLevel"`
	At        time.Time `json:"at"`
}

type LevelUpEvent struct {
	StudentID string    `json:"studentId"`
	OldLevel  int       `json:"oldLevel"`
	NewLevel  int       `json:"newLevel"`
	At        time.Time `json:"at"`
}

type QuestCompletedEvent struct {
	StudentID string    `json:"studentId"`
	QuestID   string    `json:"questId"`
	QuestType string    `json:"questType"`
	Day       string    `json:"date"`
	XPReward  int       `json:"xpReward"`
	At        time.Time `json:"at"`
}
