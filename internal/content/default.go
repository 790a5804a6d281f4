// Package content holds the default catalog used for demos, tests and database seeding.
package content

import "examprep-service/internal/domain"

// Catalog is a full set of static content plus demo students.
type Catalog struct {
	Subjects []domain.Subject
	Quizzes  []domain.Quiz
	Quests   []domain.QuestDefinition
	Students []domain.Student
}

// QuizMap indexes the quizzes by id.
func (c Catalog) QuizMap() map[string]domain.Quiz {
	m := make(map[string]domain.Quiz, len(c.Quizzes))
	for _, q := range c.Quizzes {
		m[q.ID] = q
	}
	return m
}

// Default returns the built-in catalog.
func Default() Catalog {
	return Catalog{
		Subjects: []domain.Subject{
			{ID: "subj-1", Name: "Mathematics", MaxScore: 800},
			{ID: "subj-2", Name: "English", MaxScore: 800},
			{ID: "subj-3", Name: "Mongolian", MaxScore: 800},
			{ID: "subj-4", Name: "Science", MaxScore: 800},
			{ID: "subj-5", Name: "Social Studies", MaxScore: 800},
		},
		Quizzes: []domain.Quiz{
			quiz("q1", "subj-1", "What is the value of x in the equation 2x + 5 = 15?", 1, domain.DifficultyEasy, 50, "3", "5", "7", "10"),
			quiz("q2", "subj-1", "If f(x) = 3x^2 - 2x + 1, what is f(2)?", 0, domain.DifficultyMedium, 100, "9", "11", "13", "15"),
			quiz("q3", "subj-1", "What is the derivative of x^3?", 2, domain.DifficultyMedium, 100, "x^2", "2x^2", "3x^2", "3x"),
			quiz("q4", "subj-1", "Solve for y: 3y - 7 = 20", 1, domain.DifficultyEasy, 50, "7", "9", "11", "13"),
			quiz("q5", "subj-2", "Choose the correct word: She _____ to the store yesterday.", 2, domain.DifficultyEasy, 50, "go", "goes", "went", "going"),
			quiz("q6", "subj-2", "What is the past participle of 'break'?", 1, domain.DifficultyMedium, 100, "breaked", "broken", "broke", "breaking"),
			quiz("q7", "subj-3", "What is the capital of Mongolia?", 2, domain.DifficultyEasy, 50, "Erdenet", "Darkhan", "Ulaanbaatar", "Choibalsan"),
			quiz("q8", "subj-4", "What is the chemical symbol for water?", 1, domain.DifficultyEasy, 50, "O2", "H2O", "CO2", "N2"),
			quiz("q9", "subj-4", "What is the powerhouse of the cell?", 1, domain.DifficultyMedium, 100, "Nucleus", "Mitochondria", "Ribosome", "Chloroplast"),
			quiz("q10", "subj-5", "In which year did World War II end?", 2, domain.DifficultyMedium, 100, "1943", "1944", "1945", "1946"),
		},
		Quests: []domain.QuestDefinition{
			{ID: "dq-1", Description: "Complete 3 quizzes", Type: domain.QuestQuizCount, Target: 3, XPReward: 150},
			{ID: "dq-2", Description: "Earn 200 XP today", Type: domain.QuestXPEarned, Target: 200, XPReward: 100},
			{ID: "dq-3", Description: "Maintain your streak", Type: domain.QuestStreak, Target: 1, XPReward: 50},
		},
		Students: []domain.Student{
			{ID: "student-1", Username: "bat", XP: 0, Level: 1},
			{ID: "student-2", Username: "saraa", XP: 950, Level: 1},
			{ID: "student-3", Username: "temuulen", XP: 2400, Level: 3, Streak: 4},
		},
	}
}

func quiz(id, subjectID, question string, correct int, difficulty domain.Difficulty, xp int, options ...string) domain.Quiz {
	return domain.Quiz{
		ID:            id,
		SubjectID:     subjectID,
		Question:      question,
		Options:       options,
		CorrectAnswer: correct,
		Difficulty:    difficulty,
		XP:            xp,
	}
}
