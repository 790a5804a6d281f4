package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examprep-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Catalog reads quiz, subject and quest content from Postgres.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

const quizColumns = `id, subject_id, question, options, correct_answer, difficulty, xp`

func (c *Catalog) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizzes returns quizzes in insertion order, optionally filtered by subject.
// A limit of zero or less means no limit.
func (c *Catalog) ListQuizzes(ctx context.Context, subjectID string, limit int) ([]domain.Quiz, error) {
	var lim any = limit
	if limit <= 0 {
		lim = nil // LIMIT NULL
	}
	var (
		rows pgx.Rows
		err  error
	)
	if subjectID == "" {
		rows, err = c.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at, id LIMIT $1`, lim)
	} else {
		rows, err = c.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE subject_id=$1 ORDER BY created_at, id LIMIT $2`, subjectID, lim)
	}
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (c *Catalog) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, name, max_score FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Subject, 0)
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.MaxScore); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetQuestDefinitionByType picks the first quest of the type by id.
func (c *Catalog) GetQuestDefinitionByType(ctx context.Context, questType domain.QuestType) (domain.QuestDefinition, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT id, description, quest_type, target, xp_reward FROM daily_quests WHERE quest_type=$1 ORDER BY id LIMIT 1`,
		string(questType))
	def, err := scanQuest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestDefinition{}, domain.ErrQuestNotFound
	}
	if err != nil {
		return domain.QuestDefinition{}, fmt.Errorf("load quest: %w", err)
	}
	return def, nil
}

func (c *Catalog) ListQuestDefinitions(ctx context.Context) ([]domain.QuestDefinition, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, description, quest_type, target, xp_reward FROM daily_quests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuestDefinition, 0)
	for rows.Next() {
		def, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz       domain.Quiz
		rawOptions []byte
		difficulty string
	)
	if err := row.Scan(&quiz.ID, &quiz.SubjectID, &quiz.Question, &rawOptions, &quiz.CorrectAnswer, &difficulty, &quiz.XP); err != nil {
		return domain.Quiz{}, err
	}
	if err := json.Unmarshal(rawOptions, &quiz.Options); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal options: %w", err)
	}
	quiz.Difficulty = domain.Difficulty(difficulty)
	return quiz, nil
}

func scanQuest(row pgx.Row) (domain.QuestDefinition, error) {
	var (
		def       domain.QuestDefinition
		questType string
	)
	if err := row.Scan(&def.ID, &def.Description, &questType, &def.Target, &def.XPReward); err != nil {
		return domain.QuestDefinition{}, err
	}
	def.Type = domain.QuestType(questType)
	return def, nil
}
