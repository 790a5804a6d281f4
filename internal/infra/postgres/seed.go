package postgres

import (
	"context"
	"fmt"
	"time"

	"examprep-service/internal/content"
	"github.com/uptrace/bun"
)

// SeedResult counts rows written by Seed.
type SeedResult struct {
	Subjects int
	Quizzes  int
	Quests   int
	Students int
}

// Seed inserts catalog content. Existing rows are left untouched, so running it twice is safe.
func Seed(ctx context.Context, db *bun.DB, c content.Catalog) (SeedResult, error) {
	var res SeedResult
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if res.Subjects, err = insertIgnore(ctx, tx, subjectRows(c)); err != nil {
			return fmt.Errorf("seed subjects: %w", err)
		}
		if res.Quizzes, err = insertIgnore(ctx, tx, quizRows(c)); err != nil {
			return fmt.Errorf("seed quizzes: %w", err)
		}
		if res.Quests, err = insertIgnore(ctx, tx, questRows(c)); err != nil {
			return fmt.Errorf("seed quests: %w", err)
		}
		if res.Students, err = insertIgnore(ctx, tx, studentRows(c)); err != nil {
			return fmt.Errorf("seed students: %w", err)
		}
		return nil
	})
	return res, err
}

func insertIgnore[T any](ctx context.Context, tx bun.Tx, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := tx.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func subjectRows(c content.Catalog) []subjectRow {
	rows := make([]subjectRow, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		rows = append(rows, subjectRow{ID: s.ID, Name: s.Name, MaxScore: s.MaxScore})
	}
	return rows
}

// quizRows spaces created_at so listing keeps catalog order.
func quizRows(c content.Catalog) []quizRow {
	base := time.Now().UTC()
	rows := make([]quizRow, 0, len(c.Quizzes))
	for i, q := range c.Quizzes {
		rows = append(rows, quizRow{
			ID:            q.ID,
			SubjectID:     q.SubjectID,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Difficulty:    string(q.Difficulty),
			XP:            q.XP,
			CreatedAt:     base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return rows
}

func questRows(c content.Catalog) []questRow {
	rows := make([]questRow, 0, len(c.Quests))
	for _, q := range c.Quests {
		rows = append(rows, questRow{
			ID:          q.ID,
			Description: q.Description,
			QuestType:   string(q.Type),
			Target:      q.Target,
			XPReward:    q.XPReward,
		})
	}
	return rows
}

func studentRows(c content.Catalog) []studentRow {
	rows := make([]studentRow, 0, len(c.Students))
	for _, s := range c.Students {
		level := s.Level
		if level < 1 {
			level = 1
		}
		rows = append(rows, studentRow{
			ID:       s.ID,
			Username: s.Username,
			XP:       s.XP,
			Level:    level,
			Streak:   s.Streak,
		})
	}
	return rows
}
