package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/domain"
	"github.com/uptrace/bun"
)

// Store persists students, attempts and quest progress with bun.
// Outside Do every call runs in its own implicit transaction.
type Store struct {
	queries
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return NewStoreWithClock(db, time.Now)
}

func NewStoreWithClock(db *bun.DB, now func() time.Time) *Store {
	return &Store{queries: queries{db: db, now: now}, db: db}
}

// Do runs fn inside one database transaction. Any error from fn rolls back.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, stores app.Stores) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		q := &queries{db: tx, now: s.now}
		return fn(ctx, app.Stores{Students: q, Attempts: q, Quests: q})
	})
}

type queries struct {
	db  bun.IDB
	now func() time.Time
}

func (q *queries) GetStudent(ctx context.Context, studentID string) (domain.Student, error) {
	var row studentRow
	err := q.db.NewSelect().Model(&row).Where("id = ?", studentID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	if err != nil {
		return domain.Student{}, err
	}
	return row.toDomain(), nil
}

// UpdateProgression is a compare-and-swap on xp.
func (q *queries) UpdateProgression(ctx context.Context, studentID string, expectedXP, xp, level int) (bool, error) {
	res, err := q.db.NewUpdate().
		Model((*studentRow)(nil)).
		Set("xp = ?", xp).
		Set("level = ?", level).
		Set("updated_at = ?", q.now().UTC()).
		Where("id = ?", studentID).
		Where("xp = ?", expectedXP).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	exists, err := q.db.NewSelect().Model((*studentRow)(nil)).Where("id = ?", studentID).Exists(ctx)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrStudentNotFound
	}
	return false, nil
}

func (q *queries) ListStudents(ctx context.Context) ([]domain.Student, error) {
	var rows []studentRow
	if err := q.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Student, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (q *queries) AppendAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := attemptRow{
		ID:             attempt.ID,
		StudentID:      attempt.StudentID,
		QuizID:         attempt.QuizID,
		SelectedAnswer: attempt.SelectedAnswer,
		IsCorrect:      attempt.IsCorrect,
		XPEarned:       attempt.XPEarned,
		AttemptedAt:    attempt.AttemptedAt,
	}
	_, err := q.db.NewInsert().Model(&row).Exec(ctx)
	return err
}

const upsertQuestProgress = `
INSERT INTO quest_progress AS qp (student_id, quest_id, day, progress, completed, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (student_id, quest_id, day) DO UPDATE SET
	progress   = qp.progress + EXCLUDED.progress,
	completed  = qp.completed OR qp.progress + EXCLUDED.progress >= ?,
	updated_at = EXCLUDED.updated_at
RETURNING student_id, quest_id, day, progress, completed, updated_at`

// IncrementQuestProgress is a single upsert so concurrent first events cannot
// both insert a fresh row.
func (q *queries) IncrementQuestProgress(ctx context.Context, key domain.QuestKey, delta, target int) (domain.QuestProgress, error) {
	var row questProgressRow
	err := q.db.NewRaw(upsertQuestProgress,
		key.StudentID, key.QuestID, key.Day, delta, delta >= target, q.now().UTC(), target,
	).Scan(ctx, &row)
	if err != nil {
		return domain.QuestProgress{}, err
	}
	return row.toDomain(), nil
}

func (q *queries) ListQuestProgress(ctx context.Context, studentID, day string) ([]domain.QuestProgress, error) {
	var rows []questProgressRow
	err := q.db.NewSelect().
		Model(&rows).
		Where("student_id = ?", studentID).
		Where("day = ?", day).
		Order("quest_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuestProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
