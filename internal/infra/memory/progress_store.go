package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/domain"
)

// ProgressStore is an in-memory implementation of the student, attempt and quest progress stores.
// Do applies a unit of work under the store lock and undoes its writes if it fails.
type ProgressStore struct {
	mu       sync.Mutex
	now      func() time.Time
	students map[string]domain.Student
	attempts []domain.Attempt
	quests   map[domain.QuestKey]domain.QuestProgress
}

func NewProgressStore(students ...domain.Student) *ProgressStore {
	s := &ProgressStore{
		now:      time.Now,
		students: make(map[string]domain.Student, len(students)),
		quests:   make(map[domain.QuestKey]domain.QuestProgress),
	}
	for _, st := range students {
		s.students[st.ID] = st
	}
	return s
}

// PutStudent creates or replaces a student record.
func (s *ProgressStore) PutStudent(student domain.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
}

func (s *ProgressStore) GetStudent(ctx context.Context, studentID string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txView{s: s}).GetStudent(ctx, studentID)
}

func (s *ProgressStore) UpdateProgression(ctx context.Context, studentID string, expectedXP, xp, level int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txView{s: s}).UpdateProgression(ctx, studentID, expectedXP, xp, level)
}

func (s *ProgressStore) ListStudents(_ context.Context) ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ProgressStore) AppendAttempt(ctx context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txView{s: s}).AppendAttempt(ctx, attempt)
}

// Attempts returns a copy of the attempt log.
func (s *ProgressStore) Attempts() []domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Attempt(nil), s.attempts...)
}

func (s *ProgressStore) IncrementQuestProgress(ctx context.Context, key domain.QuestKey, delta, target int) (domain.QuestProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txView{s: s}).IncrementQuestProgress(ctx, key, delta, target)
}

func (s *ProgressStore) ListQuestProgress(ctx context.Context, studentID, day string) ([]domain.QuestProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&txView{s: s}).ListQuestProgress(ctx, studentID, day)
}

// GetQuestProgress returns a single entry, false if absent.
func (s *ProgressStore) GetQuestProgress(key domain.QuestKey) (domain.QuestProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.quests[key]
	return p, ok
}

// Do runs fn with stores bound to this unit of work.
func (s *ProgressStore) Do(ctx context.Context, fn func(ctx context.Context, stores app.Stores) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txView{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
	}()
	return fn(ctx, app.Stores{Students: tx, Attempts: tx, Quests: tx})
}

// txView operates on the store maps with the lock already held and records undo steps.
type txView struct {
	s    *ProgressStore
	undo []func()
}

func (t *txView) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txView) GetStudent(_ context.Context, studentID string) (domain.Student, error) {
	st, ok := t.s.students[studentID]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return st, nil
}

func (t *txView) UpdateProgression(_ context.Context, studentID string, expectedXP, xp, level int) (bool, error) {
	prev, ok := t.s.students[studentID]
	if !ok {
		return false, domain.ErrStudentNotFound
	}
	if prev.XP != expectedXP {
		return false, nil
	}
	next := prev
	next.XP = xp
	next.Level = level
	t.s.students[studentID] = next
	t.undo = append(t.undo, func() { t.s.students[studentID] = prev })
	return true, nil
}

func (t *txView) AppendAttempt(_ context.Context, attempt domain.Attempt) error {
	n := len(t.s.attempts)
	t.s.attempts = append(t.s.attempts, attempt)
	t.undo = append(t.undo, func() { t.s.attempts = t.s.attempts[:n] })
	return nil
}

func (t *txView) IncrementQuestProgress(_ context.Context, key domain.QuestKey, delta, target int) (domain.QuestProgress, error) {
	prev, existed := t.s.quests[key]
	next := prev
	if !existed {
		next = domain.QuestProgress{QuestKey: key}
	}
	next.Progress += delta
	next.Completed = next.Completed || next.Progress >= target
	next.UpdatedAt = t.s.now()
	t.s.quests[key] = next

	t.undo = append(t.undo, func() {
		if existed {
			t.s.quests[key] = prev
		} else {
			delete(t.s.quests, key)
		}
	})
	return next, nil
}

func (t *txView) ListQuestProgress(_ context.Context, studentID, day string) ([]domain.QuestProgress, error) {
	out := make([]domain.QuestProgress, 0)
	for key, p := range t.s.quests {
		if key.StudentID == studentID && key.Day == day {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestID < out[j].QuestID })
	return out, nil
}
