package memory

import (
	"context"
	"errors"
	"testing"

	"examprep-service/internal/app"
	"examprep-service/internal/domain"
)

func TestProgressStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore(domain.Student{ID: "s1", XP: 950, Level: 1})

	ok, err := store.UpdateProgression(ctx, "s1", 900, 1000, 2)
	if err != nil || ok {
		t.Fatalf("expected stale cas to lose, ok=%v err=%v", ok, err)
	}
	ok, err = store.UpdateProgression(ctx, "s1", 950, 1050, 2)
	if err != nil || !ok {
		t.Fatalf("expected cas to win, ok=%v err=%v", ok, err)
	}
	st, _ := store.GetStudent(ctx, "s1")
	if st.XP != 1050 || st.Level != 2 {
		t.Fatalf("unexpected student %+v", st)
	}

	if _, err := store.GetStudent(ctx, "nobody"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestProgressStoreQuestIncrementIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	key := domain.QuestKey{StudentID: "s1", QuestID: "dq-1", Day: "2026-10-16"}

	p, _ := store.IncrementQuestProgress(ctx, key, 1, 2)
	if p.Progress != 1 || p.Completed {
		t.Fatalf("unexpected first entry %+v", p)
	}
	p, _ = store.IncrementQuestProgress(ctx, key, 1, 2)
	if p.Progress != 2 || !p.Completed {
		t.Fatalf("expected completion at target, got %+v", p)
	}
	// A later, higher target must not revert completion.
	p, _ = store.IncrementQuestProgress(ctx, key, 1, 10)
	if p.Progress != 3 || !p.Completed {
		t.Fatalf("completion reverted: %+v", p)
	}

	list, _ := store.ListQuestProgress(ctx, "s1", "2026-10-16")
	if len(list) != 1 {
		t.Fatalf("expected exactly one entry per key, got %d", len(list))
	}
}

func TestProgressStoreRollsBackFailedUnitOfWork(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore(domain.Student{ID: "s1", XP: 100, Level: 1})
	key := domain.QuestKey{StudentID: "s1", QuestID: "dq-1", Day: "2026-10-16"}
	boom := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context, s app.Stores) error {
		if _, err := s.Students.UpdateProgression(ctx, "s1", 100, 200, 1); err != nil {
			return err
		}
		if err := s.Attempts.AppendAttempt(ctx, domain.Attempt{ID: "a1"}); err != nil {
			return err
		}
		if _, err := s.Quests.IncrementQuestProgress(ctx, key, 1, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	st, _ := store.GetStudent(ctx, "s1")
	if st.XP != 100 {
		t.Fatalf("expected xp rolled back, got %d", st.XP)
	}
	if len(store.Attempts()) != 0 {
		t.Fatalf("expected attempt rolled back")
	}
	if _, ok := store.GetQuestProgress(key); ok {
		t.Fatalf("expected quest entry rolled back")
	}
}

func TestProgressStoreCommitsUnitOfWork(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore(domain.Student{ID: "s1", XP: 100, Level: 1})

	err := store.Do(ctx, func(ctx context.Context, s app.Stores) error {
		_, err := s.Students.UpdateProgression(ctx, "s1", 100, 1100, 2)
		return err
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	st, _ := store.GetStudent(ctx, "s1")
	if st.XP != 1100 || st.Level != 2 {
		t.Fatalf("expected committed progression, got %+v", st)
	}
}
