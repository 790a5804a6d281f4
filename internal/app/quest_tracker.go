package app

import (
	"context"
	"errors"
	"time"

	"examprep-service/internal/domain"
)

const dayLayout = "2006-01-02"

// DayKey formats t as the UTC calendar day used to key quest progress.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// QuestUpdate is the outcome of advancing one quest.
type QuestUpdate struct {
	Quest         domain.QuestDefinition
	Progress      domain.QuestProgress
	JustCompleted bool
}

// QuestTracker advances per-day quest counters.
type QuestTracker struct {
	catalog QuestCatalog
	store   QuestProgressStore
	now     func() time.Time
}

// NewQuestTracker resolves quests from catalog and writes progress to store.
func NewQuestTracker(catalog QuestCatalog, store QuestProgressStore) *QuestTracker {
	return &QuestTracker{catalog: catalog, store: store, now: time.Now}
}

// NewQuestTrackerWithClock is test-only for deterministic days.
func NewQuestTrackerWithClock(catalog QuestCatalog, store QuestProgressStore, now func() time.Time) *QuestTracker {
	return &QuestTracker{catalog: catalog, store: store, now: now}
}

// WithStore returns a tracker writing through store, typically one bound to a transaction.
func (t *QuestTracker) WithStore(store QuestProgressStore) *QuestTracker {
	cp := *t
	cp.store = store
	return &cp
}

// Today returns the current day key.
func (t *QuestTracker) Today() string {
	return DayKey(t.now())
}

// RecordEvent counts one discrete event (e.g. one quiz attempt) toward the quest of questType.
// ok is false when no quest of that type is defined.
func (t *QuestTracker) RecordEvent(ctx context.Context, studentID string, questType domain.QuestType, day string) (QuestUpdate, bool, error) {
	return t.RecordDelta(ctx, studentID, questType, day, 1)
}

// RecordDelta advances the quest by delta, for quest types that measure amounts (e.g. XP earned today).
func (t *QuestTracker) RecordDelta(ctx context.Context, studentID string, questType domain.QuestType, day string, delta int) (QuestUpdate, bool, error) {
	if delta <= 0 {
		return QuestUpdate{}, false, nil
	}
	quest, err := t.catalog.GetQuestDefinitionByType(ctx, questType)
	if errors.Is(err, domain.ErrQuestNotFound) {
		return QuestUpdate{}, false, nil
	}
	if err != nil {
		return QuestUpdate{}, false, domain.ReadErr("get quest definition", err)
	}

	key := domain.QuestKey{StudentID: studentID, QuestID: quest.ID, Day: day}
	progress, err := t.store.IncrementQuestProgress(ctx, key, delta, quest.Target)
	if err != nil {
		return QuestUpdate{}, false, domain.WriteErr("increment quest progress", err)
	}

	return QuestUpdate{
		Quest:         quest,
		Progress:      progress,
		JustCompleted: progress.Completed && progress.Progress-delta < quest.Target,
	}, true, nil
}
