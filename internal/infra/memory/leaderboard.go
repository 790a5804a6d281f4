package memory

import (
	"context"
	"sort"
	"sync"

	"examprep-service/internal/domain"
)

// Leaderboard is an in-memory XP ranking.
type Leaderboard struct {
	mu      sync.RWMutex
	entries map[string]domain.LeaderboardEntry
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{entries: make(map[string]domain.LeaderboardEntry)}
}

func (l *Leaderboard) Record(_ context.Context, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Rank = 0
	l.entries[entry.StudentID] = entry
	return nil
}

func (l *Leaderboard) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	ranked := l.ranked()
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (l *Leaderboard) Rank(_ context.Context, studentID string) (int, bool, error) {
	for _, e := range l.ranked() {
		if e.StudentID == studentID {
			return e.Rank, true, nil
		}
	}
	return 0, false, nil
}

// ranked orders by XP desc, ties broken by student id so ranks are stable.
func (l *Leaderboard) ranked() []domain.LeaderboardEntry {
	l.mu.RLock()
	out := make([]domain.LeaderboardEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].StudentID < out[j].StudentID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
