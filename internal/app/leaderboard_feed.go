package app

import (
	"context"
	"sync"

	"examprep-service/internal/domain"
)

// LeaderboardFeed fans leaderboard snapshots out to live subscribers
// (websocket connections). Each subscriber only ever sees the newest
// snapshot; slow readers lose intermediate ones.
type LeaderboardFeed struct {
	board Leaderboard
	size  int

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewLeaderboardFeed broadcasts the top size students; size <= 0 means 50.
func NewLeaderboardFeed(board Leaderboard, size int) *LeaderboardFeed {
	if size <= 0 {
		size = defaultLeaderboardSize
	}
	return &LeaderboardFeed{
		board:       board,
		size:        size,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel of snapshots. The caller must invoke cancel.
func (f *LeaderboardFeed) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 1)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Refresh reads the current top of the board and pushes it to every subscriber.
func (f *LeaderboardFeed) Refresh(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := f.board.Top(ctx, f.size)
	if err != nil {
		return domain.Leaderboard{}, domain.ReadErr("leaderboard top", err)
	}
	lb := domain.Leaderboard{Entries: entries}
	f.broadcast(lb)
	return lb, nil
}

// Subscribers reports how many live subscriptions exist.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *LeaderboardFeed) broadcast(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// replace the unread snapshot
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
