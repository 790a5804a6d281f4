package memory

import (
	"context"
	"testing"

	"examprep-service/internal/domain"
)

func TestLeaderboardRanksByXP(t *testing.T) {
	ctx := context.Background()
	lb := NewLeaderboard()
	_ = lb.Record(ctx, domain.LeaderboardEntry{StudentID: "a", Username: "Alice", XP: 300})
	_ = lb.Record(ctx, domain.LeaderboardEntry{StudentID: "b", Username: "Bob", XP: 1200, Level: 2})
	_ = lb.Record(ctx, domain.LeaderboardEntry{StudentID: "c", Username: "Cara", XP: 300})
	_ = lb.Record(ctx, domain.LeaderboardEntry{StudentID: "a", Username: "Alice", XP: 400})

	top, _ := lb.Top(ctx, 2)
	if len(top) != 2 || top[0].StudentID != "b" || top[1].StudentID != "a" {
		t.Fatalf("unexpected top %+v", top)
	}
	if top[0].Rank != 1 || top[1].Rank != 2 {
		t.Fatalf("unexpected ranks %+v", top)
	}

	rank, ok, _ := lb.Rank(ctx, "c")
	if !ok || rank != 3 {
		t.Fatalf("expected c at rank 3, got %d %v", rank, ok)
	}
	if _, ok, _ := lb.Rank(ctx, "zed"); ok {
		t.Fatalf("expected unranked student")
	}
}
