package redis

import (
	"context"
	"encoding/json"
	"errors"

	"examprep-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey  = "leaderboard:xp"
	leaderboardInfo = "leaderboard:students"
)

// Leaderboard ranks students by XP in a sorted set; display data lives in a hash.
//
//	ZADD leaderboard:xp {xp} {studentID}
//	HSET leaderboard:students {studentID} {"username":..,"level":..}
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

type studentInfo struct {
	Username string `json:"username"`
	Level    int    `json:"level"`
}

func (l *Leaderboard) Record(ctx context.Context, entry domain.LeaderboardEntry) error {
	info, err := json.Marshal(studentInfo{Username: entry.Username, Level: entry.Level})
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(entry.XP), Member: entry.StudentID})
	pipe.HSet(ctx, leaderboardInfo, entry.StudentID, info)
	_, err = pipe.Exec(ctx)
	return err
}

func (l *Leaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	if len(zs) == 0 {
		return entries, nil
	}

	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i] = z.Member.(string)
	}
	infos, err := l.client.HMGet(ctx, leaderboardInfo, ids...).Result()
	if err != nil {
		return nil, err
	}

	for i, z := range zs {
		entry := domain.LeaderboardEntry{
			Rank:      i + 1,
			StudentID: ids[i],
			XP:        int(z.Score),
		}
		if raw, ok := infos[i].(string); ok {
			var info studentInfo
			if json.Unmarshal([]byte(raw), &info) == nil {
				entry.Username = info.Username
				entry.Level = info.Level
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Leaderboard) Rank(ctx context.Context, studentID string) (int, bool, error) {
	rank, err := l.client.ZRevRank(ctx, leaderboardKey, studentID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(rank) + 1, true, nil
}
