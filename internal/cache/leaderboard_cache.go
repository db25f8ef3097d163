package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for per-game standings
type LeaderboardCache interface {
	AddScore(ctx context.Context, gameCode, playerID string, points int) error
	GetTop(ctx context.Context, gameCode string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, gameCode, playerID string) (int64, error)
	Delete(ctx context.Context, gameCode string) error
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(gameCode string) string {
	return fmt.Sprintf("game:%s:lb", gameCode)
}

func (c *leaderboardCache) AddScore(ctx context.Context, gameCode, playerID string, points int) error {
	return c.client.ZIncrBy(ctx, c.key(gameCode), float64(points), playerID).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, gameCode string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(gameCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			PlayerID: z.Member.(string),
			Score:    int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, gameCode, playerID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(gameCode), playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Delete(ctx context.Context, gameCode string) error {
	return c.client.Del(ctx, c.key(gameCode)).Err()
}
