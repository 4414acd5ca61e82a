package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trustlend-workers/internal/models"
)

// Cache fronts the postgres stores with redis for the hot matching paths.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func trustScoreKey(userID string) string {
	return fmt.Sprintf("trust:score:%s", userID)
}

func lenderKey(lenderID string) string {
	return fmt.Sprintf("lender:details:%s", lenderID)
}

// GetTrustScore returns the cached score for a user. The bool reports a
// cache hit; a miss is not an error.
func (c *Cache) GetTrustScore(ctx context.Context, userID string) (float64, bool, error) {
	val, err := c.client.Get(ctx, trustScoreKey(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached score for %s: %w", userID, err)
	}
	return score, true, nil
}

// SetTrustScore caches a freshly calculated score.
func (c *Cache) SetTrustScore(ctx context.Context, userID string, score float64, ttl time.Duration) error {
	return c.client.Set(ctx, trustScoreKey(userID), strconv.FormatFloat(score, 'f', -1, 64), ttl).Err()
}

// InvalidateTrustScore drops the cached score, forcing the next read back
// to postgres.
func (c *Cache) InvalidateTrustScore(ctx context.Context, userID string) error {
	return c.client.Del(ctx, trustScoreKey(userID)).Err()
}

// GetLender returns a cached lender profile if present.
func (c *Cache) GetLender(ctx context.Context, lenderID string) (*models.LenderProfile, bool, error) {
	val, err := c.client.Get(ctx, lenderKey(lenderID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var lender models.LenderProfile
	if err := json.Unmarshal([]byte(val), &lender); err != nil {
		return nil, false, fmt.Errorf("corrupt cached lender %s: %w", lenderID, err)
	}
	return &lender, true, nil
}

// SetLender caches a lender profile.
func (c *Cache) SetLender(ctx context.Context, lender *models.LenderProfile, ttl time.Duration) error {
	data, err := json.Marshal(lender)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, lenderKey(lender.ID), data, ttl).Err()
}
