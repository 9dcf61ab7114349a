package stagecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agritrace/internal/domain"
	"agritrace/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "agritrace:stage:"

type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client}, nil
}

func (c *Redis) Get(ctx context.Context, workflowID string) (*domain.StageStatus, bool, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+workflowID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var status domain.StageStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		// A stale entry from an older schema is a miss, not a failure.
		_ = c.client.Del(ctx, redisKeyPrefix+workflowID).Err()
		return nil, false, nil
	}
	return &status, true, nil
}

func (c *Redis) Put(ctx context.Context, workflowID string, status domain.StageStatus, ttl time.Duration) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+workflowID, payload, ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, workflowID string) error {
	return c.client.Del(ctx, redisKeyPrefix+workflowID).Err()
}

var _ usecase.StageStatusCache = (*Redis)(nil)
