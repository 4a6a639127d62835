package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/redis/go-redis/v9"
)

func NewRedisResultRepository(client *redis.Client, ttl time.Duration) ResultRepository {
	return &redisResultRepository{client: client, ttl: ttl}
}

func (r *redisResultRepository) Save(ctx context.Context, result *entity.DetectionResult) error {
	if result.ProcessID == "" {
		return fmt.Errorf("save result: empty process id")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, resultKey(result.ProcessID), data, r.ttl).Err()
}

func (r *redisResultRepository) FindByID(ctx context.Context, processID string) (*entity.DetectionResult, error) {
	data, err := r.client.Get(ctx, resultKey(processID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entity.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result %s: %w", processID, err)
	}

	var result entity.DetectionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func resultKey(processID string) string {
	return "detection:result:" + processID
}
