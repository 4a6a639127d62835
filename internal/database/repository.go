package database

import (
	"context"
	"time"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// ResultRepository keeps finished detection results addressable by process id.
type ResultRepository interface {
	Save(ctx context.Context, result *entity.DetectionResult) error
	FindByID(ctx context.Context, processID string) (*entity.DetectionResult, error)
}

type fileResultRepository struct {
	storage storage.FileStorage
	ttl     time.Duration
	now     func() time.Time
}

type redisResultRepository struct {
	client *redis.Client
	ttl    time.Duration
}
