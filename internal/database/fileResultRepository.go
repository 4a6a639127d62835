package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

// NewFileResultRepository stores results as json files. A result older than
// ttl is removed on lookup; ttl <= 0 keeps results forever.
func NewFileResultRepository(storage storage.FileStorage, ttl time.Duration) ResultRepository {
	return &fileResultRepository{storage: storage, ttl: ttl, now: time.Now}
}

func (r *fileResultRepository) Save(_ context.Context, result *entity.DetectionResult) error {
	if result.ProcessID == "" {
		return fmt.Errorf("save result: empty process id")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return r.storage.Save(r.getResultPath(result.ProcessID), bytes.NewReader(data))
}

func (r *fileResultRepository) FindByID(_ context.Context, processID string) (*entity.DetectionResult, error) {
	path := r.getResultPath(processID)
	if !r.storage.Exists(path) {
		return nil, entity.ErrResultNotFound
	}

	reader, err := r.storage.Get(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entity.ErrResultNotFound
		}
		return nil, err
	}
	defer reader.Close()

	var result entity.DetectionResult
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&result); err != nil {
		return nil, err
	}

	if r.expired(&result) {
		// Удаляем просроченный результат
		if err := r.storage.Delete(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("process_id", processID).Warn("Failed to delete expired result")
		}
		return nil, entity.ErrResultNotFound
	}

	return &result, nil
}

func (r *fileResultRepository) expired(result *entity.DetectionResult) bool {
	if r.ttl <= 0 {
		return false
	}
	createdAt, err := time.Parse(entity.TimestampLayout, result.Timestamp)
	if err != nil {
		return false
	}
	return r.now().Sub(createdAt) >= r.ttl
}

func (r *fileResultRepository) getResultPath(processID string) string {
	return filepath.Join("results", processID+".json")
}
