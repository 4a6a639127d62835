package service

import (
	"context"
	"io"
	"time"

	"github.com/Mars1836/drug-recognition/internal/database"
	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/pkg/detector"
	"github.com/Mars1836/drug-recognition/internal/pkg/kafka"
)

// Upload is one multipart image part.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type DetectionService interface {
	DetectUpload(ctx context.Context, upload Upload) (*entity.DetectionResult, error)
	DetectEncoded(ctx context.Context, req entity.DetectRequest) (*entity.DetectionResult, error)
	GetResult(ctx context.Context, processID string) (*entity.DetectionResult, error)
}

type detectionService struct {
	detector       detector.Detector
	repo           database.ResultRepository
	producer       kafka.Producer
	maxUploadBytes int64
	now            func() time.Time
	newID          func() string
}

func NewDetectionService(d detector.Detector, repo database.ResultRepository, producer kafka.Producer, maxUploadBytes int64) DetectionService {
	return &detectionService{
		detector:       d,
		repo:           repo,
		producer:       producer,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		newID:          newProcessID,
	}
}
