package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/pkg/detector"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"
)

func (s *detectionService) DetectUpload(ctx context.Context, upload Upload) (*entity.DetectionResult, error) {
	if upload.Body == nil {
		return nil, entity.ErrNoImage
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", entity.ErrNotImage, upload.ContentType)
	}

	out, err := s.detector.Detect(ctx, detector.Input{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Body:        upload.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("detect %q: %w", upload.Filename, err)
	}

	size := upload.Size
	if size <= 0 {
		size = out.BytesRead
	}

	result := &entity.DetectionResult{
		Success:    true,
		Timestamp:  entity.FormatTimestamp(s.now()),
		Filename:   upload.Filename,
		FileSize:   size,
		Detections: out.Detections,
	}

	s.publish(ctx, result, entity.SourceMultipart)
	return result, nil
}

func (s *detectionService) DetectEncoded(ctx context.Context, req entity.DetectRequest) (*entity.DetectionResult, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, entity.ErrNoImage
	}

	mode, err := entity.ParseDetectionMode(req.Type)
	if err != nil {
		return nil, err
	}

	data, err := s.decodeImage(req.Image)
	if err != nil {
		return nil, err
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.MIME.Type != "image" {
		return nil, entity.ErrNotImage
	}

	processID := s.newID()
	filename := processID + "." + kind.Extension

	out, err := s.detector.Detect(ctx, detector.Input{
		Filename:    filename,
		ContentType: kind.MIME.Value,
		Mode:        mode,
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", processID, err)
	}

	result := &entity.DetectionResult{
		ProcessID:  processID,
		Mode:       mode,
		Success:    true,
		Timestamp:  entity.FormatTimestamp(s.now()),
		Filename:   filename,
		FileSize:   int64(len(data)),
		Detections: out.Detections,
	}

	if err := s.repo.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("store result %s: %w", processID, err)
	}

	s.publish(ctx, result, entity.SourceJSON)
	return result, nil
}

func (s *detectionService) GetResult(ctx context.Context, processID string) (*entity.DetectionResult, error) {
	if _, err := uuid.Parse(processID); err != nil {
		return nil, entity.ErrResultNotFound
	}
	return s.repo.FindByID(ctx, processID)
}

// decodeImage accepts plain base64 and tolerates a data URL prefix.
func (s *detectionService) decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.IndexByte(encoded, ',')
		if idx < 0 {
			return nil, entity.ErrInvalidEncoding
		}
		encoded = encoded[idx+1:]
	}
	if encoded == "" {
		return nil, entity.ErrNoImage
	}

	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > s.maxUploadBytes+2 {
		return nil, entity.ErrTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidEncoding, err)
		}
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, entity.ErrTooLarge
	}
	return data, nil
}

// publish is best effort: the audit trail never fails a detection.
func (s *detectionService) publish(ctx context.Context, result *entity.DetectionResult, source entity.Source) {
	event := entity.DetectionEvent{
		ProcessID:  result.ProcessID,
		Mode:       result.Mode,
		Filename:   result.Filename,
		FileSize:   result.FileSize,
		Detections: len(result.Detections),
		Source:     source,
		OccurredAt: s.now().UTC(),
	}

	key := result.ProcessID
	if key == "" {
		key = result.Filename
	}

	if err := s.producer.SendMessage(ctx, key, event); err != nil {
		logrus.WithError(err).WithField("process_id", result.ProcessID).Warn("failed to publish detection event")
	}
}

func newProcessID() string {
	return uuid.New().String()
}
