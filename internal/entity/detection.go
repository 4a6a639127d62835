package entity

import (
	"fmt"
	"time"
)

type DetectionMode string

const (
	ModeLabel     DetectionMode = "label"
	ModePackaging DetectionMode = "packaging"
)

func ParseDetectionMode(s string) (DetectionMode, error) {
	switch DetectionMode(s) {
	case ModeLabel, ModePackaging:
		return DetectionMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Detection struct {
	Type       string      `json:"type"`
	Confidence float64     `json:"confidence"`
	Location   BoundingBox `json:"location"`
}

type DetectionResult struct {
	ProcessID  string        `json:"process_id,omitempty"`
	Mode       DetectionMode `json:"type,omitempty"`
	Success    bool          `json:"success"`
	Timestamp  string        `json:"timestamp"`
	Filename   string        `json:"filename"`
	FileSize   int64         `json:"fileSize"`
	Detections []Detection   `json:"detections"`
}

// TimestampLayout matches the ISO-8601 form with millisecond precision in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DetectRequest is the JSON body of POST /api/v1/detect-drug.
type DetectRequest struct {
	Image string `json:"image"`
	Type  string `json:"type"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Source identifies which HTTP contract produced a detection.
type Source string

const (
	SourceMultipart Source = "multipart"
	SourceJSON      Source = "json"
)

// DetectionEvent is published to Kafka after every successful detection.
type DetectionEvent struct {
	ProcessID  string        `json:"process_id,omitempty"`
	Mode       DetectionMode `json:"mode,omitempty"`
	Filename   string        `json:"filename"`
	FileSize   int64         `json:"file_size"`
	Detections int           `json:"detections"`
	Source     Source        `json:"source"`
	OccurredAt time.Time     `json:"occurred_at"`
}
