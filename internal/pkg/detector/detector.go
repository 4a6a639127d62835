package detector

import (
	"context"
	"fmt"
	"io"

	"github.com/Mars1836/drug-recognition/internal/entity"
)

type Input struct {
	Filename    string
	ContentType string
	Mode        entity.DetectionMode
	Body        io.Reader
}

type Output struct {
	// BytesRead is the number of image bytes actually consumed.
	BytesRead  int64
	Detections []entity.Detection
}

type Detector interface {
	Detect(ctx context.Context, in Input) (*Output, error)
}

type stubDetector struct{}

// NewStubDetector returns a detector that consumes the image and reports the
// same single placeholder finding for every input.
func NewStubDetector() Detector {
	return &stubDetector{}
}

func (d *stubDetector) Detect(ctx context.Context, in Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Body == nil {
		return nil, entity.ErrNoImage
	}

	n, err := io.Copy(io.Discard, in.Body)
	if err != nil {
		return nil, fmt.Errorf("read image %q: %w", in.Filename, err)
	}

	return &Output{
		BytesRead:  n,
		Detections: SampleDetections(),
	}, nil
}

// SampleDetections returns a fresh copy on every call.
func SampleDetections() []entity.Detection {
	return []entity.Detection{
		{
			Type:       "Sample Detection",
			Confidence: 0.95,
			Location:   entity.BoundingBox{X: 120, Y: 80, Width: 200, Height: 150},
		},
	}
}
