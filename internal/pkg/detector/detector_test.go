package detector

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestStubDetector(t *testing.T) {
	d := NewStubDetector()

	tests := []struct {
		name    string
		in      Input
		size    int64
		wantErr bool
	}{
		{
			name: "consumes whole body",
			in:   Input{Filename: "x.png", Body: bytes.NewReader(make([]byte, 1234))},
			size: 1234,
		},
		{
			name: "empty body",
			in:   Input{Filename: "empty.png", Body: bytes.NewReader(nil)},
			size: 0,
		},
		{
			name:    "read failure",
			in:      Input{Filename: "bad.png", Body: failingReader{}},
			wantErr: true,
		},
		{
			name:    "missing body",
			in:      Input{Filename: "none.png"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := d.Detect(context.Background(), tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, out.BytesRead)
			require.Len(t, out.Detections, 1)
			assert.Equal(t, 0.95, out.Detections[0].Confidence)
			assert.Equal(t, entity.BoundingBox{X: 120, Y: 80, Width: 200, Height: 150}, out.Detections[0].Location)
		})
	}
}

func TestStubDetectorHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStubDetector().Detect(ctx, Input{Body: bytes.NewReader([]byte{1})})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleDetectionsAreIndependentCopies(t *testing.T) {
	a := SampleDetections()
	a[0].Confidence = 0.1

	assert.Equal(t, 0.95, SampleDetections()[0].Confidence)
}
