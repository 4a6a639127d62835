package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []entity.DetectRequest
	response string
	err      error
	// release, when set, blocks Detect until closed.
	release chan struct{}
	started chan struct{}
}

func (b *fakeBackend) Detect(ctx context.Context, req entity.DetectRequest) (json.RawMessage, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return nil, b.err
	}
	return json.RawMessage(b.response), nil
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}

func TestSubmitWithoutFile(t *testing.T) {
	backend := &fakeBackend{response: `{}`}
	form := NewForm(backend)
	require.NoError(t, form.SelectMode("label"))

	err := form.Submit(context.Background())

	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, backend.calls())
	v := form.View()
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, MsgSelectImage, v.Error)
	assert.False(t, v.CanSubmit)
}

func TestSubmitWithoutMode(t *testing.T) {
	backend := &fakeBackend{response: `{}`}
	form := NewForm(backend)
	require.NoError(t, form.SelectFile("x.png", testPNG(t)))

	err := form.Submit(context.Background())

	assert.ErrorIs(t, err, ErrNoMode)
	assert.Zero(t, backend.calls())
	assert.Equal(t, MsgSelectType, form.View().Error)
}

func TestSubmitSendsBase64WithoutPrefix(t *testing.T) {
	data := testPNG(t)

	for _, mode := range []string{"label", "packaging"} {
		t.Run(mode, func(t *testing.T) {
			backend := &fakeBackend{response: `{"process_id":"abc-123","detections":[{"type":"Sample Detection"}]}`}
			form := NewForm(backend)
			require.NoError(t, form.SelectFile("x.png", data))
			require.NoError(t, form.SelectMode(mode))

			require.NoError(t, form.Submit(context.Background()))

			require.Equal(t, 1, backend.calls())
			req := backend.requests[0]
			assert.Equal(t, mode, req.Type)
			assert.False(t, strings.HasPrefix(req.Image, "data:"))
			assert.Equal(t, base64.StdEncoding.EncodeToString(data), req.Image)

			v := form.View()
			assert.Equal(t, StateSucceeded, v.State)
			assert.Equal(t, "abc-123", v.ProcessID)
			assert.Empty(t, v.Error)
			assert.Contains(t, v.ResultJSON, "\n  \"detections\": [")
			assert.True(t, v.CanSubmit)
		})
	}
}

func TestSubmitWithoutProcessID(t *testing.T) {
	backend := &fakeBackend{response: `{"success":true}`}
	form := NewForm(backend)
	require.NoError(t, form.SelectFile("x.png", testPNG(t)))
	require.NoError(t, form.SelectMode("label"))

	require.NoError(t, form.Submit(context.Background()))

	v := form.View()
	assert.Equal(t, StateSucceeded, v.State)
	assert.Empty(t, v.ProcessID)
	assert.JSONEq(t, `{"success":true}`, v.ResultJSON)
}

func TestSubmitBackendFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	form := NewForm(backend)
	require.NoError(t, form.SelectFile("x.png", testPNG(t)))
	require.NoError(t, form.SelectMode("packaging"))

	err := form.Submit(context.Background())

	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 1, backend.calls())
	v := form.View()
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, MsgDetectionError, v.Error)
	assert.Empty(t, v.ResultJSON)
	assert.Empty(t, v.ProcessID)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	backend := &fakeBackend{
		response: `{"process_id":"p-1"}`,
		release:  make(chan struct{}),
		started:  make(chan struct{}),
	}
	form := NewForm(backend)
	require.NoError(t, form.SelectFile("x.png", testPNG(t)))
	require.NoError(t, form.SelectMode("label"))

	done := make(chan error, 1)
	go func() { done <- form.Submit(context.Background()) }()
	<-backend.started

	v := form.View()
	assert.Equal(t, StateSubmitting, v.State)
	assert.False(t, v.CanSubmit)
	assert.ErrorIs(t, form.Submit(context.Background()), ErrSubmissionInFlight)
	assert.ErrorIs(t, form.SelectFile("y.png", testPNG(t)), ErrSubmissionInFlight)

	close(backend.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, backend.calls())
	assert.Equal(t, "p-1", form.View().ProcessID)
}

func TestSelectFileResetsOutcome(t *testing.T) {
	backend := &fakeBackend{response: `{"process_id":"p-1"}`}
	form := NewForm(backend)
	data := testPNG(t)
	require.NoError(t, form.SelectFile("x.png", data))
	require.NoError(t, form.SelectMode("label"))
	require.NoError(t, form.Submit(context.Background()))

	require.NoError(t, form.SelectFile("other.png", data))

	v := form.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Empty(t, v.ProcessID)
	assert.Empty(t, v.ResultJSON)
	assert.Empty(t, v.Error)
	assert.Equal(t, "other.png", v.Filename)
	assert.Equal(t, entity.ModeLabel, v.Mode)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data), v.Preview)
}

func TestSelectMode(t *testing.T) {
	form := NewForm(&fakeBackend{})

	assert.NoError(t, form.SelectMode("label"))
	assert.NoError(t, form.SelectMode("packaging"))
	assert.Equal(t, entity.ModePackaging, form.View().Mode)

	assert.ErrorIs(t, form.SelectMode("both"), entity.ErrInvalidMode)
	assert.Equal(t, entity.ModePackaging, form.View().Mode)
}

func TestSelectionMimeSniffing(t *testing.T) {
	form := NewForm(&fakeBackend{})

	require.NoError(t, form.SelectFile("x.png", testPNG(t)))
	assert.Equal(t, "image/png", form.Selection().MimeType)

	require.NoError(t, form.SelectFile("notes.txt", []byte("hello")))
	assert.Equal(t, "application/octet-stream", form.Selection().MimeType)
	assert.True(t, strings.HasPrefix(form.View().Preview, "data:application/octet-stream;base64,"))
}

func TestExtractProcessID(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"string", `{"process_id":"abc-123"}`, "abc-123"},
		{"number", `{"process_id":42}`, "42"},
		{"large number", `{"process_id":12345678901234567890}`, "12345678901234567890"},
		{"zero", `{"process_id":0}`, ""},
		{"empty string", `{"process_id":""}`, ""},
		{"null", `{"process_id":null}`, ""},
		{"bool", `{"process_id":true}`, ""},
		{"missing", `{"success":true}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := extractProcessID(json.RawMessage(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestSubmitNumericProcessID(t *testing.T) {
	backend := &fakeBackend{response: `{"process_id":7,"success":true}`}
	form := NewForm(backend)
	require.NoError(t, form.SelectFile("x.png", testPNG(t)))
	require.NoError(t, form.SelectMode("label"))

	require.NoError(t, form.Submit(context.Background()))

	assert.Equal(t, "7", form.View().ProcessID)
}
