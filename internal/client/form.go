// Package client implements the upload form: one image, one detection mode,
// one submission at a time against a detection backend.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-visible messages.
const (
	MsgSelectImage    = "Please select an image to analyze"
	MsgSelectType     = "Please select a detection type"
	MsgDetectionError = "An error occurred during detection. Please try again."
)

var (
	ErrNoFile             = errors.New("no image selected")
	ErrNoMode             = errors.New("no detection type selected")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// Selection is the image the user picked.
type Selection struct {
	Filename string
	MimeType string
	Data     []byte
}

// View is a consistent snapshot of the form for rendering.
type View struct {
	State      State
	Filename   string
	Mode       entity.DetectionMode
	Preview    string
	Error      string
	ProcessID  string
	ResultJSON string
	CanSubmit  bool
}

type Form struct {
	backend Backend

	mu        sync.Mutex
	selection *Selection
	preview   string
	mode      entity.DetectionMode
	state     State
	errMsg    string
	result    json.RawMessage
	processID string
}

func NewForm(backend Backend) *Form {
	return &Form{backend: backend}
}

// SelectFile replaces the current image and clears any previous outcome.
func (f *Form) SelectFile(filename string, data []byte) error {
	mime := sniffMime(data)
	preview := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return ErrSubmissionInFlight
	}

	f.selection = &Selection{Filename: filename, MimeType: mime, Data: data}
	f.preview = preview
	f.reset()
	return nil
}

func (f *Form) SelectMode(mode string) error {
	m, err := entity.ParseDetectionMode(mode)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
	return nil
}

// Submit sends the selection to the backend. Validation failures never reach
// the network. The returned error is the detailed cause; View().Error holds
// the message meant for the user.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.state == StateSubmitting:
		f.mu.Unlock()
		return ErrSubmissionInFlight
	case f.selection == nil:
		f.failLocked(MsgSelectImage)
		f.mu.Unlock()
		return ErrNoFile
	case f.mode == "":
		f.failLocked(MsgSelectType)
		f.mu.Unlock()
		return ErrNoMode
	}

	f.state = StateSubmitting
	f.errMsg = ""
	selection := f.selection
	mode := f.mode
	f.mu.Unlock()

	req := entity.DetectRequest{
		Image: base64.StdEncoding.EncodeToString(selection.Data),
		Type:  string(mode),
	}
	raw, err := f.backend.Detect(ctx, req)

	var processID string
	if err == nil {
		processID, err = extractProcessID(raw)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"filename": selection.Filename,
			"mode":     mode,
		}).Error("detection request failed")
		f.failLocked(MsgDetectionError)
		return err
	}

	f.state = StateSucceeded
	f.result = raw
	f.processID = processID
	return nil
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		State:     f.state,
		Mode:      f.mode,
		Preview:   f.preview,
		Error:     f.errMsg,
		ProcessID: f.processID,
		CanSubmit: f.selection != nil && f.state != StateSubmitting,
	}
	if f.selection != nil {
		v.Filename = f.selection.Filename
	}
	if len(f.result) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, f.result, "", "  "); err == nil {
			v.ResultJSON = pretty.String()
		} else {
			v.ResultJSON = string(f.result)
		}
	}
	return v
}

// Selection returns the current image, or nil.
func (f *Form) Selection() *Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selection == nil {
		return nil
	}
	s := *f.selection
	return &s
}

func (f *Form) reset() {
	f.state = StateIdle
	f.errMsg = ""
	f.result = nil
	f.processID = ""
}

func (f *Form) failLocked(msg string) {
	f.state = StateFailed
	f.errMsg = msg
	f.result = nil
	f.processID = ""
}

// extractProcessID accepts a string or numeric id; empty values and zero
// count as absent.
func extractProcessID(raw json.RawMessage) (string, error) {
	var body map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return "", err
	}

	switch id := body["process_id"].(type) {
	case string:
		return id, nil
	case json.Number:
		if f, err := id.Float64(); err == nil && f == 0 {
			return "", nil
		}
		return id.String(), nil
	default:
		return "", nil
	}
}

func sniffMime(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}
