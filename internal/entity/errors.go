package entity

import "errors"

var (
	// Upload errors
	ErrNoImage         = errors.New("no image provided")
	ErrNotImage        = errors.New("file must be an image")
	ErrTooLarge        = errors.New("file too large")
	ErrInvalidEncoding = errors.New("image must be base64 encoded")
	ErrInvalidMode     = errors.New("invalid detection type")

	// Result errors
	ErrResultNotFound = errors.New("result not found")
)
