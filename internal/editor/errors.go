package editor

import (
	"errors"
	"fmt"
)

// Editor errors.
var (
	// ErrInvalidSelection rejects annotation and format requests over an
	// empty or out-of-range selection. The document is left unchanged.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrUnknownFormat is returned for snapshot encodings other than json
	// and yaml.
	ErrUnknownFormat = errors.New("unknown snapshot format")

	// ErrInvalidSnapshot is returned when a snapshot references offsets
	// outside its own content.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// InitError reports which component failed while building an editor.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
