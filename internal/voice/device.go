package voice

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied means the OS refused access to the microphone
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceNotFound means there is no capture device to open
	ErrDeviceNotFound = errors.New("microphone not found")
)

// Constraints are the processing options requested when opening a device
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Device is a microphone
type Device interface {
	// Open acquires the device. Errors wrap ErrPermissionDenied or
	// ErrDeviceNotFound when the cause is known.
	Open(ctx context.Context, c Constraints) (Stream, error)
	// Supports reports whether a recorder can produce mimeType
	Supports(mimeType string) bool
}

// Stream is an acquired device. Close stops every track and must be called
// on every path that ends a session.
type Stream interface {
	Record(mimeType string, slice time.Duration, onData func([]byte)) (Recorder, error)
	Close() error
}

// Recorder encodes audio from a stream and hands it over in slices
type Recorder interface {
	// RequestData flushes whatever has been encoded so far
	RequestData()
	// Stop ends recording; the final slice is delivered before it returns
	Stop() error
	// MimeType is the format actually produced
	MimeType() string
}

// Player plays synthesized audio and returns when playback ends
type Player interface {
	Play(ctx context.Context, audio []byte, contentType string) error
}
