// Package camera provides the video sources the watch loop captures from:
// a local device via OpenCV, a deterministic synthetic pattern, and a
// still image for replay and tests.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

// Sentinel errors for source acquisition and use.
var (
	// ErrPermission is returned when the video device exists but access
	// to it was refused. Fatal at setup.
	ErrPermission = errors.New("camera: permission denied")

	// ErrNoDevice is returned when no usable video source is present.
	// Fatal at setup.
	ErrNoDevice = errors.New("camera: no usable video device")

	// ErrClosed is returned when grabbing from a closed source.
	ErrClosed = errors.New("camera: source closed")
)

// Frame is one captured video frame. Image pixels belong to the source
// pipeline; consumers draw from them but must not mutate them.
type Frame struct {
	// Seq increases by one per grabbed frame.
	Seq uint64

	// TraceID correlates a frame across capture, detection and logs.
	TraceID string

	// Time is the capture timestamp.
	Time time.Time

	// Image holds the frame pixels.
	Image *image.RGBA
}

// Source produces frames for the watch loop.
type Source interface {
	// Grab captures the current frame.
	Grab(ctx context.Context) (Frame, error)

	// Size returns the dimensions, in pixels, of frames the source
	// currently delivers.
	Size() (width, height int)

	// Close releases the underlying resources.
	Close() error
}
