// Package vision provides the object detection backends the detection
// service runs frames through.
package vision

import (
	"image"

	"github.com/harborlabs/seawatch/pkg/detect"
)

// Detector finds objects in a decoded frame. Boxes come back in the
// frame's own pixel space as corner coordinates.
type Detector interface {
	// Detect finds objects in the image.
	Detect(img image.Image) ([]detect.Detection, error)

	// Close releases resources.
	Close() error
}

// Func adapts a plain function to the Detector interface. Used by tests
// and by deployments that stub out inference.
type Func func(img image.Image) ([]detect.Detection, error)

// Detect calls f.
func (f Func) Detect(img image.Image) ([]detect.Detection, error) {
	return f(img)
}

// Close is a no-op.
func (f Func) Close() error { return nil }
