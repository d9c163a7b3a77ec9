package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "image/jpeg"
	_ "image/png"
)

// Still serves one fixed frame over and over. It backs replay rigs and
// tests that need byte-identical captures.
type Still struct {
	mu     sync.Mutex
	img    *image.RGBA
	seq    uint64
	closed bool
}

// NewStill wraps an image as a source. The pixels are copied once; every
// grabbed frame shares the copy.
func NewStill(img image.Image) *Still {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Still{img: rgba}
}

// OpenStill loads a JPEG or PNG file as a source. Missing files map to
// ErrNoDevice and refused access to ErrPermission, matching the device
// acquisition contract.
func OpenStill(path string) (*Still, error) {
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, path)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermission, path)
	case err != nil:
		return nil, fmt.Errorf("camera: open still: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("camera: decode still %s: %w", path, err)
	}
	return NewStill(img), nil
}

// Grab returns the fixed frame with a fresh sequence number.
func (s *Still) Grab(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, ErrClosed
	}

	s.seq++
	return Frame{
		Seq:     s.seq,
		TraceID: uuid.NewString(),
		Time:    time.Now(),
		Image:   s.img,
	}, nil
}

// Size returns the still's dimensions.
func (s *Still) Size() (int, int) {
	return s.img.Bounds().Dx(), s.img.Bounds().Dy()
}

// Close marks the source closed.
func (s *Still) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
