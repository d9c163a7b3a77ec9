package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Color bars: White, Yellow, Cyan, Green, Magenta, Red, Blue, Black
var barColors = []color.RGBA{
	{R: 255, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 0, B: 0, A: 255},
}

// Synthetic generates a deterministic test pattern without touching any
// hardware: color bars with a white marker block that advances with the
// frame sequence, so consumers can see the feed is live.
type Synthetic struct {
	mu     sync.Mutex
	width  int
	height int
	seq    uint64
	closed bool
}

// NewSynthetic creates a synthetic source with the given frame size.
func NewSynthetic(width, height int) *Synthetic {
	return &Synthetic{width: width, height: height}
}

// Grab renders the next pattern frame. The pixels depend only on the
// frame size and sequence number.
func (s *Synthetic) Grab(ctx context.Context) (Frame, error) {
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
		Image:   renderPattern(s.width, s.height, s.seq),
	}, nil
}

func renderPattern(width, height int, seq uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	barWidth := width / len(barColors)
	if barWidth < 1 {
		barWidth = 1
	}
	for y := range height {
		for x := range width {
			barIndex := x / barWidth
			if barIndex >= len(barColors) {
				barIndex = len(barColors) - 1
			}
			img.Set(x, y, barColors[barIndex])
		}
	}

	// Marker block sliding along the bottom edge, one step per frame.
	block := height / 10
	if block < 4 {
		block = 4
	}
	span := width - block
	if span < 1 {
		span = 1
	}
	offset := int(seq*8) % span
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := height - block; y < height; y++ {
		for x := offset; x < offset+block && x < width; x++ {
			img.Set(x, y, white)
		}
	}

	return img
}

// Size returns the configured pattern dimensions.
func (s *Synthetic) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Apply resizes the generated pattern. Unlike a real device, the
// synthetic source honors requests exactly.
func (s *Synthetic) Apply(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.width = st.Width
	s.height = st.Height
	return nil
}

// Close marks the source closed.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
