package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestSyntheticGrab(t *testing.T) {
	src := NewSynthetic(160, 120)
	defer src.Close()

	w, h := src.Size()
	if w != 160 || h != 120 {
		t.Fatalf("Size: got %dx%d, want 160x120", w, h)
	}

	ctx := context.Background()
	first, err := src.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	if first.Seq != 1 {
		t.Errorf("Seq: got %d, want 1", first.Seq)
	}
	if first.TraceID == "" {
		t.Error("Expected a trace ID")
	}
	if b := first.Image.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
		t.Errorf("Frame bounds: got %v", b)
	}

	second, err := src.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	if second.Seq != 2 {
		t.Errorf("Seq: got %d, want 2", second.Seq)
	}

	// The marker block moves, so consecutive frames must differ.
	if equalRGBA(first.Image, second.Image) {
		t.Error("Consecutive synthetic frames should not be identical")
	}

	// The pattern is a pure function of size and sequence.
	if !equalRGBA(first.Image, renderPattern(160, 120, 1)) {
		t.Error("Synthetic frame is not deterministic for a given sequence")
	}
}

func TestSyntheticClosed(t *testing.T) {
	src := NewSynthetic(32, 32)
	src.Close()

	if _, err := src.Grab(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestSyntheticGrabCancelled(t *testing.T) {
	src := NewSynthetic(32, 32)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Grab(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStillGrab(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 48, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 48; x++ {
			base.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 7), B: 80, A: 255})
		}
	}

	src := NewStill(base)
	defer src.Close()

	if w, h := src.Size(); w != 48 || h != 36 {
		t.Fatalf("Size: got %dx%d, want 48x36", w, h)
	}

	ctx := context.Background()
	first, err := src.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	second, err := src.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}

	if !equalRGBA(first.Image, second.Image) {
		t.Error("Still frames must be identical")
	}
	if first.Seq == second.Seq {
		t.Error("Sequence numbers must advance")
	}
	if first.TraceID == second.TraceID {
		t.Error("Trace IDs must be fresh per frame")
	}
}

func TestOpenStillMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jpg")

	_, err := OpenStill(path)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func equalRGBA(a, b *image.RGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	if len(a.Pix) != len(b.Pix) {
		return false
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			return false
		}
	}
	return true
}
