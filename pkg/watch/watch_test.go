package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/camera"
	"github.com/harborlabs/seawatch/pkg/detect"
	"github.com/harborlabs/seawatch/pkg/overlay"
)

type detectorFunc func(ctx context.Context, jpegData []byte, traceID string) ([]detect.Detection, error)

func (f detectorFunc) Detect(ctx context.Context, jpegData []byte, traceID string) ([]detect.Detection, error) {
	return f(ctx, jpegData, traceID)
}

type framePublisher struct {
	mu     sync.Mutex
	frames [][]byte
}

func (p *framePublisher) Publish(jpegData []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, jpegData)
}

func (p *framePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for y := range h {
		for x := range w {
			img.Set(x, y, gray)
		}
	}
	return img
}

func pixEqual(a, b *image.RGBA) bool {
	return a.Bounds() == b.Bounds() && bytes.Equal(a.Pix, b.Pix)
}

func TestTickSuccess(t *testing.T) {
	src := camera.NewStill(grayFrame(64, 48))
	defer src.Close()

	boat := detect.Detection{X1: 10, Y1: 20, X2: 40, Y2: 44, Label: "boat", Conf: 0.92}
	det := detectorFunc(func(ctx context.Context, jpegData []byte, traceID string) ([]detect.Detection, error) {
		if len(jpegData) < 2 || jpegData[0] != 0xff || jpegData[1] != 0xd8 {
			t.Error("Detector did not receive a JPEG frame")
		}
		if traceID == "" {
			t.Error("Detector did not receive a trace ID")
		}
		return []detect.Detection{boat}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())
	pub := &framePublisher{}
	l.SetPublisher(pub)

	l.tick(context.Background(), 1)

	if w, h := l.surface.Size(); w != 64 || h != 48 {
		t.Errorf("Surface size: got %dx%d, want 64x48", w, h)
	}

	snap := l.surface.Snapshot()
	green := color.RGBA{G: 255, A: 255}
	if got := snap.RGBAAt(10, 20); got != green {
		t.Errorf("Expected outline at (10,20), got %v", got)
	}

	if pub.count() != 1 {
		t.Errorf("Published frames: got %d, want 1", pub.count())
	}

	st := l.Status()
	if st.Ticks != 1 || st.Failures != 0 {
		t.Errorf("Status counters: got ticks=%d failures=%d", st.Ticks, st.Failures)
	}
	if st.LastDetections != 1 {
		t.Errorf("LastDetections: got %d, want 1", st.LastDetections)
	}
	if st.Width != 64 || st.Height != 48 {
		t.Errorf("Status dims: got %dx%d, want 64x48", st.Width, st.Height)
	}
}

func TestTickZeroDetections(t *testing.T) {
	frame := grayFrame(64, 48)
	src := camera.NewStill(frame)
	defer src.Close()

	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		return []detect.Detection{}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())
	l.tick(context.Background(), 1)

	expected := overlay.NewSurface(64, 48)
	expected.DrawImage(frame)

	if !pixEqual(expected.Snapshot(), l.surface.Snapshot()) {
		t.Error("Zero detections must render the raw frame and nothing else")
	}
}

func TestTickFailureLeavesSurface(t *testing.T) {
	src := camera.NewStill(grayFrame(64, 48))
	defer src.Close()

	var failing atomic.Bool
	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		if failing.Load() {
			return nil, &detect.StatusError{StatusCode: 500, Message: "inference failed"}
		}
		return []detect.Detection{{X1: 5, Y1: 30, X2: 30, Y2: 44, Label: "boat", Conf: 0.8}}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())
	pub := &framePublisher{}
	l.SetPublisher(pub)

	l.tick(context.Background(), 1)
	afterSuccess := l.surface.Snapshot()

	failing.Store(true)
	l.tick(context.Background(), 2)

	if !pixEqual(afterSuccess, l.surface.Snapshot()) {
		t.Error("A failed tick must not touch the surface")
	}
	if pub.count() != 1 {
		t.Errorf("Published frames: got %d, want 1", pub.count())
	}

	st := l.Status()
	if st.Failures != 1 {
		t.Errorf("Failures: got %d, want 1", st.Failures)
	}
	if st.LastDetections != 1 {
		t.Errorf("LastDetections after failed tick: got %d, want 1", st.LastDetections)
	}
}

func TestTickFullResolutionFrame(t *testing.T) {
	src := camera.NewStill(grayFrame(800, 600))
	defer src.Close()

	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		return []detect.Detection{{X1: 10, Y1: 10, X2: 100, Y2: 100, Label: "boat", Conf: 0.92}}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())
	l.tick(context.Background(), 1)

	if w, h := l.surface.Size(); w != 800 || h != 600 {
		t.Fatalf("Surface size: got %dx%d, want 800x600", w, h)
	}

	snap := l.surface.Snapshot()
	green := color.RGBA{G: 255, A: 255}
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}

	// Outline between the reported corners.
	for _, p := range []image.Point{{10, 10}, {99, 50}, {50, 99}, {11, 50}} {
		if got := snap.RGBAAt(p.X, p.Y); got != green {
			t.Errorf("Outline missing at %v: got %v", p, got)
		}
	}
	if got := snap.RGBAAt(50, 50); got != gray {
		t.Errorf("Box interior must stay the raw frame, got %v", got)
	}

	// Caption drawn above the box: background plus ink near (14, 4).
	var sawBg, sawInk bool
	for y := 0; y < 8; y++ {
		for x := 10; x < 90; x++ {
			switch snap.RGBAAt(x, y) {
			case green:
				sawBg = true
			case color.RGBA{A: 255}:
				sawInk = true
			}
		}
	}
	if !sawBg || !sawInk {
		t.Errorf("Caption above the box: background=%v ink=%v, want both", sawBg, sawInk)
	}
}

type resizingSource struct {
	mu     sync.Mutex
	frames []*image.RGBA
	seq    uint64
}

func (s *resizingSource) Grab(ctx context.Context) (camera.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.frames[0]
	if len(s.frames) > 1 {
		s.frames = s.frames[1:]
	}
	s.seq++
	return camera.Frame{Seq: s.seq, TraceID: "test", Time: time.Now(), Image: img}, nil
}

func (s *resizingSource) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.frames[0].Bounds()
	return b.Dx(), b.Dy()
}

func (s *resizingSource) Close() error { return nil }

func TestTickTracksSourceDimensions(t *testing.T) {
	src := &resizingSource{frames: []*image.RGBA{grayFrame(64, 48), grayFrame(100, 80)}}

	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		return []detect.Detection{}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())

	l.tick(context.Background(), 1)
	if w, h := l.surface.Size(); w != 64 || h != 48 {
		t.Errorf("Surface after first tick: got %dx%d, want 64x48", w, h)
	}

	l.tick(context.Background(), 2)
	if w, h := l.surface.Size(); w != 100 || h != 80 {
		t.Errorf("Surface after source resize: got %dx%d, want 100x80", w, h)
	}
}

func TestStaleTickDropped(t *testing.T) {
	src := camera.NewStill(grayFrame(64, 48))
	defer src.Close()

	var calls atomic.Uint64
	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		if calls.Add(1) == 1 {
			return []detect.Detection{{X1: 10, Y1: 20, X2: 40, Y2: 44, Label: "boat", Conf: 0.9}}, nil
		}
		return []detect.Detection{{X1: 2, Y1: 38, X2: 20, Y2: 46, Label: "buoy", Conf: 0.3}}, nil
	})

	l := New(DefaultConfig(), src, det, metrics.New())

	// The newer tick lands first; the older one must be discarded.
	l.tick(context.Background(), 2)
	committed := l.surface.Snapshot()

	l.tick(context.Background(), 1)

	if !pixEqual(committed, l.surface.Snapshot()) {
		t.Error("A stale tick must not overwrite a newer render")
	}
	if st := l.Status(); st.StaleDropped != 1 {
		t.Errorf("StaleDropped: got %d, want 1", st.StaleDropped)
	}
}

func TestRunTicksAndStops(t *testing.T) {
	src := camera.NewSynthetic(32, 32)
	defer src.Close()

	var calls atomic.Uint64
	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		calls.Add(1)
		return []detect.Detection{}, nil
	})

	cfg := DefaultConfig()
	cfg.Interval = 20 * time.Millisecond

	l := New(cfg, src, det, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	// One immediate tick plus several interval ticks.
	if calls.Load() < 2 {
		t.Errorf("Detector calls: got %d, want at least 2", calls.Load())
	}
	if l.Status().Running {
		t.Error("Loop still reports running after stop")
	}
}

func TestLoopAgainstHTTPService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("Expected /detect, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(detect.Response{
			Detections: []detect.Detection{
				{X1: 8, Y1: 16, X2: 28, Y2: 30, Label: "boat", Conf: 0.77},
			},
		})
	}))
	defer server.Close()

	src := camera.NewStill(grayFrame(48, 36))
	defer src.Close()

	client := detect.NewClient(detect.WithBaseURL(server.URL))
	defer client.Close()

	l := New(DefaultConfig(), src, client, metrics.New())
	l.tick(context.Background(), 1)

	green := color.RGBA{G: 255, A: 255}
	if got := l.surface.Snapshot().RGBAAt(8, 16); got != green {
		t.Errorf("Expected outline at (8,16), got %v", got)
	}
}

func TestTickGrabError(t *testing.T) {
	src := camera.NewStill(grayFrame(32, 32))
	src.Close() // grabbing now fails

	det := detectorFunc(func(context.Context, []byte, string) ([]detect.Detection, error) {
		t.Error("Detector must not be called when the grab fails")
		return nil, errors.New("unreachable")
	})

	l := New(DefaultConfig(), src, det, metrics.New())
	l.tick(context.Background(), 1)

	if st := l.Status(); st.Failures != 1 {
		t.Errorf("Failures: got %d, want 1", st.Failures)
	}
}
