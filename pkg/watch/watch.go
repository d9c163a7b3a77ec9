// Package watch runs the frame detection loop: grab a frame from the
// video source, submit it to the detection service, and on success redraw
// the render surface with the frame and its detections.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/camera"
	"github.com/harborlabs/seawatch/pkg/detect"
	"github.com/harborlabs/seawatch/pkg/overlay"
)

// Detector is the client side of the detection service.
type Detector interface {
	Detect(ctx context.Context, jpegData []byte, traceID string) ([]detect.Detection, error)
}

// Publisher receives each successfully annotated frame as JPEG.
type Publisher interface {
	Publish(jpegData []byte)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func([]byte)

// Publish calls f.
func (f PublisherFunc) Publish(jpegData []byte) { f(jpegData) }

// Loop owns the resources of one watch pipeline: the video source, the
// detection client and the render surface. Nothing here is global; two
// loops can run side by side against different sources.
type Loop struct {
	config    Config
	source    camera.Source
	detector  Detector
	surface   *overlay.Surface
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	seq     atomic.Uint64
	running atomic.Bool

	// mu serializes commits; committed is the sequence guard that keeps
	// a late detection response from overwriting a newer render.
	mu             sync.Mutex
	committed      uint64
	lastDetections int
	lastWidth      int
	lastHeight     int
}

// New creates a watch loop over the given source and detector.
func New(cfg Config, source camera.Source, detector Detector, m *metrics.Metrics) *Loop {
	cfg = cfg.withDefaults()
	w, h := source.Size()

	return &Loop{
		config:   cfg,
		source:   source,
		detector: detector,
		surface:  overlay.NewSurface(w, h),
		metrics:  m,
		logger:   slog.Default().With("component", "watch.loop"),
	}
}

// SetPublisher attaches a subscriber for annotated frames.
func (l *Loop) SetPublisher(p Publisher) {
	l.publisher = p
}

// Run drives the loop until ctx is cancelled. The first tick fires
// immediately; later ticks follow the configured interval. Each tick runs
// in its own goroutine so a slow detection response cannot stall the
// ticker, and the sequence guard keeps late results from clobbering
// newer ones. Run returns nil once the stop token fires.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	l.running.Store(true)
	defer l.running.Store(false)

	l.logger.Info("watch loop started", "interval", l.config.Interval)

	go l.tick(ctx, l.seq.Add(1))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("watch loop stopped")
			return nil
		case <-ticker.C:
			go l.tick(ctx, l.seq.Add(1))
		}
	}
}

// tick runs one capture+detect+draw cycle. Every failure path leaves the
// surface exactly as the last successful tick drew it: the grab and the
// wire encoding never touch the surface, and drawing happens only after
// the response parsed.
func (l *Loop) tick(ctx context.Context, seq uint64) {
	start := time.Now()
	l.metrics.Ticks.Add(1)

	frame, err := l.source.Grab(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.fail(seq, "grab", err)
		return
	}

	jpegData, err := overlay.EncodeJPEG(frame.Image, l.config.JPEGQuality)
	if err != nil {
		l.fail(seq, "encode", err)
		return
	}

	dets, err := l.detector.Detect(ctx, jpegData, frame.TraceID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.fail(seq, "detect", err)
		return
	}

	l.commit(seq, frame, dets, start)
}

// fail records a transient tick failure. No retry: the next tick stands
// on its own.
func (l *Loop) fail(seq uint64, stage string, err error) {
	l.metrics.TickFailures.Add(1)
	l.logger.Warn("tick aborted", "seq", seq, "stage", stage, "error", err)
}

// commit draws a tick's results unless a newer tick already committed.
func (l *Loop) commit(seq uint64, frame camera.Frame, dets []detect.Detection, start time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq <= l.committed {
		l.metrics.StaleCommits.Add(1)
		l.logger.Debug("stale tick dropped", "seq", seq, "committed", l.committed)
		return
	}
	l.committed = seq

	w := frame.Image.Bounds().Dx()
	h := frame.Image.Bounds().Dy()

	l.surface.Resize(w, h)
	l.surface.DrawImage(frame.Image)
	l.surface.DrawDetections(dets)

	l.lastDetections = len(dets)
	l.lastWidth, l.lastHeight = w, h
	l.metrics.DetectionsDrawn.Add(uint64(len(dets)))
	l.metrics.ObserveTick(start)

	if l.publisher != nil {
		annotated, err := l.surface.EncodeJPEG(l.config.JPEGQuality)
		if err != nil {
			l.logger.Warn("encode annotated frame", "seq", seq, "error", err)
			return
		}
		l.publisher.Publish(annotated)
		l.metrics.FramesPublished.Add(1)
	}

	l.logger.Debug("tick committed",
		"seq", seq,
		"detections", len(dets),
		"trace_id", frame.TraceID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// Status is a point-in-time snapshot of the loop.
type Status struct {
	Running        bool   `json:"running"`
	IntervalMs     int64  `json:"interval_ms"`
	Ticks          uint64 `json:"ticks"`
	Failures       uint64 `json:"failures"`
	StaleDropped   uint64 `json:"stale_dropped"`
	LastDetections int    `json:"last_detections"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Status reports the loop's current state.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Status{
		Running:        l.running.Load(),
		IntervalMs:     l.config.Interval.Milliseconds(),
		Ticks:          l.metrics.Ticks.Load(),
		Failures:       l.metrics.TickFailures.Load(),
		StaleDropped:   l.metrics.StaleCommits.Load(),
		LastDetections: l.lastDetections,
		Width:          l.lastWidth,
		Height:         l.lastHeight,
	}
}
