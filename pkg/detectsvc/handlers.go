package detectsvc

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	xdraw "golang.org/x/image/draw"

	"github.com/harborlabs/seawatch/pkg/detect"
	"github.com/harborlabs/seawatch/pkg/store"

	_ "image/jpeg"
	_ "image/png"
)

// handleIndex serves a one-line index page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString("<h1>seawatch detection service</h1><p>POST /detect, rows at /csv-data.</p>")
}

// handleHealth reports liveness and whether a model is loaded.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"detector": s.detector != nil,
	})
}

// handleDetect accepts one frame, either as a JSON data URL or a
// multipart upload, runs inference and returns the detections in the
// submitted frame's pixel space.
func (s *Server) handleDetect(c *fiber.Ctx) error {
	// Single-flight gate: a second concurrent frame bounces instead
	// of queueing behind a slow inference.
	if !s.busy.CompareAndSwap(false, true) {
		s.metrics.DetectBusy.Add(1)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "busy"})
	}
	defer s.busy.Store(false)

	s.metrics.DetectRequests.Add(1)
	traceID := c.Get("X-Trace-Id")

	raw, err := s.readImage(c)
	if err != nil {
		s.metrics.DetectFailures.Add(1)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to decode image"})
	}
	if raw == nil {
		s.metrics.DetectFailures.Add(1)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no image provided"})
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		s.metrics.DetectFailures.Add(1)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to decode image"})
	}

	if s.detector == nil {
		s.metrics.DetectFailures.Add(1)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "model not available"})
	}

	scaled, sx, sy := downscale(img, s.config.TargetWidth)

	start := time.Now()
	dets, err := s.detector.Detect(scaled)
	if err != nil {
		s.metrics.DetectFailures.Add(1)
		s.logger.Error("inference failed", "trace_id", traceID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "inference failed"})
	}
	s.metrics.ObserveInference(time.Since(start))

	// Map boxes from the inference image back to submitted pixels.
	for i := range dets {
		dets[i].X1 *= sx
		dets[i].Y1 *= sy
		dets[i].X2 *= sx
		dets[i].Y2 *= sy
	}
	if dets == nil {
		dets = []detect.Detection{}
	}

	now := time.Now()
	if len(dets) > 0 {
		if s.rows != nil {
			if err := s.rows.Insert(c.UserContext(), now, dets); err != nil {
				s.logger.Warn("row insert failed", "error", err)
			} else {
				s.metrics.RowsStored.Add(uint64(len(dets)))
			}
		}
		if err := s.events.BroadcastJSON(Event{Time: now, TraceID: traceID, Detections: dets}); err != nil {
			s.logger.Warn("event broadcast failed", "error", err)
		}
	}

	s.metrics.DetectionsReturned.Add(uint64(len(dets)))
	s.logger.Debug("frame processed",
		"trace_id", traceID,
		"detections", len(dets),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return c.JSON(detect.Response{Detections: dets})
}

// handleRows serves the row feed the table widget polls: the most
// recent rows, newest first, as a uniform JSON array.
func (s *Server) handleRows(c *fiber.Ctx) error {
	if s.rows == nil {
		return c.JSON([]store.Row{})
	}

	rows, err := s.rows.Recent(c.UserContext(), s.config.RecentRows)
	if err != nil {
		s.logger.Error("row query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "row query failed"})
	}
	return c.JSON(rows)
}

// readImage extracts the frame bytes from either accepted payload
// shape. It returns (nil, nil) when the request carries no image at
// all, and an error when an image was supplied but cannot be read.
func (s *Server) readImage(c *fiber.Ctx) ([]byte, error) {
	for _, field := range []string{"image", "file"} {
		fh, err := c.FormFile(field)
		if err != nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("detectsvc: open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req detect.Request
	if err := c.BodyParser(&req); err == nil && req.Image != "" {
		return detect.DecodeDataURL(req.Image)
	}

	return nil, nil
}

// downscale resizes src down to targetWidth when it is wider, keeping
// the aspect ratio. It returns the image to run inference on plus the
// factors that map detector coordinates back to src pixel space.
func downscale(src image.Image, targetWidth int) (image.Image, float64, float64) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= targetWidth {
		return src, 1, 1
	}

	scaledH := h * targetWidth / w
	if scaledH < 1 {
		scaledH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, scaledH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	return dst, float64(w) / float64(targetWidth), float64(h) / float64(scaledH)
}
