// Package detectsvc implements the detection service: it accepts
// frames over POST /detect, runs them through a vision backend, logs
// the results and feeds them back to clients as JSON, a row feed and a
// WebSocket event stream.
package detectsvc

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/detect"
	"github.com/harborlabs/seawatch/pkg/hub"
	"github.com/harborlabs/seawatch/pkg/store"
	"github.com/harborlabs/seawatch/pkg/vision"
)

// RowStore is the slice of the detection log the service needs.
// *store.Store satisfies it.
type RowStore interface {
	Insert(ctx context.Context, t time.Time, dets []detect.Detection) error
	Recent(ctx context.Context, n int) ([]store.Row, error)
}

// Event is one accepted frame's result, broadcast to /ws/detections.
type Event struct {
	Time       time.Time          `json:"time"`
	TraceID    string             `json:"trace_id,omitempty"`
	Detections []detect.Detection `json:"detections"`
}

// Server is the detection service.
type Server struct {
	app      *fiber.App
	config   Config
	detector vision.Detector
	rows     RowStore
	events   *hub.Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// busy is the single-flight inference gate: one frame at a time,
	// extras bounce with 429 instead of queueing up.
	busy atomic.Bool
}

// New creates the service. detector may be nil, in which case /detect
// answers 503 until a model is available; rows may be nil to disable
// persistence and the row feed.
func New(cfg Config, detector vision.Detector, rows RowStore, m *metrics.Metrics) *Server {
	s := &Server{
		config:   cfg.withDefaults(),
		detector: detector,
		rows:     rows,
		events:   hub.New("detections"),
		metrics:  m,
		logger:   slog.Default().With("component", "detectsvc"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "seawatch detectd",
		DisableStartupMessage: true,
		BodyLimit:             s.config.MaxBodyBytes,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)
	app.Post("/detect", s.handleDetect)
	app.Get("/csv-data", s.handleRows)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detections", websocket.New(func(conn *websocket.Conn) {
		hub.Serve(s.events, conn)
	}))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is cancelled, then shuts down
// gracefully. The event hub runs for the same lifetime.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.events.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	s.logger.Info("detection service listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutCtx)
	}
}
