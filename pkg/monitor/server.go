// Package monitor serves the watch agent's operator surface: the live
// annotated feed as MJPEG and WebSocket JPEG frames, a status API,
// camera settings and Prometheus metrics.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/camera"
	"github.com/harborlabs/seawatch/pkg/watch"
)

// StatusFunc supplies the loop snapshot rendered by /api/status.
type StatusFunc func() watch.Status

// Server is the agent dashboard. It implements watch.Publisher, so the
// loop feeds annotated frames straight into it.
type Server struct {
	app     *fiber.App
	frames  *Broadcaster
	manager *camera.Manager
	status  StatusFunc
	metrics *metrics.Metrics
	logger  *slog.Logger
	started time.Time
}

// New creates the dashboard server. status may be nil before the loop
// exists; /api/status then reports a zero snapshot.
func New(status StatusFunc, manager *camera.Manager, m *metrics.Metrics) *Server {
	s := &Server{
		frames:  NewBroadcaster(m),
		manager: manager,
		status:  status,
		metrics: m,
		logger:  slog.Default().With("component", "monitor"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "seawatch monitor",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/stream", s.handleStream)
	app.Get("/api/status", s.handleStatus)
	app.Get("/api/camera", s.handleCameraGet)
	app.Post("/api/camera", s.handleCameraSet)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Publish hands an annotated frame to all connected viewers.
func (s *Server) Publish(jpegData []byte) {
	s.frames.Publish(jpegData)
}

// Run serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	s.logger.Info("monitor listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutCtx)
	}
}
