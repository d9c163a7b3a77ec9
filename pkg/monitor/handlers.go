package monitor

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/harborlabs/seawatch/pkg/camera"
	"github.com/harborlabs/seawatch/pkg/watch"
)

const (
	// streamKeepAlive bounds how long an MJPEG client waits between
	// parts: when no new frame arrives, the latest one is re-sent so
	// proxies do not time the connection out.
	streamKeepAlive = 5 * time.Second

	// wsWriteWait bounds a single websocket frame write.
	wsWriteWait = 10 * time.Second
)

const indexPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>seawatch</title>
<style>body{font-family:sans-serif;background:#111;color:#ddd;text-align:center}
img{max-width:100%;border:1px solid #333}#status{color:#8c8;font-size:0.9em}</style>
</head>
<body>
<h1>seawatch</h1>
<img src="/stream" alt="live feed">
<p id="status">connecting...</p>
<script>
setInterval(async () => {
  try {
    const s = await (await fetch('/api/status')).json();
    document.getElementById('status').textContent =
      s.width + 'x' + s.height + ' | ticks ' + s.ticks +
      ' | failures ' + s.failures + ' | last detections ' + s.last_detections;
  } catch (e) {
    document.getElementById('status').textContent = 'status unavailable';
  }
}, 2000);
</script>
</body>
</html>`

// Status is the /api/status payload: the loop snapshot plus the
// monitor's own view of the feed.
type Status struct {
	watch.Status
	UptimeSeconds float64 `json:"uptime_seconds"`
	StreamClients int     `json:"stream_clients"`
}

// handleIndex serves the dashboard page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexPage)
}

// handleStatus reports the loop and feed state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	out := Status{
		UptimeSeconds: time.Since(s.started).Seconds(),
		StreamClients: s.frames.ClientCount(),
	}
	if s.status != nil {
		out.Status = s.status()
	}
	return c.JSON(out)
}

// handleCameraGet returns the active capture settings and the presets
// a client may switch to.
func (s *Server) handleCameraGet(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"settings": s.manager.Current(),
		"presets":  camera.PresetNames(),
	})
}

// handleCameraSet applies a partial settings update, e.g.
// {"preset":"720p"} or {"width":640,"height":480}.
func (s *Server) handleCameraSet(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.manager.Update(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("camera settings updated", "settings", s.manager.Current())
	return c.JSON(fiber.Map{"settings": s.manager.Current()})
}

// handleStream serves the annotated feed as MJPEG. The response never
// ends on its own; it runs until the client disconnects.
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")

	id, frames := s.frames.Subscribe()
	s.logger.Debug("stream client connected", "id", id)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.frames.Unsubscribe(id)

		for {
			var jpegData []byte
			select {
			case data, ok := <-frames:
				if !ok {
					return
				}
				jpegData = data
			case <-time.After(streamKeepAlive):
				data, ok := s.frames.Latest()
				if !ok {
					continue
				}
				jpegData = data
			}

			// A write error means the client went away.
			if err := writeStreamPart(w, jpegData); err != nil {
				s.logger.Debug("stream client disconnected", "id", id)
				return
			}
		}
	})
	return nil
}

func writeStreamPart(w *bufio.Writer, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\r\n")); err != nil {
		return err
	}
	return w.Flush()
}

// handleCameraWS pushes annotated frames as binary websocket messages.
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	id, frames := s.frames.Subscribe()
	defer s.frames.Unsubscribe(id)

	// Reader goroutine: clients send nothing, but reading is how the
	// disconnect surfaces.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case data, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}
