// seawatch: shore camera watch agent.
//
// Owns a video source, runs the capture->detect->render loop against a
// detection service and serves the annotated feed to operators.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborlabs/seawatch/internal/config"
	"github.com/harborlabs/seawatch/internal/log"
	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/camera"
	"github.com/harborlabs/seawatch/pkg/detect"
	"github.com/harborlabs/seawatch/pkg/monitor"
	"github.com/harborlabs/seawatch/pkg/watch"
)

const version = "1.0.0"

func main() {
	config.LoadDotenv()

	var (
		source    = flag.String("source", config.Env("SEAWATCH_SOURCE", "device"), "video source: device, synthetic or still")
		deviceID  = flag.Int("device", config.EnvInt("SEAWATCH_DEVICE", 0), "video device number for -source device")
		stillPath = flag.String("still", config.Env("SEAWATCH_STILL", ""), "image file for -source still")
		detectURL = flag.String("detect", config.Env("SEAWATCH_DETECT_URL", config.DefaultDetectURL), "detection service URL")
		addr      = flag.String("addr", config.Env("SEAWATCH_MONITOR_ADDR", config.DefaultMonitorAddr), "monitor listen address")
		interval  = flag.Duration("interval", config.EnvDuration("SEAWATCH_INTERVAL", time.Second), "time between detection ticks")
		width     = flag.Int("width", config.EnvInt("SEAWATCH_WIDTH", 800), "requested capture width")
		height    = flag.Int("height", config.EnvInt("SEAWATCH_HEIGHT", 600), "requested capture height")
		framerate = flag.Int("framerate", config.EnvInt("SEAWATCH_FRAMERATE", 15), "requested capture framerate")
		quality   = flag.Int("quality", config.EnvInt("SEAWATCH_QUALITY", 85), "JPEG quality for submitted and published frames")
		debug     = flag.Bool("debug", config.EnvBool("SEAWATCH_DEBUG", false), "enable debug logging")
	)
	flag.Parse()

	level := config.Env("LOG_LEVEL", "info")
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fmt.Println()
	fmt.Println("🌊 seawatch v" + version)
	fmt.Println("   shore camera watch agent")
	fmt.Println()

	settings := camera.Settings{
		Width:     *width,
		Height:    *height,
		Framerate: *framerate,
		Quality:   *quality,
	}

	// Acquire the source before anything else: permission and device
	// problems are fatal and must surface here, not inside the loop.
	src, err := openSource(*source, *deviceID, *stillPath, settings)
	if err != nil {
		switch {
		case errors.Is(err, camera.ErrPermission):
			fmt.Printf("❌ Camera access denied: %v\n", err)
			fmt.Println("   Check the device permissions and try again.")
		case errors.Is(err, camera.ErrNoDevice):
			fmt.Printf("❌ No usable camera: %v\n", err)
			fmt.Println("   Try -source synthetic for a test pattern.")
		default:
			fmt.Printf("❌ Failed to open video source: %v\n", err)
		}
		os.Exit(1)
	}
	defer src.Close()

	w, h := src.Size()
	fmt.Printf("📷 Source: %s (%dx%d)\n", *source, w, h)
	fmt.Printf("🔍 Detection service: %s\n", *detectURL)
	fmt.Printf("🌐 Monitor: http://localhost%s\n", *addr)
	fmt.Println()

	manager := camera.NewManager(settings)
	if applier, ok := src.(camera.Applier); ok {
		manager.OnApply = applier.Apply
	}

	m := metrics.New()
	client := detect.NewClient(detect.WithBaseURL(*detectURL))
	defer client.Close()

	loop := watch.New(watch.Config{Interval: *interval, JPEGQuality: *quality}, src, client, m)
	mon := monitor.New(loop.Status, manager, m)
	loop.SetPublisher(mon)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- loop.Run(ctx) }()
	go func() { errCh <- mon.Run(ctx, *addr) }()

	var runErr error
	remaining := 2
	select {
	case <-ctx.Done():
		fmt.Println("\n👋 Shutting down...")
	case runErr = <-errCh:
		remaining = 1
	}
	stop()

	// Let the remaining runners finish their shutdown paths.
	for range remaining {
		select {
		case <-errCh:
		case <-time.After(6 * time.Second):
		}
	}

	if runErr != nil {
		fmt.Printf("❌ %v\n", runErr)
		os.Exit(1)
	}
	fmt.Println("✅ Goodbye!")
}

// openSource builds the configured video source.
func openSource(kind string, deviceID int, stillPath string, s camera.Settings) (camera.Source, error) {
	switch kind {
	case "device":
		return camera.OpenDevice(deviceID, s)
	case "synthetic":
		return camera.NewSynthetic(s.Width, s.Height), nil
	case "still":
		if stillPath == "" {
			return nil, errors.New("-source still requires -still <path>")
		}
		return camera.OpenStill(stillPath)
	default:
		return nil, fmt.Errorf("unknown source %q (want device, synthetic or still)", kind)
	}
}
