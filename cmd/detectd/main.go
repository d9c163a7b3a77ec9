// detectd: the seawatch detection service.
//
// Accepts frames over POST /detect, runs them through a YOLOv8 model,
// persists the rows and feeds them back as JSON, a row feed and a
// WebSocket event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harborlabs/seawatch/internal/config"
	"github.com/harborlabs/seawatch/internal/log"
	"github.com/harborlabs/seawatch/internal/metrics"
	"github.com/harborlabs/seawatch/pkg/detectsvc"
	"github.com/harborlabs/seawatch/pkg/store"
	"github.com/harborlabs/seawatch/pkg/vision"
)

const version = "1.0.0"

func main() {
	config.LoadDotenv()

	defaultAddr := config.Env("SEAWATCH_DETECT_ADDR", config.DefaultDetectAddr)
	if port := config.Env("PORT", ""); port != "" {
		// Hosting platforms hand the port over as PORT.
		defaultAddr = ":" + port
	}

	var (
		addr      = flag.String("addr", defaultAddr, "listen address")
		modelPath = flag.String("model", config.Env("MODEL_PATH", "models/yolov8n.onnx"), "YOLOv8 ONNX model path")
		dbPath    = flag.String("db", config.Env("SEAWATCH_DB", config.DefaultStorePath), "detection log database, empty disables persistence")
		conf      = flag.Float64("conf", 0.45, "confidence threshold")
		maxDet    = flag.Int("max-det", 3, "max detections per frame, 0 for no cap")
		debug     = flag.Bool("debug", config.EnvBool("SEAWATCH_DEBUG", false), "enable debug logging")
	)
	flag.Parse()

	level := config.Env("LOG_LEVEL", "info")
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fmt.Println()
	fmt.Println("🌊 seawatch detectd v" + version)
	fmt.Println("   frame detection service")
	fmt.Println()

	var rows detectsvc.RowStore
	var st *store.Store
	if *dbPath != "" {
		var err error
		st, err = store.Open(*dbPath)
		if err != nil {
			fmt.Printf("❌ Failed to open detection log: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		rows = st
		fmt.Printf("💾 Detection log: %s\n", *dbPath)
	} else {
		fmt.Println("💾 Persistence disabled")
	}

	// A missing model is not fatal: the service runs and answers 503
	// on /detect until one is deployed, like the original did.
	var detector vision.Detector
	yoloCfg := vision.DefaultYOLOConfig()
	yoloCfg.ModelPath = *modelPath
	yoloCfg.ConfidenceThresh = float32(*conf)
	yoloCfg.MaxDetections = *maxDet

	yolo, err := vision.NewYOLO(yoloCfg)
	if err != nil {
		fmt.Printf("⚠️  Detector unavailable: %v\n", err)
		fmt.Println("   /detect will answer 503 until a model is present.")
	} else {
		defer yolo.Close()
		detector = yolo
		fmt.Printf("🧠 Model: %s (conf %.2f, max %d)\n", *modelPath, *conf, *maxDet)
	}

	fmt.Printf("🚀 Listening on %s\n", *addr)
	fmt.Println()

	m := metrics.New()
	svc := detectsvc.New(detectsvc.DefaultConfig(), detector, rows, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx, *addr); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Goodbye!")
}
