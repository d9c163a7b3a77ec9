// rowtail: follow the detection service's row feed from a terminal.
//
// Polls GET /csv-data and prints newly arrived rows, a quick way to
// check what the service is logging without opening the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harborlabs/seawatch/internal/config"
	"github.com/harborlabs/seawatch/internal/log"
	"github.com/harborlabs/seawatch/pkg/tablefeed"
)

func main() {
	config.LoadDotenv()

	var (
		feedURL  = flag.String("url", config.Env("SEAWATCH_DETECT_URL", config.DefaultDetectURL), "detection service URL")
		interval = flag.Duration("interval", config.EnvDuration("SEAWATCH_FEED_INTERVAL", 10*time.Second), "polling interval")
	)
	flag.Parse()
	log.Init(config.Env("LOG_LEVEL", "warn"))

	fmt.Printf("📋 Tailing %s/csv-data every %v\n\n", strings.TrimSuffix(*feedURL, "/"), *interval)

	// The feed serves a rolling window, newest first; remember what was
	// already printed so each poll only shows the delta.
	seen := make(map[string]bool)
	sink := tablefeed.RowSinkFunc(func(rows []tablefeed.Row) {
		if len(seen) > 4096 {
			// The feed window is 200 rows; older lines can be forgotten.
			clear(seen)
		}
		cols := tablefeed.Columns(rows)
		for i := len(rows) - 1; i >= 0; i-- {
			line := formatRow(rows[i], cols)
			if seen[line] {
				continue
			}
			seen[line] = true
			fmt.Println(line)
		}
	})

	poller := tablefeed.New(sink,
		tablefeed.WithBaseURL(*feedURL),
		tablefeed.WithInterval(*interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller.Run(ctx)
	fmt.Println("\n✅ Goodbye!")
}

func formatRow(row tablefeed.Row, cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=%v", c, row[c]))
	}
	return strings.Join(parts, "  ")
}
