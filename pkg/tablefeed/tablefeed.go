// Package tablefeed polls the detection service's row feed and hands
// the rows to a sink. It is the client half of the operator table: the
// rendering itself belongs to whatever widget consumes the sink.
package tablefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Row is one feed entry. The feed serves uniform objects; keys are
// preserved as-is so sinks can derive their columns from the data.
type Row map[string]any

// RowSink consumes each successfully fetched batch of rows.
type RowSink interface {
	Consume(rows []Row)
}

// RowSinkFunc adapts a function to the RowSink interface.
type RowSinkFunc func(rows []Row)

// Consume calls f.
func (f RowSinkFunc) Consume(rows []Row) { f(rows) }

// Poller periodically fetches GET /csv-data and feeds the rows to the
// sink. Every poll stands alone: a failed fetch is logged and the next
// one proceeds on schedule.
type Poller struct {
	config Config
	sink   RowSink
	http   *http.Client
	logger *slog.Logger
}

// New creates a poller feeding sink.
func New(sink RowSink, opts ...Option) *Poller {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Poller{
		config: *cfg,
		sink:   sink,
		http:   cfg.HTTPClient,
		logger: cfg.Logger.With("component", "tablefeed"),
	}
}

// Run polls until ctx is cancelled. The first poll fires immediately;
// later polls follow the configured interval.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.logger.Info("row feed poller started", "url", p.config.BaseURL, "interval", p.config.Interval)

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("row feed poller stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches one batch. Failures only log; the schedule is untouched.
func (p *Poller) poll(ctx context.Context) {
	rows, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("row fetch failed", "error", err)
		return
	}
	p.sink.Consume(rows)
}

// Fetch performs a single row-feed request.
func (p *Poller) Fetch(ctx context.Context) ([]Row, error) {
	url := strings.TrimSuffix(p.config.BaseURL, "/") + "/csv-data"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tablefeed: create request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tablefeed: fetch rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tablefeed: feed returned %d", resp.StatusCode)
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("tablefeed: decode rows: %w", err)
	}

	return rows, nil
}

// Columns returns the sorted union of keys across rows, the shape a
// table widget needs to build its header.
func Columns(rows []Row) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
