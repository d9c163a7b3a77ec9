package tablefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]Row
}

func (s *recordingSink) Consume(rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, rows)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestFetchDecodesRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/csv-data" {
			t.Errorf("Path: got %s, want /csv-data", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"time":"2026-08-25T10:00:00Z","label":"boat","conf":0.92,"x1":10,"y1":10,"x2":100,"y2":100},
			{"time":"2026-08-25T10:00:01Z","label":"boat","conf":0.81,"x1":5,"y1":8,"x2":60,"y2":90}
		]`))
	}))
	defer server.Close()

	p := New(RowSinkFunc(func([]Row) {}), WithBaseURL(server.URL))

	rows, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Rows: got %d, want 2", len(rows))
	}
	if rows[0]["label"] != "boat" {
		t.Errorf("Label: got %v, want boat", rows[0]["label"])
	}
	if rows[0]["conf"] != 0.92 {
		t.Errorf("Conf: got %v, want 0.92", rows[0]["conf"])
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			p := New(RowSinkFunc(func([]Row) {}), WithBaseURL(server.URL))
			if _, err := p.Fetch(context.Background()); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestRunPollsAndRecovers(t *testing.T) {
	var calls atomic.Uint64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every other poll fails; the poller must keep going.
		if calls.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"label":"boat","conf":0.9}]`))
	}))
	defer server.Close()

	sink := &recordingSink{}
	p := New(sink, WithBaseURL(server.URL), WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

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

	if calls.Load() < 3 {
		t.Errorf("Polls: got %d, want at least 3", calls.Load())
	}
	if sink.count() == 0 {
		t.Error("Sink never received a batch despite successful polls")
	}
}

func TestColumns(t *testing.T) {
	rows := []Row{
		{"time": "t", "label": "boat", "conf": 0.9},
		{"time": "t", "label": "boat", "conf": 0.8, "x1": 1.0},
	}

	got := Columns(rows)
	want := []string{"conf", "label", "time", "x1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Columns: got %v, want %v", got, want)
	}

	if cols := Columns(nil); len(cols) != 0 {
		t.Errorf("Columns of empty feed: got %v, want none", cols)
	}
}
