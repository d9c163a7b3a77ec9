package monitor

import (
	"log/slog"
	"sync"

	"github.com/harborlabs/seawatch/internal/metrics"
)

// subscriberBuffer is the per-client frame queue. Two frames of slack
// absorbs scheduling jitter; beyond that the client is too slow and
// frames are dropped rather than queued.
const subscriberBuffer = 2

// Broadcaster fans annotated JPEG frames out to stream and websocket
// subscribers. The newest frame is cached so fresh clients get a
// picture before the next tick lands.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	latest  []byte

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		clients: make(map[int]chan []byte),
		metrics: m,
		logger:  slog.Default().With("component", "monitor.broadcaster"),
	}
}

// Publish hands one annotated frame to every subscriber. Slow clients
// skip the frame; the publisher never blocks. The frame bytes must not
// be mutated afterwards.
func (b *Broadcaster) Publish(jpegData []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = jpegData
	for id, ch := range b.clients {
		select {
		case ch <- jpegData:
		default:
			if b.metrics != nil {
				b.metrics.FramesDropped.Add(1)
			}
			b.logger.Debug("frame dropped for slow client", "id", id)
		}
	}
}

// Subscribe registers a client and returns its frame channel. When a
// frame has already been published, it is queued immediately.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, subscriberBuffer)
	if b.latest != nil {
		ch <- b.latest
	}
	b.clients[id] = ch

	if b.metrics != nil {
		b.metrics.StreamClients.Store(uint64(len(b.clients)))
	}
	b.logger.Debug("client subscribed", "id", id, "clients", len(b.clients))
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.clients[id]
	if !ok {
		return
	}
	close(ch)
	delete(b.clients, id)

	if b.metrics != nil {
		b.metrics.StreamClients.Store(uint64(len(b.clients)))
	}
	b.logger.Debug("client unsubscribed", "id", id, "clients", len(b.clients))
}

// Latest returns the most recently published frame.
func (b *Broadcaster) Latest() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.latest != nil
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
