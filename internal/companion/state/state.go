// Package state holds the immutable snapshots the engine publishes to
// presentation consumers.
package state

import (
	"sync"
	"time"

	"github.com/msto63/signspeak/internal/companion/activity"
	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/internal/companion/stabilizer"
)

// Snapshot is a point-in-time copy of everything presentation may show
type Snapshot struct {
	Gesture     string           `json:"gesture"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Sentence    string           `json:"sentence"`
	LatencyMS   int64            `json:"latency_ms"`
	Connection  string           `json:"connection"`
	Connected   bool             `json:"connected"`
	Failures    int              `json:"failures"` // trailing failed polls
	AutoSpeak   bool             `json:"auto_speak"`
	Language    string           `json:"language"`
	UseGemini   bool             `json:"use_gemini"`
	Address     string           `json:"address"`
	Demo        bool             `json:"demo"`
	Active      bool             `json:"active"`
	Sensors     backend.Sensors  `json:"sensors"`
	Log         []activity.Entry `json:"log"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Waiting returns the display state shown before any gesture is accepted
func Waiting() Snapshot {
	d := stabilizer.Describe(stabilizer.Waiting)
	return Snapshot{
		Gesture:     stabilizer.Waiting,
		Description: d.Text,
		Icon:        d.Icon,
		Sentence:    stabilizer.WaitingSentence,
		Connection:  "disconnected",
	}
}

// Hub fans snapshots out to subscribers. Slow subscribers only ever see
// the most recent snapshot; intermediate ones are dropped.
type Hub struct {
	mu     sync.RWMutex
	latest Snapshot
	subs   map[chan Snapshot]struct{}
	closed bool
}

// NewHub creates a hub seeded with initial
func NewHub(initial Snapshot) *Hub {
	return &Hub{
		latest: initial,
		subs:   make(map[chan Snapshot]struct{}),
	}
}

// Latest returns the most recently published snapshot
func (h *Hub) Latest() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe returns a channel that receives the current snapshot
// immediately and every later one. The channel is closed by Unsubscribe
// or Close.
func (h *Hub) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	ch <- h.latest
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it
func (h *Hub) Unsubscribe(ch <-chan Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs {
		if c == ch {
			delete(h.subs, c)
			close(c)
			return
		}
	}
}

// Publish stores s and delivers it to every subscriber without blocking
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = s
	for c := range h.subs {
		select {
		case c <- s:
		default:
			// replace the stale value
			select {
			case <-c:
			default:
			}
			c <- s
		}
	}
}

// subscribers returns the number of active subscriptions
func (h *Hub) subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes all subscriber channels
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.subs {
		close(c)
	}
	h.subs = nil
}
