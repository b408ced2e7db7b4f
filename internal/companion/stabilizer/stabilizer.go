// Package stabilizer turns the per-poll gesture stream into one event per
// distinct gesture transition.
package stabilizer

import (
	"strings"
	"time"
)

const (
	// Waiting is the sentinel gesture reported while no gesture is held
	Waiting = "WAITING"

	// WaitingSentence is shown while in the waiting state
	WaitingSentence = "Waiting for gesture..."
)

// IsWaiting reports whether g is the waiting sentinel. A missing
// gesture counts as waiting.
func IsWaiting(g string) bool {
	g = strings.TrimSpace(g)
	return g == "" || g == Waiting
}

// Event is a newly accepted gesture
type Event struct {
	Gesture    string    `json:"gesture"`
	Sentence   string    `json:"sentence"`
	DetectedAt time.Time `json:"detected_at"`
}

// Decision describes what Observe did with a reading
type Decision int

const (
	// Hold - same gesture as the last accepted one, nothing to do
	Hold Decision = iota

	// Reset - waiting sentinel seen, stabilizer re-armed
	Reset

	// Accept - new gesture, an Event was produced
	Accept
)

// String returns the decision name
func (d Decision) String() string {
	switch d {
	case Hold:
		return "hold"
	case Reset:
		return "reset"
	case Accept:
		return "accept"
	default:
		return "unknown"
	}
}

// Stabilizer remembers the last accepted gesture
type Stabilizer struct {
	lastAccepted string
}

// New creates a stabilizer armed to accept any non-waiting gesture
func New() *Stabilizer {
	return &Stabilizer{lastAccepted: Waiting}
}

// LastAccepted returns the gesture currently being held
func (s *Stabilizer) LastAccepted() string {
	return s.lastAccepted
}

// Observe processes one successful poll reading. The returned Event is
// only meaningful when the decision is Accept.
func (s *Stabilizer) Observe(gesture, sentence string, at time.Time) (Decision, Event) {
	gesture = strings.TrimSpace(gesture)

	if IsWaiting(gesture) {
		s.lastAccepted = Waiting
		return Reset, Event{}
	}

	if gesture == s.lastAccepted {
		return Hold, Event{}
	}

	s.lastAccepted = gesture
	if strings.TrimSpace(sentence) == "" {
		sentence = gesture
	}
	return Accept, Event{
		Gesture:    gesture,
		Sentence:   sentence,
		DetectedAt: at,
	}
}
