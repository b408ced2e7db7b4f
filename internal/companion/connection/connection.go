// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     connection
// Description: Connection state machine with consecutive-failure hysteresis
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package connection

import "sync"

// DefaultFailureThreshold is the number of consecutive failed polls
// after which a connected session is considered lost.
const DefaultFailureThreshold = 3

// Transition log messages
const (
	MsgConnected = "Connected to backend"
	MsgLost      = "Lost connection to backend"
)

// State represents the backend connection state
type State int

const (
	// Disconnected - initial state, or lost after too many failures
	Disconnected State = iota

	// Connected - at least one poll succeeded since the last loss
	Connected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Message returns the activity log line for entering s
func (s State) Message() string {
	if s == Connected {
		return MsgConnected
	}
	return MsgLost
}

// Listener is called after every state change
type Listener func(oldState, newState State)

// Machine derives the connection state from poll outcomes
type Machine struct {
	mu        sync.RWMutex
	current   State
	failures  int
	threshold int
	listeners []Listener
}

// NewMachine creates a machine in the Disconnected state.
// A threshold below 1 selects DefaultFailureThreshold.
func NewMachine(threshold int) *Machine {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	return &Machine{
		current:   Disconnected,
		threshold: threshold,
	}
}

// Current returns the current state
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Failures returns the trailing consecutive-failure count
func (m *Machine) Failures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

// Threshold returns the configured failure threshold
func (m *Machine) Threshold() int {
	return m.threshold
}

// RecordSuccess resets the failure counter and connects.
// It reports whether the state changed.
func (m *Machine) RecordSuccess() bool {
	m.mu.Lock()
	m.failures = 0
	return m.transitionLocked(Connected)
}

// RecordFailure counts a failed poll and disconnects once the threshold
// is reached. It reports whether the state changed.
func (m *Machine) RecordFailure() bool {
	m.mu.Lock()
	m.failures++
	if m.current == Connected && m.failures >= m.threshold {
		return m.transitionLocked(Disconnected)
	}
	m.mu.Unlock()
	return false
}

// Force moves to state regardless of poll outcomes, as done by an
// explicit connect. It reports whether the state changed.
func (m *Machine) Force(state State) bool {
	m.mu.Lock()
	m.failures = 0
	return m.transitionLocked(state)
}

// AddListener adds a state change listener
func (m *Machine) AddListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// transitionLocked must be called with mu held; it releases it.
func (m *Machine) transitionLocked(newState State) bool {
	oldState := m.current
	if oldState == newState {
		m.mu.Unlock()
		return false
	}

	m.current = newState
	listeners := m.listeners
	m.mu.Unlock()

	// Notify listeners
	for _, listener := range listeners {
		listener(oldState, newState)
	}
	return true
}
