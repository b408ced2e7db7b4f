// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     activity
// Description: Bounded, newest-first log of user-visible events
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package activity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted
const DefaultCapacity = 50

// Kind classifies an entry for display
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindGesture Kind = "gesture"
)

// Entry is a single log line
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
}

// Log is an append-only ring of entries ordered newest-first.
// It is not safe for concurrent use; the engine loop owns it.
type Log struct {
	entries  []Entry
	capacity int
	now      func() time.Time
}

// New creates a log holding at most capacity entries
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append records message and returns the new entry
func (l *Log) Append(kind Kind, message string) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: l.now(),
		Message:   message,
		Kind:      kind,
	}

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, Entry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = e
	return e
}

// Entries returns a copy of the log, newest first
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held
func (l *Log) Len() int {
	return len(l.entries)
}

// Capacity returns the eviction bound
func (l *Log) Capacity() int {
	return l.capacity
}
