// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     monitor
// Description: Message types for async operations in the monitor
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package monitor

import (
	"time"

	"github.com/msto63/signspeak/internal/companion/state"
)

// Message types for tea.Cmd async operations

// connectedMsg is sent when the websocket is open
type connectedMsg struct {
	client *Client
}

// disconnectedMsg is sent when dialing or reading failed
type disconnectedMsg struct {
	err error
}

// stateMsg carries a pushed engine snapshot
type stateMsg struct {
	snapshot state.Snapshot
}

// replyMsg carries the engine's answer to a command
type replyMsg struct {
	command string
	ok      bool
	message string
}

// sentMsg reports a failed send; nil err means the command went out
type sentMsg struct {
	command string
	err     error
}

// reconnectMsg triggers a new dial attempt
type reconnectMsg time.Time
