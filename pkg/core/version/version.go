// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     version
// Description: Central version management for all components
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package version

import "fmt"

// Version constants for all SignSpeak components
const (
	// Application version
	Platform = "0.4.0"

	// Component versions
	Engine  = "0.4.0"
	Server  = "0.2.0"
	Health  = "0.1.0"
	Monitor = "0.2.0"
)

var (
	// BuildTime is set at build time via ldflags
	BuildTime = ""

	// GitCommit is set at build time via ldflags
	GitCommit = ""
)

// ServiceVersion returns the version for a given component name
func ServiceVersion(name string) string {
	switch name {
	case "engine":
		return Engine
	case "server":
		return Server
	case "health":
		return Health
	case "monitor":
		return Monitor
	default:
		return Platform
	}
}

// String returns a one-line version banner including build metadata
func String() string {
	s := "signspeak " + Platform
	if GitCommit != "" {
		s += fmt.Sprintf(" (%s)", GitCommit)
	}
	if BuildTime != "" {
		s += " built " + BuildTime
	}
	return s
}
