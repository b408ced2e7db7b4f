// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     audio
// Description: Playback of synthesized speech returned by the backend
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package audio

import (
	"bytes"
	"context"
	"fmt"
)

// Format identifies an encoded audio payload
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

// Player plays an encoded audio payload. Play blocks until playback has
// finished or ctx is cancelled, in which case audio stops promptly.
type Player interface {
	Play(ctx context.Context, data []byte) error
}

// DetectFormat sniffs the container format from the first bytes
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// New returns the player selected by kind: "exec", "portaudio" or "auto".
// "auto" plays WAV through PortAudio when it is compiled in and hands
// everything else to an external command.
func New(kind string) (Player, error) {
	switch kind {
	case "exec":
		return NewExecPlayer(), nil
	case "portaudio":
		pcm := newPCMPlayer()
		if pcm == nil {
			return nil, fmt.Errorf("portaudio support not compiled in (build with -tags portaudio)")
		}
		return pcm, nil
	case "auto", "":
		return &autoPlayer{pcm: newPCMPlayer(), exec: NewExecPlayer()}, nil
	default:
		return nil, fmt.Errorf("unknown audio player: %s", kind)
	}
}

// autoPlayer routes payloads by format
type autoPlayer struct {
	pcm  Player
	exec Player
}

func (a *autoPlayer) Play(ctx context.Context, data []byte) error {
	if a.pcm != nil && DetectFormat(data) == FormatWAV {
		return a.pcm.Play(ctx, data)
	}
	return a.exec.Play(ctx, data)
}
