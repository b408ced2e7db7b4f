//go:build portaudio

package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioPlayer plays 16-bit PCM WAV payloads on the default device
type PortAudioPlayer struct {
	mu sync.Mutex
}

func newPCMPlayer() Player {
	return &PortAudioPlayer{}
}

// Play implements Player. Cancellation is checked between buffers.
func (p *PortAudioPlayer) Play(ctx context.Context, data []byte) error {
	info, err := parseWAV(data)
	if err != nil {
		return fmt.Errorf("failed to parse WAV: %w", err)
	}
	samples := pcm16ToFloat32(info.Data)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 1024
	buffer := make([]float32, framesPerBuffer*info.Channels)

	stream, err := portaudio.OpenDefaultStream(0, info.Channels, info.SampleRate, framesPerBuffer, &buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	for position := 0; position < len(samples); position += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[position:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write to stream: %w", err)
		}
	}
	return nil
}
