//go:build !portaudio

package audio

// newPCMPlayer returns nil when PortAudio support is not compiled in
func newPCMPlayer() Player {
	return nil
}
