package audio

import (
	"encoding/binary"
	"fmt"
)

// wavInfo describes the PCM payload of a WAV file
type wavInfo struct {
	SampleRate    float64
	Channels      int
	BitsPerSample int
	Data          []byte
}

// parseWAV parses a WAV file and returns its format and PCM data
func parseWAV(data []byte) (wavInfo, error) {
	if len(data) < 44 {
		return wavInfo{}, fmt.Errorf("file too small to be a valid WAV")
	}

	// Check RIFF header
	if string(data[0:4]) != "RIFF" {
		return wavInfo{}, fmt.Errorf("not a valid RIFF file")
	}

	// Check WAVE format
	if string(data[8:12]) != "WAVE" {
		return wavInfo{}, fmt.Errorf("not a valid WAVE file")
	}

	var info wavInfo
	var dataStart, dataSize int

	pos := 12
	for pos < len(data)-8 {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && pos+24 <= len(data) {
				info.Channels = int(binary.LittleEndian.Uint16(data[pos+10 : pos+12]))
				info.SampleRate = float64(binary.LittleEndian.Uint32(data[pos+12 : pos+16]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(data[pos+22 : pos+24]))
			}
		case "data":
			dataStart = pos + 8
			dataSize = chunkSize
		}

		pos += 8 + chunkSize
		if pos%2 != 0 {
			pos++ // Word alignment
		}
	}

	if info.SampleRate == 0 || dataStart == 0 {
		return wavInfo{}, fmt.Errorf("missing required WAV chunks")
	}
	if info.BitsPerSample != 16 {
		return wavInfo{}, fmt.Errorf("unsupported bit depth %d", info.BitsPerSample)
	}
	if info.Channels == 0 {
		info.Channels = 1
	}

	if dataStart+dataSize > len(data) {
		dataSize = len(data) - dataStart
	}
	info.Data = data[dataStart : dataStart+dataSize]
	return info, nil
}

// pcm16ToFloat32 converts little-endian signed 16-bit samples
func pcm16ToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[2*i:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}
