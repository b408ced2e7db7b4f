package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// execCandidate is an external player and the formats it understands
type execCandidate struct {
	name    string
	args    []string
	formats []Format
}

var execCandidates = []execCandidate{
	{name: "afplay", formats: []Format{FormatWAV, FormatMP3}},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}, formats: []Format{FormatWAV, FormatMP3, FormatUnknown}},
	{name: "mpg123", args: []string{"-q"}, formats: []Format{FormatMP3}},
	{name: "aplay", args: []string{"-q"}, formats: []Format{FormatWAV}},
	{name: "paplay", formats: []Format{FormatWAV}},
}

// ErrNoPlayer is returned when no external player handles the payload
var ErrNoPlayer = errors.New("no audio player found")

// ExecPlayer plays audio by writing it to a temp file and running an
// external command on it.
type ExecPlayer struct {
	// Command overrides player discovery when set
	Command string
	Args    []string

	lookPath func(string) (string, error)
}

// NewExecPlayer creates a player that discovers a command on PATH
func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{lookPath: exec.LookPath}
}

// Play implements Player
func (p *ExecPlayer) Play(ctx context.Context, data []byte) error {
	format := DetectFormat(data)

	name, args, err := p.resolve(format)
	if err != nil {
		return err
	}

	ext := string(format)
	if format == FormatUnknown {
		ext = "mp3"
	}
	tmp, err := os.CreateTemp("", "signspeak-*."+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, name, append(args, path)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func (p *ExecPlayer) resolve(format Format) (string, []string, error) {
	if p.Command != "" {
		return p.Command, append([]string(nil), p.Args...), nil
	}

	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	for _, c := range execCandidates {
		if c.name == "afplay" && runtime.GOOS != "darwin" {
			continue
		}
		if !supports(c.formats, format) {
			continue
		}
		if path, err := lookPath(c.name); err == nil {
			return path, append([]string(nil), c.args...), nil
		}
	}
	return "", nil, fmt.Errorf("%w for %s audio", ErrNoPlayer, format)
}

func supports(formats []Format, f Format) bool {
	for _, x := range formats {
		if x == f {
			return true
		}
	}
	return false
}
