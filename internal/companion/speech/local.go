package speech

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/msto63/signspeak/pkg/core/errs"
)

// Synthesizer speaks text through a platform text-to-speech engine
type Synthesizer interface {
	Name() string
	IsAvailable() bool
	Voices(ctx context.Context) ([]Voice, error)
	// Speak blocks until the utterance finished or ctx is cancelled.
	// A zero Voice selects the engine default.
	Speak(ctx context.Context, text string, voice Voice) error
}

// NewLocal returns the synthesizer named by engine: "say", "espeak",
// "none" or "auto" (pick by platform).
func NewLocal(engine string, rate int) Synthesizer {
	switch engine {
	case "say":
		return NewMacOSSay(rate)
	case "espeak":
		return NewEspeak(rate)
	case "none":
		return unavailable{}
	}

	if runtime.GOOS == "darwin" {
		if s := NewMacOSSay(rate); s.IsAvailable() {
			return s
		}
	}
	if e := NewEspeak(rate); e.IsAvailable() {
		return e
	}
	return unavailable{}
}

// MacOSSay implements text-to-speech using the macOS say command
type MacOSSay struct {
	rate int
}

// NewMacOSSay creates a say synthesizer speaking at rate words per minute
func NewMacOSSay(rate int) *MacOSSay {
	if rate <= 0 {
		rate = 175
	}
	return &MacOSSay{rate: rate}
}

// Name implements Synthesizer
func (m *MacOSSay) Name() string { return "say" }

// IsAvailable checks if macOS say is available
func (m *MacOSSay) IsAvailable() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath("say")
	return err == nil
}

// Voices lists installed voices via "say -v ?"
func (m *MacOSSay) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseSayVoices(string(out)), nil
}

// Speak speaks the text directly using macOS say
func (m *MacOSSay) Speak(ctx context.Context, text string, voice Voice) error {
	args := []string{}
	if voice.ID != "" {
		args = append(args, "-v", voice.ID)
	}
	if m.rate > 0 {
		args = append(args, "-r", strconv.Itoa(m.rate))
	}
	args = append(args, text)

	return exec.CommandContext(ctx, "say", args...).Run()
}

// sayVoiceLine matches "Name With Spaces   en_US    # sample sentence"
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]{2,4})\s+#`)

func parseSayVoices(out string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := sayVoiceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{ID: name, Name: name, Lang: m[2]})
	}
	return voices
}

// Espeak implements text-to-speech using espeak-ng (or espeak)
type Espeak struct {
	binary string
	rate   int
}

// NewEspeak creates an espeak synthesizer, preferring espeak-ng
func NewEspeak(rate int) *Espeak {
	if rate <= 0 {
		rate = 175
	}
	binary := "espeak-ng"
	if _, err := exec.LookPath(binary); err != nil {
		binary = "espeak"
	}
	return &Espeak{binary: binary, rate: rate}
}

// Name implements Synthesizer
func (e *Espeak) Name() string { return e.binary }

// IsAvailable checks whether the binary is on PATH
func (e *Espeak) IsAvailable() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Voices lists voices via "--voices"
func (e *Espeak) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseEspeakVoices(string(out)), nil
}

// Speak implements Synthesizer
func (e *Espeak) Speak(ctx context.Context, text string, voice Voice) error {
	args := []string{"-s", strconv.Itoa(e.rate)}
	if voice.ID != "" {
		args = append(args, "-v", voice.ID)
	}
	args = append(args, text)

	return exec.CommandContext(ctx, e.binary, args...).Run()
}

// parseEspeakVoices reads the table printed by "espeak-ng --voices":
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 2)
func parseEspeakVoices(out string) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		voices = append(voices, Voice{ID: fields[1], Name: fields[3], Lang: fields[1]})
	}
	return voices
}

// unavailable is used when no local engine exists
type unavailable struct{}

func (unavailable) Name() string      { return "none" }
func (unavailable) IsAvailable() bool { return false }

func (unavailable) Voices(context.Context) ([]Voice, error) {
	return nil, nil
}

func (unavailable) Speak(context.Context, string, Voice) error {
	return errs.New(errs.CodeSpeechSynthesisFailure, "no local speech synthesizer available")
}
