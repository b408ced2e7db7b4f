package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msto63/signspeak/internal/companion/activity"
)

func TestMapLanguage(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"en", "en-US"},
		{"hi", "hi-IN"},
		{"bn", "bn-IN"},
		{"ta", "ta-IN"},
		{"fr", "fr-FR"},
		{"de", "de-DE"},
		{"ja", "ja-JP"},
		{"en-GB", "en-GB"},
		{"pt_BR", "pt-BR"},
		{"", "en-US"},
		{"!!", "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := MapLanguage(tt.code); got != tt.expected {
				t.Errorf("MapLanguage(%q) = %v, want %v", tt.code, got, tt.expected)
			}
		})
	}
}

func TestSelectVoice(t *testing.T) {
	voices := []Voice{
		{ID: "Daniel", Name: "Daniel", Lang: "en_GB"},
		{ID: "Samantha", Name: "Samantha", Lang: "en_US"},
		{ID: "Lekha", Name: "Lekha", Lang: "hi_IN"},
	}

	tests := []struct {
		name   string
		tag    string
		wantID string
		wantOK bool
	}{
		{"exact", "en-US", "Samantha", true},
		{"base language", "hi-XX", "Lekha", true},
		{"first of base", "en-AU", "Daniel", true},
		{"missing", "ta-IN", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := SelectVoice(voices, tt.tag)
			if ok != tt.wantOK || v.ID != tt.wantID {
				t.Errorf("SelectVoice(%q) = %q, %v; want %q, %v", tt.tag, v.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestParseSayVoices(t *testing.T) {
	out := `Alex                en_US    # Most people recognize me by my voice.
Amélie              fr_CA    # Bonjour, je m’appelle Amélie.
Eddy (English (US)) en_US    # Hello! My name is Eddy.
garbage line
Lekha               hi_IN    # नमस्ते, मेरा नाम लेखा है।
`
	voices := parseSayVoices(out)
	if len(voices) != 4 {
		t.Fatalf("parseSayVoices() returned %d voices, want 4: %+v", len(voices), voices)
	}
	if voices[2].ID != "Eddy (English (US))" || voices[2].Lang != "en_US" {
		t.Errorf("voice[2] = %+v", voices[2])
	}
	if voices[3].Lang != "hi_IN" {
		t.Errorf("voice[3].Lang = %v, want hi_IN", voices[3].Lang)
	}
}

func TestParseEspeakVoices(t *testing.T) {
	out := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  bn              --/M      Bengali            inc/bn
 5  en-us           --/M      English_(America)  gmw/en-US            (en 2)
 5  hi              --/M      Hindi              inc/hi
`
	voices := parseEspeakVoices(out)
	if len(voices) != 3 {
		t.Fatalf("parseEspeakVoices() returned %d voices, want 3", len(voices))
	}
	if voices[1].ID != "en-us" || voices[1].Name != "English_(America)" {
		t.Errorf("voice[1] = %+v", voices[1])
	}
}

// ============================================================================
// Dispatcher
// ============================================================================

type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRemote) FetchSpeech(ctx context.Context, address, text, lang string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte(text), nil
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePlayer records payloads and tracks concurrent playback
type fakePlayer struct {
	hold time.Duration

	mu        sync.Mutex
	active    int
	maxActive int
	finished  []string
	cancelled []string
}

func (p *fakePlayer) Play(ctx context.Context, data []byte) error {
	p.mu.Lock()
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	select {
	case <-time.After(p.hold):
		p.mu.Lock()
		p.finished = append(p.finished, string(data))
		p.mu.Unlock()
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		p.cancelled = append(p.cancelled, string(data))
		p.mu.Unlock()
		return ctx.Err()
	}
}

type fakeSynth struct {
	available bool
	voices    []Voice
	err       error

	mu     sync.Mutex
	spoken []Voice
}

func (s *fakeSynth) Name() string      { return "fake" }
func (s *fakeSynth) IsAvailable() bool { return s.available }

func (s *fakeSynth) Voices(context.Context) ([]Voice, error) {
	return s.voices, nil
}

func (s *fakeSynth) Speak(ctx context.Context, text string, voice Voice) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, voice)
	s.mu.Unlock()
	return s.err
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) notify(kind activity.Kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, string(kind)+": "+msg)
}

func (n *notes) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func TestDispatcher_IgnoresUnspeakableText(t *testing.T) {
	remote := &fakeRemote{}
	d := NewDispatcher(remote, &fakeSynth{}, &fakePlayer{}, nil, DefaultConfig())
	defer d.Close()

	for _, text := range []string{"", "   ", "WAITING", "Waiting for gesture..."} {
		d.Speak(Request{Text: text, Language: "en", Address: "localhost"})
	}
	d.Wait()

	if remote.count() != 0 {
		t.Errorf("remote called %d times, want 0", remote.count())
	}
}

func TestDispatcher_RemotePath(t *testing.T) {
	remote := &fakeRemote{}
	player := &fakePlayer{}
	synth := &fakeSynth{available: true}
	n := &notes{}

	d := NewDispatcher(remote, synth, player, n.notify, DefaultConfig())
	defer d.Close()

	d.Speak(Request{Text: "Hello", Language: "hi", Address: "localhost"})
	d.Wait()

	if len(player.finished) != 1 || player.finished[0] != "Hello" {
		t.Errorf("played = %v, want [Hello]", player.finished)
	}
	if len(synth.spoken) != 0 {
		t.Error("local synthesizer should not be used when remote succeeds")
	}
	if !n.contains(`Speaking: "Hello" (hi)`) {
		t.Errorf("notes = %v", n.msgs)
	}
}

func TestDispatcher_FallsBackToLocal(t *testing.T) {
	remote := &fakeRemote{err: errors.New("connection refused")}
	synth := &fakeSynth{
		available: true,
		voices: []Voice{
			{ID: "Samantha", Lang: "en_US"},
			{ID: "Lekha", Lang: "hi_IN"},
		},
	}

	d := NewDispatcher(remote, synth, &fakePlayer{}, nil, DefaultConfig())
	defer d.Close()

	d.Speak(Request{Text: "Yes", Language: "hi", Address: "localhost"})
	d.Wait()

	if len(synth.spoken) != 1 || synth.spoken[0].ID != "Lekha" {
		t.Errorf("local voices used = %+v, want Lekha", synth.spoken)
	}
}

func TestDispatcher_NoAddressSkipsRemote(t *testing.T) {
	remote := &fakeRemote{}
	synth := &fakeSynth{available: true}

	d := NewDispatcher(remote, synth, &fakePlayer{}, nil, DefaultConfig())
	defer d.Close()

	d.Speak(Request{Text: "Stop", Language: "en"})
	d.Wait()

	if remote.count() != 0 {
		t.Error("remote should be skipped without an address")
	}
	if len(synth.spoken) != 1 {
		t.Errorf("local speak calls = %d, want 1", len(synth.spoken))
	}
}

func TestDispatcher_NoVoiceForLanguage(t *testing.T) {
	synth := &fakeSynth{available: true, voices: []Voice{{ID: "Alex", Lang: "en_US"}}}
	n := &notes{}

	d := NewDispatcher(nil, synth, nil, n.notify, DefaultConfig())
	defer d.Close()

	d.Speak(Request{Text: "Hello", Language: "ta"})
	d.Wait()

	if !n.contains("No voice found for ta, using default") {
		t.Errorf("notes = %v", n.msgs)
	}
	if len(synth.spoken) != 1 || synth.spoken[0].ID != "" {
		t.Errorf("expected default voice, got %+v", synth.spoken)
	}
}

func TestDispatcher_ReportsFailure(t *testing.T) {
	n := &notes{}
	d := NewDispatcher(&fakeRemote{err: errors.New("down")}, &fakeSynth{}, &fakePlayer{}, n.notify, DefaultConfig())
	defer d.Close()

	d.Speak(Request{Text: "No", Language: "en", Address: "localhost"})
	d.Wait()

	if !n.contains("error: Speech failed:") {
		t.Errorf("notes = %v", n.msgs)
	}
}

func TestDispatcher_AtMostOneUtterance(t *testing.T) {
	player := &fakePlayer{hold: 50 * time.Millisecond}
	d := NewDispatcher(&fakeRemote{}, &fakeSynth{}, player, nil, DefaultConfig())
	defer d.Close()

	for _, text := range []string{"one", "two", "three", "four"} {
		d.Speak(Request{Text: text, Language: "en", Address: "localhost"})
		time.Sleep(5 * time.Millisecond)
	}
	d.Wait()

	player.mu.Lock()
	defer player.mu.Unlock()

	if player.maxActive != 1 {
		t.Errorf("max concurrent playback = %d, want 1", player.maxActive)
	}
	if len(player.finished) != 1 || player.finished[0] != "four" {
		t.Errorf("finished = %v, want only [four]", player.finished)
	}
	if len(player.cancelled) == 0 {
		t.Error("earlier utterances should have been cancelled")
	}
}

func TestDispatcher_SpeakGesture(t *testing.T) {
	remote := &fakeRemote{}
	d := NewDispatcher(remote, &fakeSynth{}, &fakePlayer{}, nil, DefaultConfig())
	defer d.Close()

	req := Request{Text: "Hello", Language: "en", Address: "localhost"}
	if !d.SpeakGesture("HELLO", req) {
		t.Error("first SpeakGesture should dispatch")
	}
	// let it finish so the second dispatch cannot cancel it first
	d.Wait()
	if d.SpeakGesture("HELLO", req) {
		t.Error("repeated gesture should not dispatch")
	}
	if d.lastSpokenGesture() != "HELLO" {
		t.Errorf("lastSpokenGesture() = %v, want HELLO", d.lastSpokenGesture())
	}

	d.ResetGesture()
	if !d.SpeakGesture("HELLO", req) {
		t.Error("SpeakGesture should dispatch again after a reset")
	}
	d.Wait()

	if remote.count() != 2 {
		t.Errorf("remote calls = %d, want 2", remote.count())
	}
}

func TestDispatcher_Close(t *testing.T) {
	remote := &fakeRemote{}
	player := &fakePlayer{hold: time.Second}
	d := NewDispatcher(remote, &fakeSynth{}, player, nil, DefaultConfig())

	d.Speak(Request{Text: "long", Language: "en", Address: "localhost"})
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	d.Close()
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Close() should cancel playback promptly")
	}

	d.Speak(Request{Text: "after", Language: "en", Address: "localhost"})
	if remote.count() != 1 {
		t.Errorf("Speak after Close should be ignored, remote calls = %d", remote.count())
	}
}

func TestDispatcher_AudioCache(t *testing.T) {
	tests := []struct {
		name      string
		entries   int
		remoteErr error
		wantCalls int
	}{
		{"cache hit on repeat", 4, nil, 1},
		{"cache disabled", 0, nil, 2},
		{"failures are not cached", 4, errors.New("down"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{err: tt.remoteErr}
			player := &fakePlayer{}
			cfg := DefaultConfig()
			cfg.CacheEntries = tt.entries
			d := NewDispatcher(remote, &fakeSynth{available: true}, player, nil, cfg)
			defer d.Close()

			req := Request{Text: "Hello", Language: "en", Address: "localhost"}
			d.Speak(req)
			d.Wait()
			d.Speak(req)
			d.Wait()

			if remote.count() != tt.wantCalls {
				t.Errorf("remote calls = %d, want %d", remote.count(), tt.wantCalls)
			}
			if tt.remoteErr == nil {
				player.mu.Lock()
				played := len(player.finished)
				player.mu.Unlock()
				if played != 2 {
					t.Errorf("played = %d, want 2", played)
				}
			}
		})
	}
}

func TestAudioKey(t *testing.T) {
	if audioKey("a", "b", "c") == audioKey("a", "c", "b") {
		t.Error("audioKey should keep text and language apart")
	}
}
