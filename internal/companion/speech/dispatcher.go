// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     speech
// Description: Speech dispatch with remote synthesis and local fallback
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/msto63/signspeak/internal/companion/activity"
	"github.com/msto63/signspeak/internal/companion/audio"
	"github.com/msto63/signspeak/internal/companion/stabilizer"
	"github.com/msto63/signspeak/pkg/core/cache"
	"github.com/msto63/signspeak/pkg/core/errs"
	"github.com/msto63/signspeak/pkg/core/logging"
)

// Remote fetches synthesized audio from the backend
type Remote interface {
	FetchSpeech(ctx context.Context, address, text, language string) ([]byte, error)
}

// Notifier receives user-visible messages produced while speaking.
// It is called from the speech worker goroutine.
type Notifier func(kind activity.Kind, message string)

// Request is a single utterance
type Request struct {
	Text     string
	Language string
	// Address of the backend used for remote synthesis; empty skips it
	Address string
}

// Config holds dispatcher settings
type Config struct {
	RemoteTimeout time.Duration
	// CacheEntries bounds the remote audio cache; 0 disables it
	CacheEntries int
	CacheTTL     time.Duration
}

// DefaultConfig returns default dispatcher settings
func DefaultConfig() Config {
	return Config{RemoteTimeout: 10 * time.Second}
}

// Dispatcher speaks at most one utterance at a time. A new request
// cancels the current one and starts only after it has stopped.
type Dispatcher struct {
	remote Remote
	local  Synthesizer
	player audio.Player
	notify Notifier
	cfg    Config
	logger *logging.Logger
	audio  *cache.Cache

	base context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	lastSpoken string

	voicesMu     sync.Mutex
	voices       []Voice
	voicesLoaded bool

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. remote and player may be nil to
// disable remote synthesis; notify may be nil.
func NewDispatcher(remote Remote, local Synthesizer, player audio.Player, notify Notifier, cfg Config) *Dispatcher {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultConfig().RemoteTimeout
	}
	if local == nil {
		local = unavailable{}
	}
	if notify == nil {
		notify = func(activity.Kind, string) {}
	}

	base, stop := context.WithCancel(context.Background())
	d := &Dispatcher{
		remote: remote,
		local:  local,
		player: player,
		notify: notify,
		cfg:    cfg,
		logger: logging.New("speech"),
		base:   base,
		stop:   stop,
	}
	if remote != nil && cfg.CacheEntries > 0 {
		ccfg := cache.DefaultConfig()
		ccfg.MaxItems = cfg.CacheEntries
		if cfg.CacheTTL > 0 {
			ccfg.TTL = cfg.CacheTTL
		}
		d.audio = cache.New(ccfg)
		d.remote = &cachingRemote{remote: remote, cache: d.audio}
	}
	return d
}

// Speakable reports whether text would produce an utterance
func Speakable(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && text != stabilizer.Waiting && text != stabilizer.WaitingSentence
}

// Speak queues req, cancelling whatever is currently being spoken.
// It never blocks on synthesis and never returns an error; failures are
// logged and reported through the notifier.
func (d *Dispatcher) Speak(req Request) {
	if !Speakable(req.Text) {
		return
	}
	if d.base.Err() != nil {
		return
	}

	d.mu.Lock()
	prevCancel, prevDone := d.cancel, d.done
	ctx, cancel := context.WithCancel(d.base)
	done := make(chan struct{})
	d.cancel, d.done = cancel, done
	d.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(done)
		defer cancel()

		if prevDone != nil {
			<-prevDone
		}
		if ctx.Err() != nil {
			return // superseded while waiting
		}
		d.run(ctx, req)
	}()
}

// SpeakGesture speaks req unless gesture was the last one spoken.
// It reports whether the request was dispatched.
func (d *Dispatcher) SpeakGesture(gesture string, req Request) bool {
	d.mu.Lock()
	if gesture == d.lastSpoken {
		d.mu.Unlock()
		return false
	}
	d.lastSpoken = gesture
	d.mu.Unlock()

	d.Speak(req)
	return true
}

// ResetGesture forgets the last spoken gesture
func (d *Dispatcher) ResetGesture() {
	d.mu.Lock()
	d.lastSpoken = ""
	d.mu.Unlock()
}

// lastSpokenGesture returns the last gesture passed to SpeakGesture
func (d *Dispatcher) lastSpokenGesture() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSpoken
}

// Wait blocks until the most recently queued utterance has finished
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels all speech and waits for the workers to exit
func (d *Dispatcher) Close() {
	d.stop()
	d.wg.Wait()
	if d.audio != nil {
		d.audio.Close()
	}
}

func (d *Dispatcher) run(ctx context.Context, req Request) {
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	d.notify(activity.KindInfo, fmt.Sprintf("Speaking: %q (%s)", req.Text, lang))

	if err := d.speakRemote(ctx, req.Address, req.Text, lang); err == nil {
		return
	} else if ctx.Err() != nil {
		return
	} else if req.Address != "" && d.remote != nil {
		d.logger.Warn("Remote speech failed, using local synthesizer", "error", err)
	}

	if err := d.speakLocal(ctx, req.Text, lang); err != nil && ctx.Err() == nil {
		err = errs.Wrap(err, errs.CodeSpeechSynthesisFailure, "speech synthesis failed")
		d.logger.Error("Speech failed", "text", req.Text, "lang", lang, "error", err)
		d.notify(activity.KindError, "Speech failed: "+err.Error())
	}
}

func (d *Dispatcher) speakRemote(ctx context.Context, address, text, lang string) error {
	if d.remote == nil || d.player == nil || address == "" {
		return errs.New(errs.CodeSpeechSynthesisFailure, "remote synthesis disabled")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.RemoteTimeout)
	data, err := d.remote.FetchSpeech(fetchCtx, address, text, lang)
	cancel()
	if err != nil {
		return err
	}

	return d.player.Play(ctx, data)
}

func (d *Dispatcher) speakLocal(ctx context.Context, text, lang string) error {
	if !d.local.IsAvailable() {
		return errs.New(errs.CodeSpeechSynthesisFailure, "no local speech synthesizer available")
	}

	tag := MapLanguage(lang)
	voice, ok := SelectVoice(d.localVoices(ctx), tag)
	if !ok {
		d.notify(activity.KindInfo, fmt.Sprintf("No voice found for %s, using default", lang))
	}

	d.logger.Debug("Speaking locally", "engine", d.local.Name(), "tag", tag, "voice", voice.Name)
	return d.local.Speak(ctx, text, voice)
}

// localVoices lists the local voices once and caches a successful result
func (d *Dispatcher) localVoices(ctx context.Context) []Voice {
	d.voicesMu.Lock()
	defer d.voicesMu.Unlock()

	if d.voicesLoaded {
		return d.voices
	}
	voices, err := d.local.Voices(ctx)
	if err != nil {
		d.logger.Warn("Failed to list voices", "engine", d.local.Name(), "error", err)
		return nil
	}
	d.voices = voices
	d.voicesLoaded = true
	return voices
}
