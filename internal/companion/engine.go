// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     companion
// Description: Polling and event-stabilization engine
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package companion

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/msto63/signspeak/internal/companion/activity"
	"github.com/msto63/signspeak/internal/companion/audio"
	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/internal/companion/connection"
	"github.com/msto63/signspeak/internal/companion/poller"
	"github.com/msto63/signspeak/internal/companion/settings"
	"github.com/msto63/signspeak/internal/companion/speech"
	"github.com/msto63/signspeak/internal/companion/stabilizer"
	"github.com/msto63/signspeak/internal/companion/state"
	"github.com/msto63/signspeak/pkg/core/errs"
	"github.com/msto63/signspeak/pkg/core/logging"
)

// Log messages shown for a manual liveness check
const (
	MsgTestOK     = "Test connection successful!"
	MsgTestFailed = "Test connection failed."
)

// ErrStopped is returned by commands issued after the engine has stopped
var ErrStopped = errs.New(errs.CodeCancelled, "engine stopped")

// Backend is the remote sensor-inference service
type Backend interface {
	poller.Inferrer
	speech.Remote
	Ping(ctx context.Context, address string) error
}

// Options configures the engine
type Options struct {
	PollInterval     time.Duration
	PollTimeout      time.Duration
	FailureThreshold int
	LogCapacity      int
	Speech           speech.Config
	// Active starts polling immediately instead of waiting for Connect
	Active bool
	// Demo starts in demo mode
	Demo bool
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		PollInterval:     100 * time.Millisecond,
		PollTimeout:      poller.DefaultTimeout,
		FailureThreshold: connection.DefaultFailureThreshold,
		LogCapacity:      activity.DefaultCapacity,
		Speech:           speech.DefaultConfig(),
	}
}

// Deps are the collaborators the engine drives
type Deps struct {
	Backend Backend
	// Store is owned by the engine from here on and closed on teardown
	Store  *settings.Store
	Local  speech.Synthesizer
	Player audio.Player
}

// speaker is the part of the speech dispatcher the engine uses
type speaker interface {
	Speak(req speech.Request)
	SpeakGesture(gesture string, req speech.Request) bool
	ResetGesture()
	Close()
}

type note struct {
	kind    activity.Kind
	message string
}

// Engine owns all core state. Everything below the channel fields is
// touched only by the Run goroutine.
type Engine struct {
	opts    Options
	backend Backend
	store   *settings.Store
	hub     *state.Hub
	conn    *connection.Machine
	logger  *logging.Logger

	commands chan func()
	notes    chan note
	stopping chan struct{}
	done     chan struct{}
	started  int32

	runCtx  context.Context
	poller  *poller.Poller
	stab    *stabilizer.Stabilizer
	speaker speaker
	log     *activity.Log
	view    state.Snapshot
	latency time.Duration
	active  bool
	demo    bool
}

// New creates an engine. Call Run to start it.
func New(opts Options, deps Deps) *Engine {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = def.PollTimeout
	}
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = def.LogCapacity
	}

	e := &Engine{
		opts:     opts,
		backend:  deps.Backend,
		store:    deps.Store,
		conn:     connection.NewMachine(opts.FailureThreshold),
		logger:   logging.New("engine"),
		commands: make(chan func()),
		notes:    make(chan note, 16),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		runCtx:   context.Background(),
		poller:   poller.New(deps.Backend, opts.PollTimeout),
		stab:     stabilizer.New(),
		log:      activity.New(opts.LogCapacity),
		view:     state.Waiting(),
		active:   opts.Active || opts.Demo,
	}

	var remote speech.Remote
	if deps.Backend != nil {
		remote = deps.Backend
	}
	e.speaker = speech.NewDispatcher(remote, deps.Local, deps.Player, e.Notify, opts.Speech)
	e.conn.AddListener(e.onConnectionChange)

	e.hub = state.NewHub(e.buildSnapshot())
	return e
}

// AddConnectionListener registers l for connection transitions. It must
// be called before Run; l runs on the engine goroutine.
func (e *Engine) AddConnectionListener(l connection.Listener) {
	e.conn.AddListener(l)
}

// Run drives the engine until ctx is cancelled
func (e *Engine) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.started, 0, 1) {
		return errs.New(errs.CodeUnknown, "engine already started")
	}
	e.runCtx = ctx

	ticker := time.NewTicker(e.opts.PollInterval)
	defer func() {
		ticker.Stop()
		e.shutdown()
	}()

	e.logger.Info("Engine started",
		"address", e.store.Get().BackendAddress,
		"interval", e.opts.PollInterval,
		"timeout", e.opts.PollTimeout,
		"threshold", e.conn.Threshold(),
	)
	if e.opts.Demo {
		e.enterDemo()
	}
	e.publish()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick()
		case r := <-e.poller.Results():
			e.handleResult(r)
		case fn := <-e.commands:
			fn()
		case n := <-e.notes:
			e.appendLog(n.kind, n.message)
			e.publish()
		}
	}
}

// Done is closed once Run has returned and teardown has completed
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) shutdown() {
	close(e.stopping)
	e.poller.Stop()
	e.speaker.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Error("Failed to close settings store", "error", err)
	}
	e.hub.Close()
	close(e.done)
	e.logger.Info("Engine stopped")
}

// tick issues one inference request when the session allows it
func (e *Engine) tick() {
	if !e.active || e.poller.InFlight() {
		return
	}
	s := e.store.Get()
	if strings.TrimSpace(s.BackendAddress) == "" {
		return
	}
	e.poller.Issue(e.runCtx, backend.Params{
		Address:   s.BackendAddress,
		Language:  s.Language,
		UseGemini: s.UseGemini,
	})
}

func (e *Engine) handleResult(r poller.Result) {
	if !e.poller.Complete(r) {
		e.logger.Debug("Discarding stale result", "generation", r.Generation, "kind", r.Kind.String())
		return
	}

	if r.OK() {
		e.latency = r.RoundTrip
		e.conn.RecordSuccess()
		e.observe(r)
	} else {
		e.logger.Debug("Poll failed", "kind", r.Kind.String(), "error", r.Err)
		e.conn.RecordFailure()
	}
	e.publish()
}

// observe feeds a successful reading through the stabilizer
func (e *Engine) observe(r poller.Result) {
	reading := r.Reading
	e.view.Sensors = reading.Sensors

	decision, ev := e.stab.Observe(reading.Gesture, reading.Sentence, r.ReceivedAt)
	switch decision {
	case stabilizer.Reset:
		e.setGesture(stabilizer.Waiting, stabilizer.WaitingSentence)
		e.speaker.ResetGesture()

	case stabilizer.Accept:
		e.setGesture(ev.Gesture, ev.Sentence)
		e.appendLog(activity.KindGesture, "Detected: "+ev.Gesture)
		e.logger.Info("Gesture detected", "gesture", ev.Gesture, "latency", r.RoundTrip)

		s := e.store.Get()
		if s.AutoSpeak {
			e.speaker.SpeakGesture(ev.Gesture, speech.Request{
				Text:     ev.Sentence,
				Language: s.Language,
				Address:  s.BackendAddress,
			})
		}
	}
}

func (e *Engine) setGesture(gesture, sentence string) {
	d := stabilizer.Describe(gesture)
	e.view.Gesture = gesture
	e.view.Sentence = sentence
	e.view.Description = d.Text
	e.view.Icon = d.Icon
}

func (e *Engine) onConnectionChange(_, newState connection.State) {
	kind := activity.KindError
	if newState == connection.Connected {
		kind = activity.KindSuccess
	}
	e.logger.Info(newState.Message(), "address", e.store.Get().BackendAddress)
	e.appendLog(kind, newState.Message())
}

func (e *Engine) appendLog(kind activity.Kind, message string) {
	e.log.Append(kind, message)
}

func (e *Engine) buildSnapshot() state.Snapshot {
	s := e.store.Get()
	snap := e.view
	snap.LatencyMS = e.latency.Milliseconds()
	snap.Connection = e.conn.Current().String()
	snap.Connected = e.conn.Current() == connection.Connected
	snap.Failures = e.conn.Failures()
	snap.AutoSpeak = s.AutoSpeak
	snap.Language = s.Language
	snap.UseGemini = s.UseGemini
	snap.Address = s.BackendAddress
	snap.Demo = e.demo
	snap.Active = e.active
	snap.Log = e.log.Entries()
	snap.UpdatedAt = time.Now()
	return snap
}

func (e *Engine) publish() {
	e.hub.Publish(e.buildSnapshot())
}

// ============================================================================
// Presentation API
// ============================================================================

// Snapshot returns the most recently published state
func (e *Engine) Snapshot() state.Snapshot {
	return e.hub.Latest()
}

// Subscribe returns a channel of state changes; see state.Hub
func (e *Engine) Subscribe() <-chan state.Snapshot {
	return e.hub.Subscribe()
}

// Unsubscribe releases a channel returned by Subscribe
func (e *Engine) Unsubscribe(ch <-chan state.Snapshot) {
	e.hub.Unsubscribe(ch)
}

// Settings returns the current settings
func (e *Engine) Settings() settings.Settings {
	return e.store.Get()
}

// Notify appends a log entry from any goroutine
func (e *Engine) Notify(kind activity.Kind, message string) {
	select {
	case e.notes <- note{kind: kind, message: message}:
	case <-e.stopping:
	}
}

// do runs fn on the engine goroutine and waits for it. Before Run has
// started it blocks until it does.
func (e *Engine) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case e.commands <- func() { fn(); close(ran) }:
	case <-e.done:
		return ErrStopped
	}
	<-ran
	return nil
}

// UpdateSettings applies p. Changes to address, language or use_gemini
// discard the request in flight; the next tick uses the new values.
func (e *Engine) UpdateSettings(p settings.Patch) (settings.Settings, error) {
	var (
		out settings.Settings
		err error
	)
	if derr := e.do(func() { out, err = e.applyPatch(p) }); derr != nil {
		return e.store.Get(), derr
	}
	return out, err
}

func (e *Engine) applyPatch(p settings.Patch) (settings.Settings, error) {
	s, changes, err := e.store.Set(p)
	if err != nil {
		return s, err
	}
	if changes.InvalidatesPoll() && e.poller.InFlight() {
		e.logger.Debug("Settings changed, cancelling request in flight")
	}
	if changes.InvalidatesPoll() {
		e.poller.Invalidate()
	}
	if changes != 0 {
		e.publish()
	}
	return s, nil
}

// SetBackendAddress changes the backend host
func (e *Engine) SetBackendAddress(address string) error {
	_, err := e.UpdateSettings(settings.Patch{BackendAddress: &address})
	return err
}

// SetLanguage changes the language sent with every poll and used for speech
func (e *Engine) SetLanguage(lang string) error {
	_, err := e.UpdateSettings(settings.Patch{Language: &lang})
	return err
}

// SetAutoSpeak toggles speaking accepted gestures
func (e *Engine) SetAutoSpeak(on bool) error {
	_, err := e.UpdateSettings(settings.Patch{AutoSpeak: &on})
	return err
}

// SetUseGemini toggles sentence generation on the backend
func (e *Engine) SetUseGemini(on bool) error {
	_, err := e.UpdateSettings(settings.Patch{UseGemini: &on})
	return err
}

// RequestSpeak speaks text, or the current sentence when text is empty.
// It bypasses the repeated-gesture gate.
func (e *Engine) RequestSpeak(text string) error {
	return e.do(func() {
		if strings.TrimSpace(text) == "" {
			text = e.view.Sentence
		}
		s := e.store.Get()
		e.speaker.Speak(speech.Request{Text: text, Language: s.Language, Address: s.BackendAddress})
	})
}

// Connect starts polling address (or the stored one when empty),
// persists it and marks the session connected. Polls that keep failing
// drop it back to disconnected after the failure threshold.
func (e *Engine) Connect(address string) error {
	var err error
	if derr := e.do(func() {
		if strings.TrimSpace(address) != "" {
			if _, err = e.applyPatch(settings.Patch{BackendAddress: &address}); err != nil {
				return
			}
		}
		addr := e.store.Get().BackendAddress
		e.store.Persist(settings.KeyAddress, addr)
		e.active = true
		e.demo = false
		e.appendLog(activity.KindInfo, "Connecting to "+addr+"...")
		e.conn.Force(connection.Connected)
		e.publish()
	}); derr != nil {
		return derr
	}
	return err
}

// EnterDemoMode marks the session active and connected without waiting
// for the backend.
func (e *Engine) EnterDemoMode() error {
	return e.do(func() {
		e.enterDemo()
		e.publish()
	})
}

func (e *Engine) enterDemo() {
	e.demo = true
	e.active = true
	e.conn.Force(connection.Connected)
	e.appendLog(activity.KindInfo, "Demo mode enabled")
}

// TestConnection checks that address (or the stored one) answers and
// logs the outcome. It blocks for at most the poll timeout.
func (e *Engine) TestConnection(ctx context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		address = e.store.Get().BackendAddress
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.PollTimeout)
	defer cancel()

	err := e.backend.Ping(ctx, address)
	if err != nil {
		e.logger.Warn("Test connection failed", "address", address, "error", err)
		e.Notify(activity.KindError, MsgTestFailed)
		return err
	}
	e.Notify(activity.KindSuccess, MsgTestOK)
	return nil
}
