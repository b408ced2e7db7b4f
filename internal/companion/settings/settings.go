// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     settings
// Description: Session settings cached in memory and persisted to a KV store
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package settings

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/msto63/signspeak/pkg/core/errs"
	"github.com/msto63/signspeak/pkg/core/logging"
)

// Keys used in the durable store
const (
	KeyAddress   = "address"
	KeyLanguage  = "language"
	KeyAutoSpeak = "auto_speak"
	KeyUseGemini = "use_gemini"
)

// ErrEmptyAddress is returned when a patch clears the backend address
var ErrEmptyAddress = errs.New(errs.CodeInvalidSettings, "backend address must not be empty")

// Settings holds the user-controlled session parameters
type Settings struct {
	BackendAddress string `json:"backend_address"`
	Language       string `json:"language"`
	AutoSpeak      bool   `json:"auto_speak"`
	UseGemini      bool   `json:"use_gemini"`
}

// Defaults returns the settings used when nothing is stored
func Defaults() Settings {
	return Settings{
		BackendAddress: "localhost",
		Language:       "en",
		AutoSpeak:      true,
		UseGemini:      true,
	}
}

// Patch is a partial update; nil fields are left untouched
type Patch struct {
	BackendAddress *string `json:"backend_address,omitempty"`
	Language       *string `json:"language,omitempty"`
	AutoSpeak      *bool   `json:"auto_speak,omitempty"`
	UseGemini      *bool   `json:"use_gemini,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return p.BackendAddress == nil && p.Language == nil && p.AutoSpeak == nil && p.UseGemini == nil
}

// Changes is a bit set of fields modified by a patch
type Changes uint8

const (
	ChangedAddress Changes = 1 << iota
	ChangedLanguage
	ChangedAutoSpeak
	ChangedUseGemini
)

// Has reports whether all bits in c2 are set
func (c Changes) Has(c2 Changes) bool {
	return c&c2 == c2 && c2 != 0
}

// InvalidatesPoll reports whether an outstanding inference request
// was issued with parameters that are no longer current.
func (c Changes) InvalidatesPoll() bool {
	return c&(ChangedAddress|ChangedLanguage|ChangedUseGemini) != 0
}

// KV is the durable key-value collaborator
type KV interface {
	// Read returns the stored value and whether the key exists
	Read(key string) (string, bool, error)
	Write(key, value string) error
	Close() error
}

// Store caches settings in memory and persists changes asynchronously
type Store struct {
	mu      sync.RWMutex
	current Settings
	pending map[string]string
	kv      KV
	logger  *logging.Logger

	wake    chan struct{}
	syncReq chan chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Open loads settings from kv once and starts the background writer.
// Absent or unreadable keys fall back to defaults.
func Open(kv KV, defaults Settings) *Store {
	s := &Store{
		kv:      kv,
		logger:  logging.New("settings"),
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
		syncReq: make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.current = s.load(defaults)

	go s.writeLoop()
	return s
}

func (s *Store) load(defaults Settings) Settings {
	out := defaults

	if v, ok := s.read(KeyAddress); ok && strings.TrimSpace(v) != "" {
		out.BackendAddress = v
	}
	if v, ok := s.read(KeyLanguage); ok && v != "" {
		out.Language = v
	}
	if v, ok := s.read(KeyAutoSpeak); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.AutoSpeak = b
		} else {
			s.logger.Warn("Ignoring invalid stored value", "key", KeyAutoSpeak, "value", v)
		}
	}
	if v, ok := s.read(KeyUseGemini); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.UseGemini = b
		} else {
			s.logger.Warn("Ignoring invalid stored value", "key", KeyUseGemini, "value", v)
		}
	}

	return out
}

func (s *Store) read(key string) (string, bool) {
	v, ok, err := s.kv.Read(key)
	if err != nil {
		s.logger.Warn("Failed to read setting", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

// Get returns the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set merges p into the current settings and schedules persistence.
// It returns the merged settings and which fields actually changed.
func (s *Store) Set(p Patch) (Settings, Changes, error) {
	if p.BackendAddress != nil && strings.TrimSpace(*p.BackendAddress) == "" {
		return s.Get(), 0, ErrEmptyAddress
	}

	s.mu.Lock()
	var changed Changes
	if p.BackendAddress != nil {
		addr := strings.TrimSpace(*p.BackendAddress)
		if addr != s.current.BackendAddress {
			s.current.BackendAddress = addr
			s.pending[KeyAddress] = addr
			changed |= ChangedAddress
		}
	}
	if p.Language != nil && *p.Language != s.current.Language {
		s.current.Language = *p.Language
		s.pending[KeyLanguage] = *p.Language
		changed |= ChangedLanguage
	}
	if p.AutoSpeak != nil && *p.AutoSpeak != s.current.AutoSpeak {
		s.current.AutoSpeak = *p.AutoSpeak
		s.pending[KeyAutoSpeak] = strconv.FormatBool(*p.AutoSpeak)
		changed |= ChangedAutoSpeak
	}
	if p.UseGemini != nil && *p.UseGemini != s.current.UseGemini {
		s.current.UseGemini = *p.UseGemini
		s.pending[KeyUseGemini] = strconv.FormatBool(*p.UseGemini)
		changed |= ChangedUseGemini
	}
	current := s.current
	s.mu.Unlock()

	if changed != 0 {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return current, changed, nil
}

// Persist schedules a write of key even when the cached value is unchanged
func (s *Store) Persist(key, value string) {
	s.mu.Lock()
	s.pending[key] = value
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Sync blocks until all pending writes have reached the KV store
func (s *Store) Sync() {
	ack := make(chan struct{})
	select {
	case s.syncReq <- ack:
		<-ack
	case <-s.done:
	}
}

// Close flushes pending writes, stops the writer and closes the KV store
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		<-s.done
		err = s.kv.Close()
	})
	return err
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.flush()
		case ack := <-s.syncReq:
			s.flush()
			close(ack)
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *Store) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[string]string)
	s.mu.Unlock()

	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := s.kv.Write(k, batch[k]); err != nil {
			s.logger.Error("Failed to persist setting", "key", k, "error", err)
		}
	}
}
