package settings

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msto63/signspeak/pkg/core/errs"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestOpen_Defaults(t *testing.T) {
	store := Open(NewMemoryKV(), Defaults())
	defer store.Close()

	got := store.Get()
	if got != Defaults() {
		t.Errorf("Get() = %+v, want %+v", got, Defaults())
	}
}

func TestOpen_LoadsStoredValues(t *testing.T) {
	kv := NewMemoryKV()
	kv.Write(KeyAddress, "192.168.0.42")
	kv.Write(KeyLanguage, "hi")
	kv.Write(KeyAutoSpeak, "false")
	kv.Write(KeyUseGemini, "not-a-bool")

	store := Open(kv, Defaults())
	defer store.Close()

	got := store.Get()
	if got.BackendAddress != "192.168.0.42" {
		t.Errorf("BackendAddress = %v, want 192.168.0.42", got.BackendAddress)
	}
	if got.Language != "hi" {
		t.Errorf("Language = %v, want hi", got.Language)
	}
	if got.AutoSpeak {
		t.Error("AutoSpeak should be false")
	}
	if !got.UseGemini {
		t.Error("UseGemini should keep its default on invalid input")
	}
}

func TestStore_Set(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		changes Changes
		check   func(Settings) bool
	}{
		{
			name:    "address",
			patch:   Patch{BackendAddress: strPtr("  10.0.0.5 ")},
			changes: ChangedAddress,
			check:   func(s Settings) bool { return s.BackendAddress == "10.0.0.5" },
		},
		{
			name:    "language",
			patch:   Patch{Language: strPtr("mr")},
			changes: ChangedLanguage,
			check:   func(s Settings) bool { return s.Language == "mr" },
		},
		{
			name:    "auto speak off",
			patch:   Patch{AutoSpeak: boolPtr(false)},
			changes: ChangedAutoSpeak,
			check:   func(s Settings) bool { return !s.AutoSpeak },
		},
		{
			name:    "unchanged value",
			patch:   Patch{Language: strPtr("en")},
			changes: 0,
			check:   func(s Settings) bool { return s.Language == "en" },
		},
		{
			name:    "multiple",
			patch:   Patch{Language: strPtr("ta"), UseGemini: boolPtr(false)},
			changes: ChangedLanguage | ChangedUseGemini,
			check:   func(s Settings) bool { return s.Language == "ta" && !s.UseGemini },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := Open(NewMemoryKV(), Defaults())
			defer store.Close()

			got, changes, err := store.Set(tt.patch)
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if changes != tt.changes {
				t.Errorf("changes = %b, want %b", changes, tt.changes)
			}
			if !tt.check(got) {
				t.Errorf("Set() returned %+v", got)
			}
			if store.Get() != got {
				t.Error("Get() should reflect the merged settings")
			}
		})
	}
}

func TestStore_Set_EmptyAddress(t *testing.T) {
	store := Open(NewMemoryKV(), Defaults())
	defer store.Close()

	_, changes, err := store.Set(Patch{BackendAddress: strPtr("   ")})
	if !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("Set() error = %v, want ErrEmptyAddress", err)
	}
	if !errs.HasCode(err, errs.CodeInvalidSettings) {
		t.Errorf("error code = %v, want INVALID_SETTINGS", errs.GetCode(err))
	}
	if changes != 0 {
		t.Errorf("changes = %b, want none", changes)
	}
	if store.Get().BackendAddress != "localhost" {
		t.Error("address must be untouched after a rejected patch")
	}
}

func TestStore_PersistsAsynchronously(t *testing.T) {
	kv := NewMemoryKV()
	store := Open(kv, Defaults())

	store.Set(Patch{BackendAddress: strPtr("10.1.1.1")})
	store.Set(Patch{AutoSpeak: boolPtr(false)})
	store.Sync()

	if v, ok, _ := kv.Read(KeyAddress); !ok || v != "10.1.1.1" {
		t.Errorf("stored address = %q (%v), want 10.1.1.1", v, ok)
	}
	if v, _, _ := kv.Read(KeyAutoSpeak); v != "false" {
		t.Errorf("stored auto_speak = %q, want false", v)
	}

	store.Set(Patch{Language: strPtr("gu")})
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if v, _, _ := kv.Read(KeyLanguage); v != "gu" {
		t.Errorf("Close() should flush pending writes, language = %q", v)
	}
}

func TestStore_Persist(t *testing.T) {
	kv := NewMemoryKV()
	store := Open(kv, Defaults())
	defer store.Close()

	store.Persist(KeyAddress, store.Get().BackendAddress)
	store.Sync()

	if v, ok, _ := kv.Read(KeyAddress); !ok || v != "localhost" {
		t.Errorf("Persist() should write even unchanged values, got %q", v)
	}
}

func TestStore_ConcurrentSet(t *testing.T) {
	kv := NewMemoryKV()
	store := Open(kv, Defaults())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Set(Patch{AutoSpeak: boolPtr(i%2 == 0)})
		}(i)
	}
	wg.Wait()
	store.Close()

	want := "false"
	if store.Get().AutoSpeak {
		want = "true"
	}
	if v, _, _ := kv.Read(KeyAutoSpeak); v != want && kv.Writes() > 0 {
		t.Errorf("stored auto_speak = %q, cached %q", v, want)
	}
}

func TestChanges(t *testing.T) {
	tests := []struct {
		name        string
		changes     Changes
		invalidates bool
	}{
		{"none", 0, false},
		{"auto speak only", ChangedAutoSpeak, false},
		{"address", ChangedAddress, true},
		{"language", ChangedLanguage, true},
		{"gemini", ChangedUseGemini, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.changes.InvalidatesPoll(); got != tt.invalidates {
				t.Errorf("InvalidatesPoll() = %v, want %v", got, tt.invalidates)
			}
		})
	}

	c := ChangedLanguage | ChangedAutoSpeak
	if !c.Has(ChangedLanguage) || c.Has(ChangedAddress) {
		t.Error("Has() reported wrong membership")
	}
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "nested", "settings.db"))
	if err != nil {
		t.Fatalf("NewSQLiteKV() error = %v", err)
	}
	testKV(t, kv)
}

func TestBadgerKV(t *testing.T) {
	kv, err := NewBadgerKV(filepath.Join(t.TempDir(), "settings.badger"))
	if err != nil {
		t.Fatalf("NewBadgerKV() error = %v", err)
	}
	testKV(t, kv)
}

func TestOpenKV_Unknown(t *testing.T) {
	if _, err := OpenKV("etcd", t.TempDir()); err == nil {
		t.Error("OpenKV() expected error for unknown backend")
	}
}

func TestSQLiteKV_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	kv, err := OpenKV("sqlite", path)
	if err != nil {
		t.Fatalf("OpenKV() error = %v", err)
	}
	store := Open(kv, Defaults())
	store.Set(Patch{BackendAddress: strPtr("172.16.0.9"), Language: strPtr("kn")})
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	kv, err = OpenKV("sqlite", path)
	if err != nil {
		t.Fatalf("OpenKV() reopen error = %v", err)
	}
	store = Open(kv, Defaults())
	defer store.Close()

	got := store.Get()
	if got.BackendAddress != "172.16.0.9" || got.Language != "kn" {
		t.Errorf("reloaded settings = %+v", got)
	}
}

func testKV(t *testing.T, kv KV) {
	t.Helper()
	defer kv.Close()

	if _, ok, err := kv.Read("missing"); err != nil || ok {
		t.Fatalf("Read(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := kv.Write(KeyLanguage, "hi"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := kv.Write(KeyLanguage, "bn"); err != nil {
		t.Fatalf("Write() overwrite error = %v", err)
	}

	v, ok, err := kv.Read(KeyLanguage)
	if err != nil || !ok {
		t.Fatalf("Read() = ok %v, err %v", ok, err)
	}
	if v != "bn" {
		t.Errorf("Read() = %q, want bn", v)
	}
}
