package activity

import (
	"fmt"
	"testing"
	"time"
)

func TestLog_NewestFirst(t *testing.T) {
	log := New(DefaultCapacity)

	log.Append(KindSuccess, "Connected to backend")
	log.Append(KindGesture, "Detected: HELLO")
	log.Append(KindInfo, `Speaking: "HELLO" (en)`)

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	want := []string{`Speaking: "HELLO" (en)`, "Detected: HELLO", "Connected to backend"}
	for i, msg := range want {
		if entries[i].Message != msg {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Message, msg)
		}
	}
	if entries[1].Kind != KindGesture {
		t.Errorf("entries[1].Kind = %v, want gesture", entries[1].Kind)
	}
}

func TestLog_EvictsOldest(t *testing.T) {
	log := New(DefaultCapacity)

	for i := 0; i < 60; i++ {
		log.Append(KindInfo, fmt.Sprintf("entry %d", i))
	}

	if log.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", log.Len())
	}

	entries := log.Entries()
	if entries[0].Message != "entry 59" {
		t.Errorf("newest = %q, want entry 59", entries[0].Message)
	}
	if entries[49].Message != "entry 10" {
		t.Errorf("oldest = %q, want entry 10", entries[49].Message)
	}
}

func TestLog_UniqueIDsAndTimestamps(t *testing.T) {
	log := New(5)
	fixed := time.Date(2025, 12, 7, 10, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	a := log.Append(KindInfo, "a")
	b := log.Append(KindInfo, "b")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs should be unique and non-empty: %q, %q", a.ID, b.ID)
	}
	if !a.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", a.Timestamp, fixed)
	}
}

func TestLog_EntriesIsCopy(t *testing.T) {
	log := New(3)
	log.Append(KindInfo, "original")

	entries := log.Entries()
	entries[0].Message = "mutated"

	if log.Entries()[0].Message != "original" {
		t.Error("Entries() must not expose internal storage")
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	if New(0).Capacity() != DefaultCapacity {
		t.Errorf("New(0).Capacity() = %d, want %d", New(0).Capacity(), DefaultCapacity)
	}
}
