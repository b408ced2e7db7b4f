package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/pkg/core/errs"
)

// fakeInferrer blocks each call until release receives a value or the
// context ends, and tracks concurrency.
type fakeInferrer struct {
	release  chan backend.Reading
	err      error
	active   int32
	maxSeen  int32
	calls    int32
	lastLang atomic.Value
}

func newFake() *fakeInferrer {
	return &fakeInferrer{release: make(chan backend.Reading)}
}

func (f *fakeInferrer) Infer(ctx context.Context, p backend.Params) (backend.Reading, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastLang.Store(p.Language)
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}

	if f.err != nil {
		return backend.Reading{}, f.err
	}
	select {
	case r := <-f.release:
		return r, nil
	case <-ctx.Done():
		return backend.Reading{}, ctx.Err()
	}
}

func receive(t *testing.T, p *Poller) Result {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result received")
		return Result{}
	}
}

func TestPoller_SingleInFlight(t *testing.T) {
	fake := newFake()
	p := New(fake, time.Second)
	defer p.Stop()

	params := backend.Params{Address: "localhost", Language: "en"}
	if !p.Issue(context.Background(), params) {
		t.Fatal("first Issue() should start a request")
	}
	for i := 0; i < 10; i++ {
		if p.Issue(context.Background(), params) {
			t.Fatal("Issue() while in flight must be a no-op")
		}
	}

	fake.release <- backend.Reading{Gesture: "HELLO"}
	r := receive(t, p)
	if !p.Complete(r) {
		t.Fatal("current result should be applicable")
	}
	if r.Kind != KindSuccess || r.Reading.Gesture != "HELLO" {
		t.Errorf("result = %+v", r)
	}
	if p.InFlight() {
		t.Error("Complete() should clear the in-flight flag")
	}
	if got := atomic.LoadInt32(&fake.calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&fake.maxSeen); got != 1 {
		t.Errorf("max concurrent requests = %d, want 1", got)
	}
}

func TestPoller_RoundTrip(t *testing.T) {
	fake := newFake()
	p := New(fake, time.Second)
	defer p.Stop()

	base := time.Date(2025, 12, 7, 9, 0, 0, 0, time.UTC)
	calls := 0
	p.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 42 * time.Millisecond)
	}

	p.Issue(context.Background(), backend.Params{Address: "x"})
	fake.release <- backend.Reading{}
	r := receive(t, p)
	p.Complete(r)

	if r.RoundTrip != 42*time.Millisecond {
		t.Errorf("RoundTrip = %v, want 42ms", r.RoundTrip)
	}
}

func TestPoller_Timeout(t *testing.T) {
	fake := newFake()
	p := New(fake, 30*time.Millisecond)
	defer p.Stop()

	p.Issue(context.Background(), backend.Params{Address: "x"})
	r := receive(t, p)

	if r.Kind != KindTimeout {
		t.Fatalf("Kind = %v, want timeout", r.Kind)
	}
	if !errs.HasCode(r.Err, errs.CodeTimeout) {
		t.Errorf("code = %v, want TIMEOUT", errs.GetCode(r.Err))
	}
	if !p.Complete(r) {
		t.Error("a timeout of the current generation must be applied as a failure")
	}
}

func TestPoller_TransportError(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("connection refused")
	p := New(fake, time.Second)
	defer p.Stop()

	p.Issue(context.Background(), backend.Params{Address: "x"})
	r := receive(t, p)

	if r.Kind != KindTransport {
		t.Fatalf("Kind = %v, want transport_error", r.Kind)
	}
	if !errs.HasCode(r.Err, errs.CodeTransport) {
		t.Errorf("code = %v, want TRANSPORT_ERROR", errs.GetCode(r.Err))
	}
}

func TestPoller_InvalidateDiscardsStaleResult(t *testing.T) {
	fake := newFake()
	p := New(fake, time.Second)
	defer p.Stop()

	p.Issue(context.Background(), backend.Params{Address: "x", Language: "en"})
	p.Invalidate()

	if !p.InFlight() {
		t.Fatal("cancelled request stays in flight until completed")
	}
	if p.Issue(context.Background(), backend.Params{Address: "x", Language: "hi"}) {
		t.Fatal("Issue() must wait for the cancelled request to finish")
	}

	r := receive(t, p)
	if p.Complete(r) {
		t.Errorf("stale result must be discarded: %+v", r)
	}

	if !p.Issue(context.Background(), backend.Params{Address: "x", Language: "hi"}) {
		t.Fatal("Issue() should start after completion")
	}
	fake.release <- backend.Reading{Gesture: "YES"}
	r = receive(t, p)
	if !p.Complete(r) {
		t.Error("fresh result should apply")
	}
	if lang := fake.lastLang.Load().(string); lang != "hi" {
		t.Errorf("last request language = %q, want hi", lang)
	}
}

func TestPoller_InvalidateRacingCompletion(t *testing.T) {
	fake := newFake()
	p := New(fake, time.Second)
	defer p.Stop()

	p.Issue(context.Background(), backend.Params{Address: "x"})
	fake.release <- backend.Reading{Gesture: "HELLO"}

	// the response is already on its way when settings change
	r := receive(t, p)
	p.Invalidate()
	if p.Complete(r) {
		t.Error("result completed after invalidation must be discarded")
	}
}

func TestPoller_Stop(t *testing.T) {
	fake := newFake()
	p := New(fake, time.Minute)

	p.Issue(context.Background(), backend.Params{Address: "x"})

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
	if p.InFlight() {
		t.Error("Stop() should clear the in-flight flag")
	}
	if atomic.LoadInt32(&fake.active) != 0 {
		t.Error("request goroutine still running after Stop()")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSuccess, "success"},
		{KindTimeout, "timeout"},
		{KindTransport, "transport_error"},
		{KindCancelled, "cancelled"},
		{Kind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
