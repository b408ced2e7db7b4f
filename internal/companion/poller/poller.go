// Package poller manages the lifecycle of inference requests: at most one
// request in flight, a per-request deadline, and generation-based
// invalidation so results of superseded requests are dropped.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/pkg/core/errs"
)

// DefaultTimeout is the per-request deadline
const DefaultTimeout = 2 * time.Second

// Inferrer performs one inference request
type Inferrer interface {
	Infer(ctx context.Context, p backend.Params) (backend.Reading, error)
}

// Kind classifies a poll outcome
type Kind int

const (
	KindSuccess Kind = iota
	KindTimeout
	KindTransport
	// KindCancelled marks a request aborted by invalidation or shutdown
	KindCancelled
)

// String returns the outcome name
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport_error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is produced exactly once per issued request
type Result struct {
	Generation uint64
	Kind       Kind
	Reading    backend.Reading
	Err        error
	IssuedAt   time.Time
	ReceivedAt time.Time
	RoundTrip  time.Duration
}

// OK reports whether the request succeeded
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Poller issues requests on behalf of a single owner goroutine. Its
// methods are not safe for concurrent use; only the request goroutines
// run concurrently, and they communicate through Results.
type Poller struct {
	infer   Inferrer
	timeout time.Duration
	results chan Result
	now     func() time.Time

	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a poller. A timeout of zero selects DefaultTimeout.
func New(infer Inferrer, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{
		infer:   infer,
		timeout: timeout,
		// one slot is enough: a new request is only issued after the
		// previous result has been received and completed
		results: make(chan Result, 1),
		now:     time.Now,
	}
}

// Results delivers one Result per issued request
func (p *Poller) Results() <-chan Result {
	return p.results
}

// InFlight reports whether a request is outstanding
func (p *Poller) InFlight() bool {
	return p.inFlight
}

// Issue starts a request with params unless one is already outstanding.
// It reports whether a request was started.
func (p *Poller) Issue(parent context.Context, params backend.Params) bool {
	if p.inFlight {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.inFlight = true
	gen := p.generation
	issued := p.now()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		reqCtx, reqCancel := context.WithTimeout(ctx, p.timeout)
		reading, err := p.infer.Infer(reqCtx, params)
		timedOut := errors.Is(reqCtx.Err(), context.DeadlineExceeded)
		reqCancel()

		received := p.now()
		r := Result{
			Generation: gen,
			Reading:    reading,
			IssuedAt:   issued,
			ReceivedAt: received,
			RoundTrip:  received.Sub(issued),
		}

		switch {
		case err == nil:
			r.Kind = KindSuccess
		case ctx.Err() != nil:
			r.Kind = KindCancelled
			r.Err = errs.Wrap(err, errs.CodeCancelled, "request cancelled")
		case timedOut || errs.HasCode(err, errs.CodeTimeout):
			r.Kind = KindTimeout
			r.Err = errs.Wrap(err, errs.CodeTimeout, "no response within deadline")
		default:
			r.Kind = KindTransport
			r.Err = err
			if errs.GetCode(err) != errs.CodeTransport {
				r.Err = errs.Wrap(err, errs.CodeTransport, "request failed")
			}
		}

		p.results <- r
	}()

	return true
}

// Complete must be called for every Result received from Results. It
// clears the in-flight flag and reports whether the result belongs to
// the current generation and may be applied.
func (p *Poller) Complete(r Result) bool {
	p.inFlight = false
	p.cancel = nil
	return r.Generation == p.generation && r.Kind != KindCancelled
}

// Invalidate cancels the outstanding request, if any, and advances the
// generation so that its result is discarded. The request still counts
// as in flight until its result has been completed.
func (p *Poller) Invalidate() {
	p.generation++
	if p.cancel != nil {
		p.cancel()
	}
}

// Stop cancels the outstanding request and waits for its goroutine.
// A pending result is drained and discarded.
func (p *Poller) Stop() {
	p.Invalidate()
	p.wg.Wait()

	select {
	case <-p.results:
	default:
	}
	p.inFlight = false
	p.cancel = nil
}
