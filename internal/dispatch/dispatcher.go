// Package dispatch owns all access to the engine handle. The engine is not
// thread safe, so every generation (caller traffic and health probes alike)
// must pass through Submit, which bounds concurrency to a fixed number of
// slots and grants them in arrival order.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
)

// Request is one unit of work for the engine.
type Request struct {
	ID     string
	Prompt string
	Params engine.Params
}

// Dispatcher serializes calls into the engine under a fixed slot budget.
type Dispatcher struct {
	eng        engine.Engine
	rec        Recorder
	queueWait  time.Duration
	genTimeout time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	free    int
	busy    int
	waiters []chan struct{} // FIFO; head is granted first
}

// New builds a Dispatcher with width slots. Zero timeouts get defaults of
// 30s queue wait and 120s generation.
func New(eng engine.Engine, width int, queueWait, genTimeout time.Duration, rec Recorder, log zerolog.Logger) *Dispatcher {
	if width <= 0 {
		width = 1
	}
	if queueWait <= 0 {
		queueWait = 30 * time.Second
	}
	if genTimeout <= 0 {
		genTimeout = 120 * time.Second
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Dispatcher{
		eng:        eng,
		rec:        rec,
		queueWait:  queueWait,
		genTimeout: genTimeout,
		log:        log,
		free:       width,
	}
}

// Width returns the configured slot count.
func (d *Dispatcher) Width() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.free + d.busy
}

// Busy returns the number of slots currently held.
func (d *Dispatcher) Busy() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Ready reports whether the engine can serve generations.
func (d *Dispatcher) Ready() bool { return d.eng.Loaded() }

type genResult struct {
	res engine.Result
	err error
}

// Submit runs one generation under the slot discipline. It blocks the
// calling goroutine until a slot frees (bounded by the queue-wait timeout)
// and then until generation completes (bounded by the per-generation
// deadline). If ctx is canceled while waiting for the result, Submit
// returns immediately; the in-flight generation is aborted at the next
// token boundary by the same cancellation, its slot is released by the
// background goroutine, and its result is discarded.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (engine.Result, error) {
	if !d.eng.Loaded() {
		d.rec.RecordDispatch(Event{RequestID: req.ID, Outcome: OutcomeNotReady})
		return engine.Result{}, notReadyError{}
	}

	queued := time.Now()
	release, err := d.acquire(ctx)
	waited := time.Since(queued)
	if err != nil {
		outcome := OutcomeCanceled
		if IsQueueTimeout(err) {
			outcome = OutcomeQueueTimeout
		}
		d.rec.RecordDispatch(Event{RequestID: req.ID, Outcome: outcome, QueueWait: waited})
		return engine.Result{}, err
	}

	resCh := make(chan genResult, 1)
	go func() {
		defer release()
		genCtx, cancel := context.WithTimeout(ctx, d.genTimeout)
		defer cancel()
		started := time.Now()
		res, genErr := d.eng.Generate(genCtx, req.Prompt, req.Params)
		dur := time.Since(started)

		ev := Event{
			RequestID:        req.ID,
			QueueWait:        waited,
			GenerateDuration: dur,
			CompletionTokens: res.Usage.CompletionTokens,
		}
		switch {
		case genErr == nil:
			ev.Outcome = OutcomeOK
		case ctx.Err() != nil:
			// The caller went away; the result is discarded below.
			ev.Outcome = OutcomeCanceled
			genErr = ctx.Err()
		case errors.Is(genErr, context.DeadlineExceeded):
			ev.Outcome = OutcomeGenerateTimeout
			genErr = generateTimeoutError{}
		case engine.IsUnavailable(genErr):
			// Loaded() raced a runtime that cannot actually serve.
			ev.Outcome = OutcomeNotReady
			genErr = notReadyError{}
		default:
			ev.Outcome = OutcomeEngineFailure
			genErr = engineFailureError{err: genErr}
		}
		d.rec.RecordDispatch(ev)
		if ev.Outcome != OutcomeOK {
			d.log.Warn().Str("request_id", req.ID).Str("outcome", ev.Outcome).Dur("generate", dur).Msg("dispatch failed")
		}
		resCh <- genResult{res: res, err: genErr}
	}()

	select {
	case r := <-resCh:
		return r.res, r.err
	case <-ctx.Done():
		// Never hand a late result to anyone else; the goroutine above owns
		// slot release and the buffered channel lets it finish unobserved.
		return engine.Result{}, ctx.Err()
	}
}

// acquire reserves one slot, waiting FIFO behind earlier submissions. The
// returned release func must be called exactly once on every exit path.
func (d *Dispatcher) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.free > 0 {
		d.free--
		d.busy++
		d.mu.Unlock()
		return d.release, nil
	}
	w := make(chan struct{}, 1)
	d.waiters = append(d.waiters, w)
	d.mu.Unlock()

	timer := time.NewTimer(d.queueWait)
	defer timer.Stop()
	select {
	case <-w:
		return d.release, nil
	case <-ctx.Done():
		d.abandon(w)
		return nil, ctx.Err()
	case <-timer.C:
		d.abandon(w)
		return nil, queueTimeoutError{}
	}
}

// release returns a slot, handing it to the oldest waiter if any. The pop
// and the grant happen under the mutex (the grant channel is buffered, the
// send cannot block), so a waiter absent from the queue has always been
// granted; abandon relies on that.
func (d *Dispatcher) release() {
	d.mu.Lock()
	if len(d.waiters) > 0 {
		w := d.waiters[0]
		d.waiters = d.waiters[1:]
		w <- struct{}{} // busy count unchanged: slot changes hands
		d.mu.Unlock()
		return
	}
	d.busy--
	d.free++
	d.mu.Unlock()
}

// abandon removes w from the wait queue. If the grant raced ahead of the
// timeout, the slot already belongs to w and must be given back.
func (d *Dispatcher) abandon(w chan struct{}) {
	d.mu.Lock()
	for i, q := range d.waiters {
		if q == w {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			d.mu.Unlock()
			return
		}
	}
	d.mu.Unlock()
	<-w
	d.release()
}
