// Package health proves the engine is functionally responsive, not merely
// loaded, by pushing a minimal synthetic generation through the same
// dispatcher slots ordinary requests use. Bypassing the dispatcher would
// mean concurrent access to the engine, which is undefined behavior.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/dispatch"
	"inferd/internal/engine"
)

// probe is the fixed synthetic generation: one token, deterministic.
var probe = dispatch.Request{
	ID:     "health-probe",
	Prompt: "Hi",
	Params: engine.Params{MaxTokens: 1, Temperature: 0},
}

// Status is the verifier's verdict. Recomputed whole on each probe; a
// reader never sees a partially updated status.
type Status struct {
	ModelLoaded         bool
	InferenceFunctional bool
	CheckedAt           time.Time
}

// Healthy reports the binary verdict surfaced by the health endpoint.
func (s Status) Healthy() bool { return s.ModelLoaded && s.InferenceFunctional }

// Submitter is the slice of the dispatcher the verifier needs.
type Submitter interface {
	Ready() bool
	Submit(ctx context.Context, req dispatch.Request) (engine.Result, error)
}

// Verifier runs synthetic probes with a TTL cache so scrape pressure does
// not occupy engine slots.
type Verifier struct {
	disp         Submitter
	probeTimeout time.Duration
	ttl          time.Duration
	log          zerolog.Logger

	mu   sync.Mutex
	last Status
}

// New builds a Verifier. Zero durations default to a 15s probe deadline and
// a 30s cache.
func New(disp Submitter, probeTimeout, ttl time.Duration, log zerolog.Logger) *Verifier {
	if probeTimeout <= 0 {
		probeTimeout = 15 * time.Second
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Verifier{disp: disp, probeTimeout: probeTimeout, ttl: ttl, log: log}
}

// Check returns the current health status, probing at most once per TTL.
// It never returns an error: failures degrade the status instead. The
// mutex doubles as single-flight so concurrent health requests share one
// probe. The probe runs under its own deadline, detached from the caller's
// context: the result is cached for every caller, so an impatient or
// disconnected scraper must not be able to poison it.
func (v *Verifier) Check(ctx context.Context) Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.last.CheckedAt.IsZero() && time.Since(v.last.CheckedAt) < v.ttl {
		return v.last
	}

	st := Status{CheckedAt: time.Now()}
	if !v.disp.Ready() {
		v.last = st
		return st
	}
	st.ModelLoaded = true

	probeCtx, cancel := context.WithTimeout(context.Background(), v.probeTimeout)
	defer cancel()
	if _, err := v.disp.Submit(probeCtx, probe); err != nil {
		v.log.Warn().Err(err).Msg("health probe failed")
	} else {
		st.InferenceFunctional = true
	}
	v.last = st
	return st
}
