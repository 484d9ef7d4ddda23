package dispatch

import "time"

// Outcome labels for dispatch events.
const (
	OutcomeOK              = "ok"
	OutcomeQueueTimeout    = "queue_timeout"
	OutcomeGenerateTimeout = "generate_timeout"
	OutcomeEngineFailure   = "engine_failure"
	OutcomeCanceled        = "canceled"
	OutcomeNotReady        = "not_ready"
)

// Event describes one completed or failed dispatch.
type Event struct {
	RequestID        string
	Outcome          string
	QueueWait        time.Duration
	GenerateDuration time.Duration
	CompletionTokens int
}

// Recorder receives per-dispatch timing/outcome events. Implementations
// must be safe for concurrent use and must not block.
type Recorder interface {
	RecordDispatch(Event)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) RecordDispatch(Event) {}
