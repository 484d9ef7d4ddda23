package dispatch

// notReadyError signals that the engine has no loaded model (503 mapping).
type notReadyError struct{}

func (notReadyError) Error() string { return "engine not ready" }

// ErrNotReady constructs the not-ready error.
func ErrNotReady() error { return notReadyError{} }

// IsNotReady reports whether err indicates the engine cannot serve yet.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// queueTimeoutError signals that no slot freed up within the queue-wait
// budget (503 mapping, backpressure).
type queueTimeoutError struct{}

func (queueTimeoutError) Error() string { return "dispatch queue timeout: all slots busy" }

// ErrQueueTimeout constructs the queue-timeout error.
func ErrQueueTimeout() error { return queueTimeoutError{} }

// IsQueueTimeout reports whether err indicates queue-wait exhaustion.
func IsQueueTimeout(err error) bool {
	_, ok := err.(queueTimeoutError)
	return ok
}

// generateTimeoutError signals that the engine did not finish within the
// per-generation deadline (504 mapping).
type generateTimeoutError struct{}

func (generateTimeoutError) Error() string { return "generation deadline exceeded" }

// ErrGenerateTimeout constructs the generation-deadline error.
func ErrGenerateTimeout() error { return generateTimeoutError{} }

// IsGenerateTimeout reports whether err indicates a generation deadline.
func IsGenerateTimeout(err error) bool {
	_, ok := err.(generateTimeoutError)
	return ok
}

// engineFailureError wraps an opaque engine error so it never leaks into
// dispatcher state (502 mapping).
type engineFailureError struct{ err error }

func (e engineFailureError) Error() string { return "engine failure: " + e.err.Error() }

func (e engineFailureError) Unwrap() error { return e.err }

// ErrEngineFailure wraps err as an engine fault.
func ErrEngineFailure(err error) error { return engineFailureError{err: err} }

// IsEngineFailure reports whether err wraps an engine fault.
func IsEngineFailure(err error) bool {
	_, ok := err.(engineFailureError)
	return ok
}
