// Package engine wraps the llama.cpp runtime behind a small handle. The
// handle is NOT safe for concurrent invocation; the dispatcher is the only
// component that may call Generate, and it serializes access through its
// slot pool.
package engine

import "context"

// Params captures generation parameters for a single call.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Usage contains token accounting for one generation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result summarizes a completed generation.
type Result struct {
	Text         string
	Usage        Usage
	FinishReason string
}

// Engine is the handle over the loaded model.
type Engine interface {
	// Generate runs one synchronous generation. It must respect ctx: when
	// the deadline passes or ctx is canceled, generation stops at the next
	// token boundary and ctx.Err() is returned, leaving the engine usable
	// for subsequent calls.
	Generate(ctx context.Context, prompt string, p Params) (Result, error)
	// Loaded reports whether a model is resident and usable.
	Loaded() bool
	// Close releases the model.
	Close() error
}

// unavailableError signals that the runtime cannot serve inference in this
// build or state, so the HTTP layer can answer 503 instead of 500.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/unusable runtime.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
