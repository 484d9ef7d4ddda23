//go:build !llama

package engine

// This file provides a no-CGO stub compiled when the 'llama' build tag is
// NOT set, keeping default builds and CI CGO-free. The stub never fabricates
// output: it reports the model as not loaded and refuses to generate, so
// /health answers model_loaded=false and completions answer 503.

import "context"

type stubEngine struct{}

// Open in the stub build accepts any path and returns an engine that
// refuses inference.
func Open(path string, ctxSize, threads int) (Engine, error) {
	return stubEngine{}, nil
}

func (stubEngine) Loaded() bool { return false }

func (stubEngine) Generate(ctx context.Context, prompt string, p Params) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{}, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

func (stubEngine) Close() error { return nil }
