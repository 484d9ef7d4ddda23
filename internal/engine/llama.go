//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaEngine owns the loaded llama.cpp model. One instance per process;
// callers must serialize Generate externally.
type llamaEngine struct {
	model   *llama.LLama
	threads int
}

// Open loads the model at path into memory. This is slow (seconds to
// minutes) and happens once at startup, after the artifact guard has
// verified the file.
func Open(path string, ctxSize, threads int) (Engine, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(path, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, threads: threads}, nil
}

func (e *llamaEngine) Loaded() bool { return e.model != nil }

func (e *llamaEngine) Generate(ctx context.Context, prompt string, p Params) (Result, error) {
	if e.model == nil {
		return Result{}, ErrUnavailable("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Bridge the binding's token callback to context cancellation: returning
	// false stops prediction at the next token boundary without corrupting
	// engine state.
	completion := 0
	e.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		completion++
		return true
	})

	text, err := e.model.Predict(prompt, predictOptions(p, e.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	if ctx.Err() != nil {
		// Prediction ended because the callback aborted it.
		return Result{}, ctx.Err()
	}

	promptTokens := EstimateTokens(prompt)
	finish := "stop"
	if p.MaxTokens > 0 && completion >= p.MaxTokens {
		finish = "length"
	}
	return Result{
		Text: strings.TrimSpace(text),
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completion,
			TotalTokens:      promptTokens + completion,
		},
		FinishReason: finish,
	}, nil
}

func (e *llamaEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

func predictOptions(p Params, threads int) []llama.PredictOption {
	maxTok := p.MaxTokens
	if maxTok < 1 {
		maxTok = 1
	}
	if threads < 1 {
		threads = 1
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTok),
		llama.SetThreads(threads),
		llama.SetTemperature(float32(p.Temperature)),
	}
	if p.TopP > 0 {
		po = append(po, llama.SetTopP(float32(p.TopP)))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
