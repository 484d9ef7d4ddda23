package types

// ChatMessage is a single message in a chat conversation.
type ChatMessage struct {
	// Message role: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message content.
	// example: Hello
	Content string `json:"content" example:"Hello"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Optional model name; informational, the server hosts a single model.
	// example: deepseek-r1-distill-qwen-1.5b
	Model string `json:"model,omitempty" example:"deepseek-r1-distill-qwen-1.5b"`
	// Conversation messages, oldest first. At least one is required.
	Messages []ChatMessage `json:"messages"`
	// Maximum number of new tokens to generate, at least 1 when present.
	// example: 512
	MaxTokens *int `json:"max_tokens,omitempty" example:"512"`
	// Sampling temperature in [0, 2].
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability in [0, 1].
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	Stop []string `json:"stop,omitempty"`
}

// Choice is one generated completion.
type Choice struct {
	// Index of this choice within the response.
	// example: 0
	Index int `json:"index" example:"0"`
	// The generated assistant message.
	Message ChatMessage `json:"message"`
	// Why generation stopped: "stop" or "length".
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
}

// Usage contains token accounting for a completion.
type Usage struct {
	// Tokens consumed by the prompt.
	// example: 12
	PromptTokens int `json:"prompt_tokens" example:"12"`
	// Tokens generated for the completion.
	// example: 34
	CompletionTokens int `json:"completion_tokens" example:"34"`
	// Sum of prompt and completion tokens.
	// example: 46
	TotalTokens int `json:"total_tokens" example:"46"`
}

// ChatCompletionResponse is returned by POST /v1/chat/completions.
type ChatCompletionResponse struct {
	// Completion id.
	// example: chatcmpl-7f9d6a1e
	ID string `json:"id" example:"chatcmpl-7f9d6a1e"`
	// Always "chat.completion".
	// example: chat.completion
	Object string `json:"object" example:"chat.completion"`
	// Creation time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// Model that produced the completion.
	// example: deepseek-r1-distill-qwen-1.5b
	Model string `json:"model" example:"deepseek-r1-distill-qwen-1.5b"`
	// Generated choices. Always exactly one.
	Choices []Choice `json:"choices"`
	// Token usage.
	Usage Usage `json:"usage"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Machine-readable rejection reason when admission rejected the
	// request (unauthenticated, rate_limited, invalid_input,
	// injection_suspected).
	// example: rate_limited
	Reason string `json:"reason,omitempty" example:"rate_limited"`
}

// HealthChecks itemizes the probes behind the health verdict.
type HealthChecks struct {
	// Whether the engine reports a loaded model.
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// Whether a synthetic generation completed within its deadline.
	// example: true
	InferenceFunctional bool `json:"inference_functional" example:"true"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall verdict: "healthy" or "unhealthy".
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Individual check outcomes.
	Checks HealthChecks `json:"checks"`
}
