// Package admission gates every inference request before it may reach the
// dispatcher. Checks run in a fixed order (authenticate, rate-limit,
// validate, injection-scan) and the first failure short-circuits, so a
// rejected request has no side effects from later checks (an
// unauthenticated caller never consumes rate-limit budget).
package admission

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"regexp"

	"inferd/pkg/types"
)

// Reason classifies an admission decision.
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonInjectionSuspected Reason = "injection_suspected"
)

// Decision is the outcome of admitting one request. Not persisted.
type Decision struct {
	Allow  bool
	Reason Reason
	Detail string
}

func allow() Decision { return Decision{Allow: true, Reason: ReasonOK} }

func reject(r Reason, detail string) Decision {
	return Decision{Allow: false, Reason: r, Detail: detail}
}

// Limits bound request shape and parameter ranges.
type Limits struct {
	MaxMessages    int
	MaxPromptChars int
	MaxTokens      int
}

// Filter performs per-request admission.
type Filter struct {
	secretSum [sha256.Size]byte
	limiter   *WindowLimiter
	limits    Limits
	patterns  []*regexp.Regexp
}

// NewFilter compiles the injection pattern list and builds a Filter.
// Patterns are matched case-insensitively over the concatenated message
// contents.
func NewFilter(secret string, limiter *WindowLimiter, limits Limits, patterns []string) (*Filter, error) {
	f := &Filter{
		secretSum: sha256.Sum256([]byte(secret)),
		limiter:   limiter,
		limits:    limits,
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("injection pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Admit runs the admission pipeline for one request. caller identifies the
// requester for rate accounting; credential is the presented bearer token.
func (f *Filter) Admit(caller, credential string, req *types.ChatCompletionRequest) Decision {
	if !f.authenticate(credential) {
		return reject(ReasonUnauthenticated, "invalid API key")
	}
	if !f.limiter.Allow(caller) {
		return reject(ReasonRateLimited, "rate limit exceeded")
	}
	if d := f.validate(req); !d.Allow {
		return d
	}
	if d := f.scanInjection(req); !d.Allow {
		return d
	}
	return allow()
}

// authenticate compares the presented credential against the configured
// secret. Hashing both sides first gives a constant-structure comparison
// that leaks neither content nor length.
func (f *Filter) authenticate(credential string) bool {
	sum := sha256.Sum256([]byte(credential))
	return subtle.ConstantTimeCompare(sum[:], f.secretSum[:]) == 1
}

func (f *Filter) validate(req *types.ChatCompletionRequest) Decision {
	if len(req.Messages) == 0 {
		return reject(ReasonInvalidInput, "messages must not be empty")
	}
	if len(req.Messages) > f.limits.MaxMessages {
		return reject(ReasonInvalidInput, fmt.Sprintf("at most %d messages allowed", f.limits.MaxMessages))
	}
	total := 0
	for i, m := range req.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return reject(ReasonInvalidInput, fmt.Sprintf("messages[%d]: invalid role %q", i, m.Role))
		}
		if m.Content == "" {
			return reject(ReasonInvalidInput, fmt.Sprintf("messages[%d]: content must not be empty", i))
		}
		if len(m.Content) > f.limits.MaxPromptChars {
			return reject(ReasonInvalidInput, fmt.Sprintf("messages[%d]: content exceeds %d characters", i, f.limits.MaxPromptChars))
		}
		total += len(m.Content)
	}
	if total > f.limits.MaxPromptChars {
		return reject(ReasonInvalidInput, fmt.Sprintf("total prompt exceeds %d characters", f.limits.MaxPromptChars))
	}
	if req.MaxTokens != nil && (*req.MaxTokens < 1 || *req.MaxTokens > f.limits.MaxTokens) {
		return reject(ReasonInvalidInput, fmt.Sprintf("max_tokens must be in [1, %d]", f.limits.MaxTokens))
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return reject(ReasonInvalidInput, "temperature must be in [0, 2]")
	}
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return reject(ReasonInvalidInput, "top_p must be in [0, 1]")
	}
	return allow()
}

func (f *Filter) scanInjection(req *types.ChatCompletionRequest) Decision {
	for _, m := range req.Messages {
		for _, re := range f.patterns {
			if re.MatchString(m.Content) {
				return reject(ReasonInjectionSuspected, "prompt rejected by content policy")
			}
		}
	}
	return allow()
}
