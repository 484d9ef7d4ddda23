package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inferd/internal/admission"
	"inferd/internal/dispatch"
	"inferd/internal/engine"
	"inferd/internal/health"
	"inferd/pkg/types"
)

// mockService records what the handler passed down and returns canned
// results.
type mockService struct {
	decision admission.Decision
	res      engine.Result
	err      error
	status   health.Status

	admitCaller string
	admitCred   string
	lastReq     dispatch.Request
	submits     int
}

func (m *mockService) Admit(caller, credential string, req *types.ChatCompletionRequest) admission.Decision {
	m.admitCaller = caller
	m.admitCred = credential
	if m.decision.Reason == "" {
		return admission.Decision{Allow: true, Reason: admission.ReasonOK}
	}
	return m.decision
}

func (m *mockService) Submit(ctx context.Context, req dispatch.Request) (engine.Result, error) {
	m.submits++
	m.lastReq = req
	return m.res, m.err
}

func (m *mockService) Health(ctx context.Context) health.Status { return m.status }

func (m *mockService) ModelName() string { return "test-model" }

func okService() *mockService {
	return &mockService{
		res: engine.Result{
			Text:         "hello there",
			Usage:        engine.Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
			FinishReason: "stop",
		},
	}
}

func postCompletion(t *testing.T, h http.Handler, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const validBody = `{"messages":[{"role":"user","content":"Hello"}]}`

func TestChatCompletionsSuccess(t *testing.T) {
	svc := okService()
	h := NewMux(svc)
	rr := postCompletion(t, h, validBody, map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Fatalf("id=%q", resp.ID)
	}
	if resp.Object != "chat.completion" || resp.Model != "test-model" {
		t.Fatalf("resp=%+v", resp)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices=%v", resp.Choices)
	}
	c := resp.Choices[0]
	if c.Message.Role != "assistant" || c.Message.Content != "hello there" || c.FinishReason != "stop" {
		t.Fatalf("choice=%+v", c)
	}
	if resp.Usage.TotalTokens != 8 {
		t.Fatalf("usage=%+v", resp.Usage)
	}
}

func TestChatCompletionsPromptAndDefaults(t *testing.T) {
	svc := okService()
	h := NewMux(svc)
	body := `{"messages":[{"role":"system","content":"Be brief."},{"role":"user","content":"Hi"}]}`
	rr := postCompletion(t, h, body, map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	want := "<|im_start|>system\nBe brief.<|im_end|>\n<|im_start|>user\nHi<|im_end|>\n<|im_start|>assistant\n"
	if svc.lastReq.Prompt != want {
		t.Fatalf("prompt=%q", svc.lastReq.Prompt)
	}
	p := svc.lastReq.Params
	if p.MaxTokens != DefaultMaxTokens || p.Temperature != DefaultTemperature {
		t.Fatalf("params=%+v", p)
	}
	found := false
	for _, s := range p.Stop {
		if s == engine.ChatStopToken {
			found = true
		}
	}
	if !found {
		t.Fatalf("stop=%v missing chat stop token", p.Stop)
	}
}

func TestChatCompletionsExplicitParams(t *testing.T) {
	svc := okService()
	h := NewMux(svc)
	body := `{"messages":[{"role":"user","content":"Hi"}],"max_tokens":64,"temperature":0.1,"top_p":0.5,"stop":["\n\n"]}`
	rr := postCompletion(t, h, body, map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	p := svc.lastReq.Params
	if p.MaxTokens != 64 || p.Temperature != 0.1 || p.TopP != 0.5 {
		t.Fatalf("params=%+v", p)
	}
	if p.Stop[0] != "\n\n" {
		t.Fatalf("stop=%v", p.Stop)
	}
}

func TestChatCompletionsContentType(t *testing.T) {
	h := NewMux(okService())
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestChatCompletionsBadJSON(t *testing.T) {
	h := NewMux(okService())
	rr := postCompletion(t, h, `{"messages": [`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Code != http.StatusBadRequest || er.Error == "" {
		t.Fatalf("error=%+v", er)
	}
}

func TestChatCompletionsBodyTooLarge(t *testing.T) {
	h := NewMux(okService())
	huge := `{"messages":[{"role":"user","content":"` + strings.Repeat("a", int(maxBodyBytes)+1024) + `"}]}`
	rr := postCompletion(t, h, huge, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestChatCompletionsUnauthenticated(t *testing.T) {
	svc := okService()
	svc.decision = admission.Decision{Reason: admission.ReasonUnauthenticated, Detail: "invalid API key"}
	h := NewMux(svc)
	rr := postCompletion(t, h, validBody, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("missing WWW-Authenticate header")
	}
	var er types.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &er)
	if er.Reason != string(admission.ReasonUnauthenticated) {
		t.Fatalf("error=%+v", er)
	}
	if svc.submits != 0 {
		t.Fatalf("rejected request reached the dispatcher")
	}
}

func TestChatCompletionsRateLimited(t *testing.T) {
	svc := okService()
	svc.decision = admission.Decision{Reason: admission.ReasonRateLimited, Detail: "rate limit exceeded"}
	h := NewMux(svc)
	rr := postCompletion(t, h, validBody, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	var er types.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &er)
	if er.Reason != string(admission.ReasonRateLimited) {
		t.Fatalf("error=%+v", er)
	}
}

func TestChatCompletionsValidationReject(t *testing.T) {
	for _, reason := range []admission.Reason{admission.ReasonInvalidInput, admission.ReasonInjectionSuspected} {
		svc := okService()
		svc.decision = admission.Decision{Reason: reason, Detail: "rejected"}
		h := NewMux(svc)
		rr := postCompletion(t, h, validBody, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("reason=%s status=%d", reason, rr.Code)
		}
		var er types.ErrorResponse
		json.Unmarshal(rr.Body.Bytes(), &er)
		if er.Reason != string(reason) {
			t.Fatalf("error=%+v", er)
		}
	}
}

func TestChatCompletionsCallerIdentity(t *testing.T) {
	svc := okService()
	h := NewMux(svc)
	postCompletion(t, h, validBody, map[string]string{"Authorization": "Bearer tok-123"})
	if svc.admitCred != "tok-123" || svc.admitCaller != "tok-123" {
		t.Fatalf("caller=%q cred=%q", svc.admitCaller, svc.admitCred)
	}

	postCompletion(t, h, validBody, nil)
	if svc.admitCred != "" {
		t.Fatalf("cred=%q, want empty without Authorization", svc.admitCred)
	}
	if svc.admitCaller == "" {
		t.Fatalf("caller must fall back to client address")
	}
}

func TestChatCompletionsDispatchErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not ready", dispatch.ErrNotReady(), http.StatusServiceUnavailable},
		{"queue timeout", dispatch.ErrQueueTimeout(), http.StatusServiceUnavailable},
		{"generate timeout", dispatch.ErrGenerateTimeout(), http.StatusGatewayTimeout},
		{"engine failure", dispatch.ErrEngineFailure(context.DeadlineExceeded), http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := okService()
		svc.err = tc.err
		h := NewMux(svc)
		rr := postCompletion(t, h, validBody, nil)
		if rr.Code != tc.code {
			t.Fatalf("%s: status=%d, want %d", tc.name, rr.Code, tc.code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name   string
		status health.Status
		code   int
		verd   string
	}{
		{"healthy", health.Status{ModelLoaded: true, InferenceFunctional: true}, http.StatusOK, "healthy"},
		{"not loaded", health.Status{}, http.StatusServiceUnavailable, "unhealthy"},
		{"loaded but broken", health.Status{ModelLoaded: true}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tc := range cases {
		svc := okService()
		svc.status = tc.status
		h := NewMux(svc)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tc.code {
			t.Fatalf("%s: status=%d, want %d", tc.name, rr.Code, tc.code)
		}
		var resp types.HealthResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if resp.Status != tc.verd {
			t.Fatalf("%s: verdict=%q", tc.name, resp.Status)
		}
		if resp.Checks.ModelLoaded != tc.status.ModelLoaded || resp.Checks.InferenceFunctional != tc.status.InferenceFunctional {
			t.Fatalf("%s: checks=%+v", tc.name, resp.Checks)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(okService())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("inferd_")) {
		t.Fatalf("metrics body missing inferd namespace")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Fatalf("header=%q got=%q want=%q", tc.header, got, tc.want)
		}
	}
}
