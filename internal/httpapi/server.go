package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/admission"
	"inferd/internal/dispatch"
	"inferd/internal/engine"
	"inferd/internal/health"
	"inferd/pkg/types"
)

// Generation defaults applied when the request leaves a knob unset.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Admit(caller, credential string, req *types.ChatCompletionRequest) admission.Decision
	Submit(ctx context.Context, req dispatch.Request) (engine.Result, error)
	Health(ctx context.Context) health.Status
	ModelName() string
}

// Coordinator bundles the admission filter, dispatcher and health verifier
// behind the Service interface.
type Coordinator struct {
	Filter   *admission.Filter
	Dispatch *dispatch.Dispatcher
	Verifier *health.Verifier
	Model    string
}

func (c *Coordinator) Admit(caller, credential string, req *types.ChatCompletionRequest) admission.Decision {
	return c.Filter.Admit(caller, credential, req)
}

func (c *Coordinator) Submit(ctx context.Context, req dispatch.Request) (engine.Result, error) {
	return c.Dispatch.Submit(ctx, req)
}

func (c *Coordinator) Health(ctx context.Context) health.Status {
	return c.Verifier.Check(ctx)
}

func (c *Coordinator) ModelName() string { return c.Model }

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when the
// handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)

	r.Post("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(svc, w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Health(r.Context())
		resp := types.HealthResponse{
			Status: "unhealthy",
			Checks: types.HealthChecks{
				ModelLoaded:         st.ModelLoaded,
				InferenceFunctional: st.InferenceFunctional,
			},
		}
		code := http.StatusServiceUnavailable
		if st.Healthy() {
			resp.Status = "healthy"
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleChatCompletions runs one request through admission and dispatch.
//
//	@Summary		Create a chat completion
//	@Description	Generates one assistant reply for the given conversation.
//	@Tags			inference
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.ChatCompletionRequest	true	"completion request"
//	@Success		200		{object}	types.ChatCompletionResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		401		{object}	types.ErrorResponse
//	@Failure		429		{object}	types.ErrorResponse
//	@Failure		502		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Failure		504		{object}	types.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/chat/completions [post]
func handleChatCompletions(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies also land here; 400 avoids leaking size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	credential := bearerToken(r)
	caller := credential
	if caller == "" {
		caller = clientIP(r)
	}
	if dec := svc.Admit(caller, credential, &req); !dec.Allow {
		status, msg := admissionStatus(dec)
		if dec.Reason == admission.ReasonUnauthenticated {
			w.Header().Set("WWW-Authenticate", `Bearer realm="inferd"`)
		}
		recordAdmissionReject(string(dec.Reason))
		writeAdmissionError(w, status, msg, string(dec.Reason))
		return
	}

	params := engine.Params{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Stop:        append(append([]string(nil), req.Stop...), engine.ChatStopToken),
	}
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}
	prompt := engine.BuildChatPrompt(req.Messages)

	// Join server base context with request context so shutdown cancels work too.
	joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	res, err := svc.Submit(joinedCtx, dispatch.Request{
		ID:     middleware.GetReqID(r.Context()),
		Prompt: prompt,
		Params: params,
	})
	if err != nil {
		// Client disconnect or shutdown: nothing useful to write.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		switch {
		case dispatch.IsNotReady(err):
			writeJSONError(w, http.StatusServiceUnavailable, "model is not loaded")
		case dispatch.IsQueueTimeout(err):
			writeJSONError(w, http.StatusServiceUnavailable, "server is at capacity, retry later")
		case dispatch.IsGenerateTimeout(err):
			writeJSONError(w, http.StatusGatewayTimeout, "generation timed out")
		case dispatch.IsEngineFailure(err):
			writeJSONError(w, http.StatusBadGateway, "generation failed")
		default:
			writeJSONError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	model := req.Model
	if model == "" {
		model = svc.ModelName()
	}
	resp := types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: res.Text},
			FinishReason: res.FinishReason,
		}},
		Usage: types.Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// admissionStatus maps a rejection to its HTTP status and client message.
func admissionStatus(dec admission.Decision) (int, string) {
	switch dec.Reason {
	case admission.ReasonUnauthenticated:
		return http.StatusUnauthorized, dec.Detail
	case admission.ReasonRateLimited:
		return http.StatusTooManyRequests, dec.Detail
	default:
		return http.StatusBadRequest, dec.Detail
	}
}

// bearerToken extracts the credential from the Authorization header, empty
// if absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP is the rate-limit key for unauthenticated callers. RealIP
// middleware has already rewritten RemoteAddr when forwarding headers are
// present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
