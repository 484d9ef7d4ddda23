package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so config files can spell values like "15s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		return d.UnmarshalText(b[1 : len(b)-1])
	}
	return fmt.Errorf("duration must be a string, got %s", string(b))
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr   string `json:"addr" yaml:"addr" toml:"addr"`
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`

	ModelPath        string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelURL         string   `json:"model_url" yaml:"model_url" toml:"model_url"`
	ModelSHA256      string   `json:"model_sha256" yaml:"model_sha256" toml:"model_sha256"`
	DownloadAttempts int      `json:"download_attempts" yaml:"download_attempts" toml:"download_attempts"`
	DownloadBackoff  Duration `json:"download_backoff" yaml:"download_backoff" toml:"download_backoff"`
	DownloadTimeout  Duration `json:"download_timeout" yaml:"download_timeout" toml:"download_timeout"`

	RateLimit  int      `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	RateWindow Duration `json:"rate_window" yaml:"rate_window" toml:"rate_window"`

	Workers         int      `json:"workers" yaml:"workers" toml:"workers"`
	QueueWait       Duration `json:"queue_wait" yaml:"queue_wait" toml:"queue_wait"`
	GenerateTimeout Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`

	ProbeTimeout   Duration `json:"probe_timeout" yaml:"probe_timeout" toml:"probe_timeout"`
	HealthCacheTTL Duration `json:"health_cache_ttl" yaml:"health_cache_ttl" toml:"health_cache_ttl"`

	MaxBodyBytes      int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	MaxPromptChars    int      `json:"max_prompt_chars" yaml:"max_prompt_chars" toml:"max_prompt_chars"`
	MaxTokensLimit    int      `json:"max_tokens_limit" yaml:"max_tokens_limit" toml:"max_tokens_limit"`
	MaxMessages       int      `json:"max_messages" yaml:"max_messages" toml:"max_messages"`
	InjectionPatterns []string `json:"injection_patterns" yaml:"injection_patterns" toml:"injection_patterns"`

	LlamaCtx     int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`

	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults applied where the loaded config leaves fields unset.
const (
	DefaultAddr             = ":8080"
	DefaultModelPath        = "~/models/model.gguf"
	DefaultDownloadAttempts = 3
	DefaultDownloadBackoff  = 15 * time.Second
	DefaultDownloadTimeout  = 1800 * time.Second
	DefaultRateLimit        = 15
	DefaultRateWindow       = time.Minute
	DefaultWorkers          = 2
	DefaultQueueWait        = 30 * time.Second
	DefaultGenerateTimeout  = 120 * time.Second
	DefaultProbeTimeout     = 15 * time.Second
	DefaultHealthCacheTTL   = 30 * time.Second
	DefaultMaxBodyBytes     = int64(1 << 20)
	DefaultMaxPromptChars   = 16000
	DefaultMaxTokensLimit   = 2048
	DefaultMaxMessages      = 20
	DefaultLlamaCtx         = 4096
	DefaultLlamaThreads     = 4
)

// DefaultInjectionPatterns are the built-in prompt-injection heuristics.
// The list is policy, not contract; override via config or env.
var DefaultInjectionPatterns = []string{
	`ignore\s+previous\s+instructions`,
	`disregard\s+.*?instructions`,
	`you\s+are\s+now`,
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelPath == "" {
		c.ModelPath = DefaultModelPath
	}
	if c.DownloadAttempts <= 0 {
		c.DownloadAttempts = DefaultDownloadAttempts
	}
	if c.DownloadBackoff <= 0 {
		c.DownloadBackoff = Duration(DefaultDownloadBackoff)
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = Duration(DefaultDownloadTimeout)
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = Duration(DefaultRateWindow)
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueWait <= 0 {
		c.QueueWait = Duration(DefaultQueueWait)
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = Duration(DefaultGenerateTimeout)
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = Duration(DefaultProbeTimeout)
	}
	if c.HealthCacheTTL <= 0 {
		c.HealthCacheTTL = Duration(DefaultHealthCacheTTL)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxPromptChars <= 0 {
		c.MaxPromptChars = DefaultMaxPromptChars
	}
	if c.MaxTokensLimit <= 0 {
		c.MaxTokensLimit = DefaultMaxTokensLimit
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if len(c.InjectionPatterns) == 0 {
		c.InjectionPatterns = append([]string(nil), DefaultInjectionPatterns...)
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	if c.LlamaThreads <= 0 {
		c.LlamaThreads = DefaultLlamaThreads
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (set INFERD_API_KEY)")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model_path is required")
	}
	return nil
}
