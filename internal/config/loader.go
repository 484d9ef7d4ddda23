package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file based on its extension, then applies
// INFERD_* environment overrides and defaults. An empty path skips the file
// and builds the config from environment and defaults alone.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		case ".json":
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		case ".toml":
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		default:
			return cfg, fmt.Errorf("unsupported config extension: %s", ext)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// applyEnv overlays INFERD_* environment variables onto cfg.
func applyEnv(cfg *Config) error {
	envStr("INFERD_ADDR", &cfg.Addr)
	envStr("INFERD_API_KEY", &cfg.APIKey)
	envStr("INFERD_MODEL_PATH", &cfg.ModelPath)
	envStr("INFERD_MODEL_URL", &cfg.ModelURL)
	envStr("INFERD_MODEL_SHA256", &cfg.ModelSHA256)
	envStr("INFERD_LOG_LEVEL", &cfg.LogLevel)
	envList("INFERD_INJECTION_PATTERNS", &cfg.InjectionPatterns)
	envList("INFERD_CORS_ORIGINS", &cfg.CORSOrigins)

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"INFERD_DOWNLOAD_ATTEMPTS", &cfg.DownloadAttempts},
		{"INFERD_RATE_LIMIT", &cfg.RateLimit},
		{"INFERD_WORKERS", &cfg.Workers},
		{"INFERD_MAX_PROMPT_CHARS", &cfg.MaxPromptChars},
		{"INFERD_MAX_TOKENS_LIMIT", &cfg.MaxTokensLimit},
		{"INFERD_MAX_MESSAGES", &cfg.MaxMessages},
		{"INFERD_LLAMA_CTX", &cfg.LlamaCtx},
		{"INFERD_LLAMA_THREADS", &cfg.LlamaThreads},
	} {
		if err := envInt(v.key, v.dst); err != nil {
			return err
		}
	}

	if err := envInt64("INFERD_MAX_BODY_BYTES", &cfg.MaxBodyBytes); err != nil {
		return err
	}

	for _, v := range []struct {
		key string
		dst *Duration
	}{
		{"INFERD_DOWNLOAD_BACKOFF", &cfg.DownloadBackoff},
		{"INFERD_DOWNLOAD_TIMEOUT", &cfg.DownloadTimeout},
		{"INFERD_RATE_WINDOW", &cfg.RateWindow},
		{"INFERD_QUEUE_WAIT", &cfg.QueueWait},
		{"INFERD_GENERATE_TIMEOUT", &cfg.GenerateTimeout},
		{"INFERD_PROBE_TIMEOUT", &cfg.ProbeTimeout},
		{"INFERD_HEALTH_CACHE_TTL", &cfg.HealthCacheTTL},
	} {
		if err := envDur(v.key, v.dst); err != nil {
			return err
		}
	}
	return nil
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDur(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
