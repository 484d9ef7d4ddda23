package blackbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// These tests build the real binary and exercise it over TCP. Without a
// llama-enabled build the engine reports not-loaded, so they cover the
// admission and health surfaces rather than actual generation.

const apiKey = "blackbox-test-key"

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	return filepath.Dir(filepath.Dir(bbDir))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "inferd")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/inferd")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func startServer(t *testing.T, bin string) string {
	t.Helper()
	modelPath := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(modelPath, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write temp model: %v", err)
	}
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	cmd := exec.Command(bin, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("INFERD_ADDR=:%d", port),
		"INFERD_API_KEY="+apiKey,
		"INFERD_MODEL_PATH="+modelPath,
		"INFERD_LOG_LEVEL=error",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	// Wait until the server answers at all; without a llama build /health
	// legitimately returns 503.
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return base
}

func postJSON(t *testing.T, url, body string, auth string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, b
}

func TestBlackbox(t *testing.T) {
	if os.Getenv("INFERD_BLACKBOX") == "" {
		t.Skip("set INFERD_BLACKBOX=1 to run blackbox tests")
	}
	bin := buildBinary(t)
	base := startServer(t, bin)
	completions := base + "/v1/chat/completions"

	t.Run("health reports engine state", func(t *testing.T) {
		resp, err := http.Get(base + "/health")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status=%d, want 503 in a stub build", resp.StatusCode)
		}
		var hr struct {
			Status string `json:"status"`
			Checks struct {
				ModelLoaded bool `json:"model_loaded"`
			} `json:"checks"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if hr.Status != "unhealthy" || hr.Checks.ModelLoaded {
			t.Fatalf("health=%+v", hr)
		}
	})

	t.Run("completions require auth", func(t *testing.T) {
		resp, body := postJSON(t, completions, `{"messages":[{"role":"user","content":"Hi"}]}`, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status=%d body=%s", resp.StatusCode, body)
		}
		if resp.Header.Get("WWW-Authenticate") == "" {
			t.Fatalf("missing WWW-Authenticate")
		}
	})

	t.Run("invalid JSON rejected", func(t *testing.T) {
		resp, _ := postJSON(t, completions, `{"messages":[`, apiKey)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status=%d", resp.StatusCode)
		}
	})

	t.Run("validation rejected before engine", func(t *testing.T) {
		resp, body := postJSON(t, completions, `{"messages":[]}`, apiKey)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status=%d body=%s", resp.StatusCode, body)
		}
		if !bytes.Contains(body, []byte("invalid_input")) {
			t.Fatalf("body=%s", body)
		}
	})

	t.Run("valid request hits unloaded engine", func(t *testing.T) {
		resp, body := postJSON(t, completions, `{"messages":[{"role":"user","content":"Hi"}]}`, apiKey)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status=%d body=%s, want 503 in a stub build", resp.StatusCode, body)
		}
	})

	t.Run("metrics exposed", func(t *testing.T) {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("inferd_")) {
			t.Fatalf("status=%d", resp.StatusCode)
		}
	})
}
