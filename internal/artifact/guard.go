// Package artifact ensures a verified model file exists on local storage
// before the rest of the process is allowed to start. It runs exactly once
// at startup; failure is fatal and must prevent the server from listening.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/common/fsutil"
)

// Artifact identifies a validated local model file. Immutable for the
// process lifetime once returned by Ensure.
type Artifact struct {
	Path   string
	SHA256 string
}

// state tracks the acquisition sequence: Missing -> Downloading ->
// Verifying -> Ready | Failed.
type state int

const (
	stateMissing state = iota
	stateDownloading
	stateVerifying
	stateReady
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateMissing:
		return "missing"
	case stateDownloading:
		return "downloading"
	case stateVerifying:
		return "verifying"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FatalError marks acquisition failures after which the process must not
// serve traffic.
type FatalError struct {
	msg string
	err error
}

func (e *FatalError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *FatalError) Unwrap() error { return e.err }

// IsFatal reports whether err is a startup-fatal acquisition error.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Options configures a Guard.
type Options struct {
	// Path is the final artifact location.
	Path string
	// URL is the download source; empty disables downloading.
	URL string
	// ExpectedSHA256 is the hex digest the artifact must match; empty
	// disables integrity verification (accepted with a warning).
	ExpectedSHA256 string
	// Attempts bounds download retries.
	Attempts int
	// Backoff is the fixed delay between failed attempts.
	Backoff time.Duration
	// AttemptTimeout bounds the wall clock of a single download attempt.
	AttemptTimeout time.Duration
	// Client overrides the HTTP client used for downloads.
	Client *http.Client
	Logger zerolog.Logger
}

// Guard acquires and verifies the model artifact.
type Guard struct {
	path     string
	url      string
	expected string
	attempts int
	backoff  time.Duration
	perTry   time.Duration
	client   *http.Client
	log      zerolog.Logger
}

// NewGuard builds a Guard. Zero option fields get conservative defaults.
func NewGuard(opts Options) (*Guard, error) {
	path, err := fsutil.ExpandHome(opts.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("artifact path is empty")
	}
	g := &Guard{
		path:     path,
		url:      opts.URL,
		expected: strings.ToLower(strings.TrimSpace(opts.ExpectedSHA256)),
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		perTry:   opts.AttemptTimeout,
		client:   opts.Client,
		log:      opts.Logger,
	}
	if g.attempts <= 0 {
		g.attempts = 3
	}
	if g.backoff <= 0 {
		g.backoff = 15 * time.Second
	}
	if g.perTry <= 0 {
		g.perTry = 1800 * time.Second
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	return g, nil
}

// Ensure drives the acquisition state machine until the artifact is Ready
// or Failed. It is idempotent: with a valid artifact already on disk it
// recomputes the digest and returns without network access.
func (g *Guard) Ensure(ctx context.Context) (Artifact, error) {
	st := stateMissing
	if fsutil.PathExists(g.path) {
		st = stateVerifying
	}
	attempt := 0
	var sum string
	for {
		switch st {
		case stateVerifying:
			var err error
			sum, err = fileSHA256(g.path)
			if err != nil {
				g.log.Warn().Err(err).Str("path", g.path).Msg("artifact unreadable, treating as missing")
				_ = os.Remove(g.path)
				st = stateMissing
				continue
			}
			if g.expected == "" {
				g.log.Warn().Str("path", g.path).Msg("no expected digest configured, integrity verification disabled")
				st = stateReady
				continue
			}
			if sum == g.expected {
				st = stateReady
				continue
			}
			g.log.Warn().Str("path", g.path).Str("got", sum).Str("want", g.expected).Msg("artifact digest mismatch, discarding")
			if err := os.Remove(g.path); err != nil {
				return Artifact{}, &FatalError{msg: "removing corrupt artifact", err: err}
			}
			st = stateMissing

		case stateMissing:
			if g.url == "" {
				return Artifact{}, &FatalError{msg: fmt.Sprintf("model artifact missing at %s and no download url configured", g.path)}
			}
			st = stateDownloading

		case stateDownloading:
			attempt++
			g.log.Info().Int("attempt", attempt).Int("max_attempts", g.attempts).Str("url", g.url).Msg("downloading model artifact")
			err := g.downloadOnce(ctx)
			if err == nil {
				st = stateVerifying
				continue
			}
			g.log.Error().Err(err).Int("attempt", attempt).Msg("download attempt failed")
			if attempt >= g.attempts {
				st = stateFailed
				continue
			}
			select {
			case <-time.After(g.backoff):
			case <-ctx.Done():
				return Artifact{}, &FatalError{msg: "artifact acquisition canceled", err: ctx.Err()}
			}

		case stateReady:
			g.log.Info().Str("path", g.path).Str("sha256", sum).Msg("model artifact ready")
			return Artifact{Path: g.path, SHA256: sum}, nil

		case stateFailed:
			return Artifact{}, &FatalError{msg: fmt.Sprintf("model artifact could not be acquired after %d attempts", g.attempts)}
		}
	}
}

// downloadOnce fetches the artifact into a temp file next to the final path,
// verifies the temp file's digest when one is expected, and atomically
// promotes it. The final path never holds a partial or unverified file.
func (g *Guard) downloadOnce(ctx context.Context) error {
	attemptCtx, cancel := context.WithTimeout(ctx, g.perTry)
	defer cancel()

	if err := fsutil.EnsureParentDir(g.path); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	tmp := g.path + ".partial"
	// Stale temp from a crashed run; the rename below would clobber it anyway.
	_ = os.Remove(tmp)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, g.url, nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(f, h), resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		if copyErr != nil {
			return fmt.Errorf("download: %w", copyErr)
		}
		return closeErr
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if g.expected != "" && sum != g.expected {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloaded artifact digest mismatch: got %s want %s", sum, g.expected)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("promoting artifact: %w", err)
	}
	return nil
}

// fileSHA256 streams path through sha256 and returns the hex digest.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
