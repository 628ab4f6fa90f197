package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const defaultYtdlpPath = "yt-dlp"

// commandRunner runs a command and returns stdout and stderr
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Ytdlp implements Provider by running yt-dlp as a subprocess
type Ytdlp struct {
	path   string
	run    commandRunner
	logger *zap.Logger
}

// NewYtdlp creates a yt-dlp provider. An empty path uses yt-dlp from PATH.
func NewYtdlp(path string, logger *zap.Logger) *Ytdlp {
	if path == "" {
		path = defaultYtdlpPath
	}
	return &Ytdlp{
		path:   path,
		run:    execRunner,
		logger: logger.With(zap.String("component", "ytdlp")),
	}
}

// CheckInstalled verifies that yt-dlp can be executed
func (y *Ytdlp) CheckInstalled(ctx context.Context) (string, error) {
	stdout, _, err := y.run(ctx, y.path, "--version")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// ExtractRaw dumps the JSON description of a single video. The caller's
// context bounds the subprocess.
func (y *Ytdlp) ExtractRaw(ctx context.Context, url, platform string, opts Options) (*RawResult, error) {
	args := append(opts.Args(), "--", url)

	y.logger.Debug("running yt-dlp", zap.String("url", url), zap.String("platform", platform), zap.Strings("args", args))

	stdout, stderr, err := y.run(ctx, y.path, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, ctxErr)
			}
			return nil, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, ClassifyMessage(msg)
	}

	return ParseRawResult(stdout)
}

// ParseRawResult decodes yt-dlp JSON output
func ParseRawResult(data []byte) (*RawResult, error) {
	var result RawResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %v", ErrExtraction, err)
	}
	return &result, nil
}

// ClassifyMessage maps a yt-dlp error message to a provider error. More
// specific patterns are checked first.
func ClassifyMessage(msg string) error {
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, "not available in your country", "blocked in your country", "geo-blocked", "region blocked"):
		return fmt.Errorf("%w: %s", ErrRegionBlocked, msg)
	case containsAny(lower, "age-restricted", "age restricted", "confirm your age"):
		return fmt.Errorf("%w: %s", ErrAgeRestricted, msg)
	case containsAny(lower, "video unavailable", "not available", "does not exist", "video not found", "404", "removed"):
		switch {
		case strings.Contains(lower, "private"):
			return fmt.Errorf("%w: %s", ErrVideoPrivate, msg)
		case containsAny(lower, "deleted", "removed"):
			return fmt.Errorf("%w: %s", ErrVideoDeleted, msg)
		}
		return fmt.Errorf("%w: %s", ErrVideoNotFound, msg)
	case containsAny(lower, "timeout", "timed out", "connection", "network", "unreachable"):
		return fmt.Errorf("%w: %s", ErrNetwork, msg)
	case containsAny(lower, "rate limit", "too many requests", "429"):
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case containsAny(lower, "service unavailable", "server error", "503"):
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return fmt.Errorf("%w: %s", ErrExtraction, msg)
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
