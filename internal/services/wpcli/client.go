package wpcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"auditimport/internal/logging"
	"auditimport/internal/services"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds every wp invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithSite points wp at a specific install directory and/or site URL.
func WithSite(path, url string) Option {
	return func(c *Client) {
		c.sitePath = strings.TrimSpace(path)
		c.siteURL = strings.TrimSpace(url)
	}
}

// WithField sets the ACF repeater field and subfield keys used when writing
// audit entries.
func WithField(field Field) Option {
	return func(c *Client) {
		c.field = field
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Field names the ACF keys of the repeater and its subfields.
type Field struct {
	Key   string
	Asset string
	Title string
	Year  string
}

// Client wraps wp CLI interactions.
type Client struct {
	binary   string
	sitePath string
	siteURL  string
	timeout  time.Duration
	field    Field
	exec     Executor
	logger   *slog.Logger
}

// New constructs a wp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("wp binary required")
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "wpcli")
	return client, nil
}

// Import registers the file at path as a media attachment without copying
// it and returns the attachment id. Any failure of the wp process, or output
// without an attachment id, is reported as an error.
func (c *Client) Import(ctx context.Context, path string) (string, error) {
	lines, err := c.run(ctx, "media import", "media", "import", path, "--skip-copy", "--porcelain")
	if err != nil {
		return "", err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if id, convErr := strconv.ParseInt(candidate, 10, 64); convErr == nil && id > 0 {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "wpcli", "media import", "no attachment id in output", nil)
}

// Version reports the WordPress core version of the configured install.
func (c *Client) Version(ctx context.Context) (string, error) {
	lines, err := c.run(ctx, "core version", "core", "version")
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "wpcli", "core version", "empty output", nil)
}

func (c *Client) run(ctx context.Context, operation string, args ...string) ([]string, error) {
	full := append([]string(nil), args...)
	if c.sitePath != "" {
		full = append(full, "--path="+c.sitePath)
	}
	if c.siteURL != "" {
		full = append(full, "--url="+c.siteURL)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lines []string
	started := time.Now()
	err := c.exec.Run(runCtx, c.binary, full, func(line string) {
		lines = append(lines, line)
	})
	c.logger.Debug("wp command finished",
		logging.String("operation", operation),
		logging.Int("lines", len(lines)),
		logging.String("duration", time.Since(started).Round(time.Millisecond).String()),
	)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "wpcli", operation, fmt.Sprintf("exceeded %s", c.timeout), err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "wpcli", operation, "wp exited with an error", err)
	}
	return lines, nil
}
