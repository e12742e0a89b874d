// Package fetch downloads templates and images over HTTP(S) or, for local
// use, reads them from disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/wudi/pdfsnap/observability"
)

var ErrNetwork = errors.New("network fetch failed")

type Config struct {
	Timeout time.Duration
	// MaxBytes bounds every download. Zero means 64 MiB.
	MaxBytes int64
	// AllowFiles lets file:// URLs and bare paths read from disk.
	AllowFiles bool
	HTTPClient *http.Client
	Logger     observability.Logger
}

type Client struct {
	http       *http.Client
	maxBytes   int64
	allowFiles bool
	logger     observability.Logger
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Client{http: hc, maxBytes: cfg.MaxBytes, allowFiles: cfg.AllowFiles, logger: cfg.Logger}
}

// Template downloads a template PDF.
func (c *Client) Template(ctx context.Context, rawURL string) ([]byte, error) {
	data, _, err := c.get(ctx, rawURL)
	return data, err
}

// Image downloads an image and reports its Content-Type, which is empty
// when the server sends none. Judging the type is left to the decoder.
func (c *Client) Image(ctx context.Context, rawURL string) ([]byte, string, error) {
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	switch u.Scheme {
	case "http", "https":
		return c.getHTTP(ctx, rawURL)
	case "file", "":
		if !c.allowFiles {
			return nil, "", fmt.Errorf("%w: local files are not allowed: %s", ErrNetwork, rawURL)
		}
		p := rawURL
		if u.Scheme == "file" {
			p = u.Path
		}
		return c.getFile(p)
	}
	return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrNetwork, u.Scheme)
}

func (c *Client) getHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.logger.Warn("closing response body", observability.Error("error", closeErr))
		}
	}()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s: HTTP status %d", ErrNetwork, rawURL, res.StatusCode)
	}
	data, err := c.readLimited(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrNetwork, rawURL, err)
	}
	c.logger.Debug("fetched",
		observability.String("url", rawURL),
		observability.Int("bytes", len(data)),
		observability.Duration("elapsed", time.Since(start)))
	return data, res.Header.Get("Content-Type"), nil
}

func (c *Client) getFile(p string) ([]byte, string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer f.Close()
	data, err := c.readLimited(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrNetwork, p, err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBytes)
	}
	return data, nil
}

// Name returns the last path segment of a URL, or fallback when there is
// none.
func Name(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return fallback
	}
	return base
}
