// Package download fetches installer packages over HTTP with retries and
// console progress.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
)

const progressBarLength = 30

// StatusError reports a response with an unexpected HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.Code)
}

// Result describes a completed download.
type Result struct {
	Path  string
	Bytes int64
}

// Downloader fetches files, retrying transient HTTP failures.
type Downloader struct {
	client    *retryablehttp.Client
	userAgent string
	progress  io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRetries sets the maximum number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.client.RetryMax = n
		}
	}
}

// WithRetryWait sets the bounds of the backoff between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(d *Downloader) {
		d.client.RetryWaitMin = minWait
		d.client.RetryWaitMax = maxWait
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithLogger routes retry logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.client.Logger = l
		}
	}
}

// WithProgress writes a progress line to w while downloading.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) { d.progress = w }
}

// WithHTTPClient sets the underlying HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client.HTTPClient = c
		}
	}
}

// New creates a Downloader with the given options.
func New(opts ...Option) *Downloader {
	client := retryablehttp.NewClient()
	client.Logger = slog.New(slog.DiscardHandler)
	client.RetryMax = 3
	d := &Downloader{client: client}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Fetch downloads url into dest, creating the parent directory. The file is
// written under a temporary name and renamed once complete.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) (Result, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &StatusError{URL: url, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("creating download directory: %w", err)
	}
	// Each fetch writes its own temporary file so an abandoned attempt never
	// shares one with a later attempt for the same destination.
	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return Result{}, fmt.Errorf("creating temporary file for %s: %w", dest, err)
	}
	tmp := f.Name()

	var w io.Writer = f
	var bar *progressWriter
	if d.progress != nil {
		bar = &progressWriter{out: d.progress, total: resp.ContentLength}
		w = io.MultiWriter(f, bar)
	}
	n, copyErr := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if bar != nil {
		bar.finish()
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("finalizing %s: %w", dest, err)
	}
	return Result{Path: dest, Bytes: n}, nil
}

// progressWriter renders a single, carriage-return refreshed progress line.
type progressWriter struct {
	out     io.Writer
	total   int64
	written int64
	lastPct int
	drawn   bool
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		pct := int(p.written * 100 / p.total)
		if p.drawn && pct == p.lastPct {
			return len(b), nil
		}
		p.lastPct = pct
	}
	p.draw()
	return len(b), nil
}

func (p *progressWriter) draw() {
	p.drawn = true
	if p.total <= 0 {
		_, _ = fmt.Fprintf(p.out, "\rDownloading: %s", humanize.Bytes(uint64(p.written)))
		return
	}
	filled := int(int64(progressBarLength) * p.written / p.total)
	if filled > progressBarLength {
		filled = progressBarLength
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", progressBarLength-filled)
	pct := float64(p.written) / float64(p.total) * 100
	_, _ = fmt.Fprintf(p.out, "\rDownloading: [%s] %.1f%% (%s/%s)",
		bar, pct, humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)))
}

func (p *progressWriter) finish() {
	if p.drawn {
		_, _ = fmt.Fprintln(p.out)
	}
}
