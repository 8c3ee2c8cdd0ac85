package downloader

import (
	"bytes"
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Immutable
type httpHandler struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewHTTPHandler(cfg Config) SchemeHandler {
	cfg = cfg.WithDefaults()
	return &httpHandler{
		client:    &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
	}
}

func (h *httpHandler) Schemes() []string {
	return []string{"http", "https"}
}

func (h *httpHandler) Get(ctx context.Context, uri string, task display.Task) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", h.userAgent)

	task.SetStage("Fetch", uri)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &FetchError{URL: uri, Status: resp.StatusCode, StatusText: statusText(resp)}
	}

	if resp.ContentLength > h.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %s", artifact.ErrTooLarge,
			humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(h.maxBytes)))
	}

	pw := &progressWriter{
		task:  task,
		total: resp.ContentLength,
		start: time.Now(),
	}
	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, pw), io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if n > h.maxBytes {
		return nil, fmt.Errorf("%w: more than %s", artifact.ErrTooLarge, humanize.Bytes(uint64(h.maxBytes)))
	}

	out := &Response{
		Data:        buf.Bytes(),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}
	if artifact.NormalizeMimeType(out.ContentType) == "text/html" {
		out.PageTitle = pageTitle(out.Data)
	}
	return out, nil
}

// statusText prefers the server's reason phrase over the canonical one.
func statusText(resp *http.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// Mutable
type progressWriter struct {
	task    display.Task
	total   int64
	written int64
	start   time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)

	if pw.total > 0 {
		percent := int((float64(pw.written) / float64(pw.total)) * 100)
		elapsed := max(time.Since(pw.start).Seconds(), 0.001)
		speed := float64(pw.written) / elapsed
		msg := fmt.Sprintf("%s / %s (%s/s)",
			humanize.Bytes(uint64(pw.written)),
			humanize.Bytes(uint64(pw.total)),
			humanize.Bytes(uint64(speed)))
		pw.task.Progress(percent, msg)
	} else {
		pw.task.Progress(0, fmt.Sprintf("%s downloaded", humanize.Bytes(uint64(pw.written))))
	}

	return n, nil
}
