package downloader

import (
	"bytes"
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"defectlens/pkg/linknorm"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Mutable
type manager struct {
	handlers map[string]SchemeHandler
	inflight singleflight.Group
}

// New returns a Downloader with the http(s), data and file handlers.
func New(cfg Config) Downloader {
	cfg = cfg.WithDefaults()
	m := &manager{handlers: make(map[string]SchemeHandler)}
	m.Register(NewHTTPHandler(cfg))
	m.Register(NewDataHandler())
	m.Register(NewFileHandler(cfg.MaxBytes))
	return m
}

func NewDefaultDownloader() Downloader {
	return New(Config{})
}

func (m *manager) Register(h SchemeHandler) {
	for _, scheme := range h.Schemes() {
		m.handlers[scheme] = h
	}
}

func (m *manager) Fetch(ctx context.Context, link linknorm.Link, task display.Task) (*artifact.Image, error) {
	log := zerolog.Ctx(ctx).With().
		Str("component", "downloader").
		Str("provider", string(link.Provider)).
		Logger()

	img, err := m.fetch(ctx, link.FetchURL, link.SuggestedName, task)
	if err == nil {
		return img, nil
	}

	var fe *FetchError
	if link.Provider != linknorm.ProviderGoogleDrive || link.FileID == "" || !errors.As(err, &fe) {
		return nil, err
	}
	fallback := linknorm.DriveDownloadURL(link.FileID)
	if fallback == link.FetchURL {
		return nil, err
	}

	log.Debug().Int("status", fe.Status).Str("url", fallback).Msg("Drive view export failed, trying download export")
	task.Log(fmt.Sprintf("view export returned %d, trying export=download", fe.Status))
	return m.fetch(ctx, fallback, link.SuggestedName, task)
}

func (m *manager) fetch(ctx context.Context, uri, name string, task display.Task) (*artifact.Image, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid uri: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid uri %q: not an absolute URL", uri)
	}

	scheme := strings.ToLower(u.Scheme)
	handler, ok := m.handlers[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme: %s", scheme)
	}

	// The shared request outlives any single caller; each caller stops
	// waiting on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.inflight.DoChan(uri, func() (any, error) {
		return handler.Get(flightCtx, uri, task)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	resp := res.Val.(*Response)
	data := resp.Data
	if res.Shared {
		data = bytes.Clone(data)
	}

	mt := artifact.NormalizeMimeType(resp.ContentType)
	if !artifact.IsImageType(mt) {
		nai := &artifact.NotAnImageError{URL: uri, ContentType: mt, PageTitle: resp.PageTitle}
		if resp.FinalURL != "" && resp.FinalURL != uri {
			nai.RedirectedTo = resp.FinalURL
		}
		return nil, nai
	}
	return artifact.New(data, mt, name)
}
