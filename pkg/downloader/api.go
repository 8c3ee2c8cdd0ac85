// Package downloader fetches candidate image URLs and turns successful
// responses into image artifacts. Schemes are pluggable; http(s), data and
// file are registered by default. Progress is reported via the display package.
package downloader

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"defectlens/pkg/linknorm"
)

// Downloader fetches a normalized link and validates the result is an image.
type Downloader interface {
	// Fetch retrieves link.FetchURL. It fails with *FetchError on a non-2xx
	// status and *artifact.NotAnImageError when the declared content type is
	// not image/*. Google Drive links get one export=download fallback.
	Fetch(ctx context.Context, link linknorm.Link, task display.Task) (*artifact.Image, error)
}

// Response is the raw result of a scheme handler.
// Immutable
type Response struct {
	Data        []byte
	ContentType string
	FinalURL    string
	// PageTitle is the <title> of an HTML body, for error hints.
	PageTitle string
}

// SchemeHandler retrieves URIs for a set of schemes.
type SchemeHandler interface {
	Get(ctx context.Context, uri string, task display.Task) (*Response, error)
	// Schemes returns the lowercase URI schemes this handler serves.
	Schemes() []string
}
