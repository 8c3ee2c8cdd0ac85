package downloader

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/display"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Immutable
type dataHandler struct{}

// NewDataHandler serves inline base64 data URIs, the form records take when
// object upload failed.
func NewDataHandler() SchemeHandler {
	return dataHandler{}
}

func (dataHandler) Schemes() []string {
	return []string{"data"}
}

func (dataHandler) Get(_ context.Context, uri string, task display.Task) (*Response, error) {
	data, mt, err := artifact.ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	task.Progress(100, humanize.Bytes(uint64(len(data))))
	return &Response{Data: data, ContentType: mt}, nil
}

// Immutable
type fileHandler struct {
	maxBytes int64
}

// NewFileHandler serves file:// URLs, as produced by the local object store.
// The content type comes from the file extension.
func NewFileHandler(maxBytes int64) SchemeHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return fileHandler{maxBytes: maxBytes}
}

func (fileHandler) Schemes() []string {
	return []string{"file"}
}

func (h fileHandler) Get(_ context.Context, uri string, task display.Task) (*Response, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	path := filepath.FromSlash(u.Path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > h.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %s", artifact.ErrTooLarge,
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(h.maxBytes)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	task.Progress(100, humanize.Bytes(uint64(len(data))))
	return &Response{Data: data, ContentType: mime.TypeByExtension(filepath.Ext(path)), FinalURL: uri}, nil
}
