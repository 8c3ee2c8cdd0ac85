package store

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/cache"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSObjectStore keeps uploaded images as files under root. Writes are
// create-once and atomic.
type FSObjectStore struct {
	root       string
	publicBase string
}

// NewFSObjectStore stores objects under root. When publicBase is set, URLs
// are publicBase + "/" + name (root served by some web server); otherwise
// they are file:// URLs.
func NewFSObjectStore(root, publicBase string) *FSObjectStore {
	return &FSObjectStore{root: root, publicBase: strings.TrimRight(publicBase, "/")}
}

// Upload writes data as name and returns its public URL.
func (s *FSObjectStore) Upload(ctx context.Context, data []byte, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := cache.WriteFile(ctx, filepath.Join(s.root, name), data); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return s.PublicURL(name), nil
}

func (s *FSObjectStore) PublicURL(name string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + url.PathEscape(name)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, name))
	if err != nil {
		abs = filepath.Join(s.root, name)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Open reads an image back from a reference produced by Upload or from an
// inline data URI.
func (s *FSObjectStore) Open(_ context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "data:") {
		return artifact.ParseDataURI(ref)
	}

	var path string
	switch {
	case s.publicBase != "" && strings.HasPrefix(ref, s.publicBase+"/"):
		name, err := url.PathUnescape(strings.TrimPrefix(ref, s.publicBase+"/"))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
		}
		if err := validName(name); err != nil {
			return nil, "", err
		}
		path = filepath.Join(s.root, name)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
		}
		path = filepath.FromSlash(u.Path)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	return data, mime.TypeByExtension(filepath.Ext(path)), nil
}

// validName allows a single path element.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: object name %q", ErrInvalidInput, name)
	}
	return nil
}
