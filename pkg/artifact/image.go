// Package artifact defines the binary image payload that acquisition hands to
// inspection, and the checks that keep anything else out of it.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is the terminal output of acquisition. MimeType always begins with
// "image/"; use New to construct one.
type Image struct {
	Data     []byte
	MimeType string
	Name     string
}

// New validates mimeType and wraps data. A non-image type yields a
// *NotAnImageError and no Image.
func New(data []byte, mimeType, name string) (*Image, error) {
	mt := NormalizeMimeType(mimeType)
	if !IsImageType(mt) {
		return nil, &NotAnImageError{ContentType: mt}
	}
	if data == nil {
		data = []byte{}
	}
	return &Image{Data: data, MimeType: mt, Name: name}, nil
}

// NormalizeMimeType strips parameters and lowercases a Content-Type value.
func NormalizeMimeType(v string) string {
	mt, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsImageType reports whether a normalized MIME type is an image type.
func IsImageType(mt string) bool {
	return strings.HasPrefix(mt, "image/")
}

// Size is the payload length in bytes.
func (i *Image) Size() int64 {
	return int64(len(i.Data))
}

// SHA256 returns the hex digest of the payload.
func (i *Image) SHA256() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

// DataURI encodes the image as an inline base64 data URI.
func (i *Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Dimensions decodes only the image header. Formats without a registered
// decoder (svg, heic, ...) report 0x0.
func (i *Image) Dimensions() (width, height int) {
	if len(i.Data) == 0 {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// Ext picks a file extension for the payload, preferring the MIME type over
// the name.
func (i *Image) Ext() string {
	switch i.MimeType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/svg+xml":
		return ".svg"
	}
	if ext := strings.ToLower(filepath.Ext(i.Name)); ext != "" {
		return ext
	}
	return ".img"
}
