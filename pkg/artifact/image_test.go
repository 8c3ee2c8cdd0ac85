package artifact

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestNewRejectsNonImage(t *testing.T) {
	for _, ct := range []string{"text/html; charset=utf-8", "", "application/octet-stream"} {
		img, err := New([]byte("<html>"), ct, "x.jpg")
		if img != nil {
			t.Errorf("Expected no image for %q", ct)
		}
		var nai *NotAnImageError
		if !errors.As(err, &nai) {
			t.Fatalf("Expected NotAnImageError for %q, got %v", ct, err)
		}
	}
}

func TestNewNormalizesMimeType(t *testing.T) {
	img, err := New([]byte{1, 2, 3}, " Image/PNG; foo=bar", "a.png")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("Expected image/png, got %q", img.MimeType)
	}
	if img.Size() != 3 {
		t.Errorf("Expected size 3, got %d", img.Size())
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	data := pngBytes(t, 4, 3)
	img, err := New(data, "image/png", "a.png")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	uri := img.DataURI()
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("Unexpected data uri prefix: %.40s", uri)
	}
	decoded, mt, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}
	if mt != "image/png" || !bytes.Equal(decoded, data) {
		t.Errorf("Round trip mismatch: mime=%q len=%d", mt, len(decoded))
	}
	if w, h := img.Dimensions(); w != 4 || h != 3 {
		t.Errorf("Expected 4x3, got %dx%d", w, h)
	}
}

func TestParseDataURIErrors(t *testing.T) {
	for _, in := range []string{"http://x", "data:image/png;base64", "data:image/png,abc"} {
		if _, _, err := ParseDataURI(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestDimensionsUnknownFormat(t *testing.T) {
	img := &Image{Data: []byte("<svg/>"), MimeType: "image/svg+xml", Name: "a.svg"}
	if w, h := img.Dimensions(); w != 0 || h != 0 {
		t.Errorf("Expected 0x0, got %dx%d", w, h)
	}
	if img.Ext() != ".svg" {
		t.Errorf("Expected .svg, got %s", img.Ext())
	}
}

func TestNotAnImageErrorMessage(t *testing.T) {
	err := &NotAnImageError{URL: "https://x", ContentType: "text/html", PageTitle: "Sign in"}
	msg := err.Error()
	if !strings.Contains(msg, "valid image") || !strings.Contains(msg, "text/html") || !strings.Contains(msg, "Sign in") {
		t.Errorf("Unexpected message: %s", msg)
	}
}
