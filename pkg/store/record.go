// Package store persists inspection records in SQLite and image objects on
// the local filesystem.
package store

import (
	"defectlens/pkg/detect"
	"errors"
	"time"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 1000
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnsupportedRef = errors.New("unsupported image reference")
)

// Entry is what gets saved for one analyzed image.
type Entry struct {
	// ImageURL is a public object URL or, when upload failed, a data URI.
	ImageURL  string
	ImageName string
	Result    *detect.Result
	Width     int
	Height    int
}

// Record is a stored Entry.
type Record struct {
	ID             string         `json:"id"`
	ImageURL       string         `json:"image_url"`
	ImageName      string         `json:"image_name"`
	Result         *detect.Result `json:"detection_result"`
	DefectDetected bool           `json:"defect_detected"`
	ProductType    string         `json:"product_type"`
	Confidence     float64        `json:"confidence_score"`
	Width          int            `json:"width,omitempty"`
	Height         int            `json:"height,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// clampLimit maps non-positive limits to the default and caps the rest.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
