// Package detect classifies product images with a vision model behind an
// OpenAI-compatible chat completions API.
package detect

import (
	"errors"
	"fmt"
)

// Location is a bounding box in percent (0-100) of the image size.
type Location struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Defect struct {
	Type       string   `json:"type"`
	Severity   string   `json:"severity"`
	Location   Location `json:"location"`
	Confidence float64  `json:"confidence"`
}

// Result is the model verdict. JSON names match the stored detection_result
// column so older records decode unchanged.
type Result struct {
	IsProduct         *bool    `json:"is_window,omitempty"`
	NonProductReason  string   `json:"non_window_reason,omitempty"`
	Defects           []Defect `json:"cracks"`
	ProductType       string   `json:"window_type"`
	OverallConfidence float64  `json:"overall_confidence"`
	Analysis          string   `json:"analysis"`
	IsDefective       *bool    `json:"is_defective,omitempty"`
}

// Defective reports the overall verdict, inferring it from the defect list
// when the model left it out.
func (r *Result) Defective() bool {
	if r.IsDefective != nil {
		return *r.IsDefective
	}
	return len(r.Defects) > 0
}

var (
	// ErrNotAProduct matches *NotAProductError.
	ErrNotAProduct = errors.New("image does not show a relevant product")
	// ErrUnparsable is a model reply with no recoverable JSON object.
	ErrUnparsable = errors.New("failed to parse model response")
	// ErrInvalidResult is JSON that does not match the result schema.
	ErrInvalidResult = errors.New("model response does not match the result schema")
	ErrNoAPIKey      = errors.New("no API key configured for the detection model")
)

// NotAProductError is returned when the model says the image shows no
// window, door or similar product. Such results are never stored.
type NotAProductError struct {
	Reason string
}

func (e *NotAProductError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "The uploaded image does not appear to contain a window or door."
	}
	return fmt.Sprintf("%s Please upload an image that clearly shows the product for defect detection.", reason)
}

func (e *NotAProductError) Is(target error) bool {
	return target == ErrNotAProduct
}
