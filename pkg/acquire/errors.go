package acquire

import (
	"defectlens/pkg/artifact"
	"defectlens/pkg/linknorm"
	"errors"
)

var (
	// ErrMalformedBatchInput rejects a batch with no non-blank line.
	ErrMalformedBatchInput = errors.New("please enter at least one image URL")
	// ErrValidation rejects a local file before any I/O.
	ErrValidation = errors.New("invalid image file")
	// ErrBusy rejects a trigger whose previous acquisition is still in flight.
	ErrBusy = errors.New("an acquisition is already in progress")
	// ErrSuperseded resolves acquisitions whose source was switched away
	// from, or whose batch already handed off another image.
	ErrSuperseded = errors.New("acquisition superseded")
	// ErrNoBatch is returned for batch item operations without a session.
	ErrNoBatch = errors.New("no active batch")
	// ErrNoSuchItem is an out of range batch index.
	ErrNoSuchItem = errors.New("no such batch item")
)

const genericNotAnImageHint = "Make sure the link opens the image itself, not a web page,\n" +
	"and that it is accessible without signing in."

// UserError is the only error shape acquisition surfaces. Message is meant
// for display as is; Remediation, when set, is provider specific advice.
type UserError struct {
	Message     string
	Remediation string
	Provider    linknorm.Provider
	Err         error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Full joins the message and the remediation for terminal output.
func (e *UserError) Full() string {
	if e.Remediation == "" {
		return e.Message
	}
	return e.Message + "\n\n" + e.Remediation
}

func newUserError(sentinel error) *UserError {
	return &UserError{Message: sentinel.Error(), Err: sentinel}
}

// enrich turns a fetch failure for rawURL into a UserError carrying the
// provider remediation.
func enrich(err error, rawURL string) *UserError {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	p := linknorm.Classify(rawURL)
	out := &UserError{
		Message:     err.Error(),
		Remediation: linknorm.Remediation(p),
		Provider:    p,
		Err:         err,
	}
	var nai *artifact.NotAnImageError
	if out.Remediation == "" && errors.As(err, &nai) {
		out.Remediation = genericNotAnImageHint
	}
	return out
}
