package artifact

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned when a payload exceeds the configured size limit.
var ErrTooLarge = errors.New("image exceeds size limit")

// NotAnImageError reports content whose declared type is not image/*. The
// usual cause is an HTML sign-in or warning page served for a share link.
type NotAnImageError struct {
	// URL is set when the content came from a fetch.
	URL string
	// ContentType is the declared, normalized type ("" when absent).
	ContentType string
	// PageTitle is the <title> of an HTML response, when there was one.
	PageTitle string
	// RedirectedTo is where the server sent the request, when not URL.
	RedirectedTo string
}

func (e *NotAnImageError) Error() string {
	subject := "content is not an image"
	if e.URL != "" {
		subject = "URL does not point to a valid image file"
	}
	ct := e.ContentType
	if ct == "" {
		ct = "no content type"
	}
	msg := fmt.Sprintf("%s (got %s)", subject, ct)
	if e.PageTitle != "" {
		msg += fmt.Sprintf(": server returned page %q", e.PageTitle)
	}
	if e.RedirectedTo != "" {
		msg += fmt.Sprintf(" after redirecting to %s", e.RedirectedTo)
	}
	return msg
}
