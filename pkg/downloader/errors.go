package downloader

import (
	"fmt"
	"strings"
)

// FetchError is a non-success HTTP status.
type FetchError struct {
	URL        string
	Status     int
	StatusText string
}

func (e *FetchError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("failed to fetch image: %d %s", e.Status, e.StatusText))
}
