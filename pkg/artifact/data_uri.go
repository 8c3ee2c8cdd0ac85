package artifact

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ParseDataURI decodes a base64 data URI into its bytes and media type.
// Format: data:[<mediatype>][;base64],<data>
func ParseDataURI(dataURI string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	metadata, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: no comma separator")
	}
	if !strings.Contains(metadata, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	mimeType := strings.Split(metadata, ";")[0]
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return data, mimeType, nil
}
