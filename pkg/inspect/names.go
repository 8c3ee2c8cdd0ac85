package inspect

import (
	"defectlens/pkg/artifact"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// objectName turns an image name into a single safe path element, keeping
// an extension that matches the content.
func objectName(img *artifact.Image) string {
	base := strings.TrimSuffix(filepath.Base(img.Name), filepath.Ext(img.Name))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "image"
	}
	return base + img.Ext()
}
