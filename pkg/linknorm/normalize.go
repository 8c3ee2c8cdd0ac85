package linknorm

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	driveFileID   = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	dropboxDLZero = regexp.MustCompile(`([?&])dl=0(&|$)`)
	dropboxDL     = regexp.MustCompile(`[?&]dl=`)
	extPattern    = regexp.MustCompile(`^[a-zA-Z0-9]{1,5}$`)
)

// rule is one provider pattern. match decides whether the rule owns the URL;
// rewrite returns the fetch URL, or ok=false to fall through to generic.
type rule struct {
	provider Provider
	prefix   string
	match    func(raw string) bool
	rewrite  func(raw string) (fetchURL, fileID string, ok bool)
}

// Evaluated in order, first match wins.
var rules = []rule{
	{
		provider: ProviderGoogleDrive,
		prefix:   "drive_image",
		match: func(raw string) bool {
			return strings.Contains(raw, "drive.google.com") && strings.Contains(raw, "/file/d/")
		},
		rewrite: rewriteDrive,
	},
	{
		provider: ProviderDropbox,
		prefix:   "dropbox_image",
		match: func(raw string) bool {
			return strings.Contains(raw, "dropbox.com") && strings.Contains(raw, "/s/")
		},
		rewrite: rewriteDropboxShare,
	},
	{
		provider: ProviderDropbox,
		prefix:   "dropbox_image",
		match: func(raw string) bool {
			return strings.Contains(raw, "dropbox.com") && strings.Contains(raw, "/scl/fi/")
		},
		rewrite: rewriteDropboxDirect,
	},
	{
		provider: ProviderOneDrive,
		prefix:   "onedrive_image",
		match:    isOneDrive,
		rewrite:  rewriteOneDrive,
	},
}

// Normalize maps a raw URL to a fetchable Link. It never fails: a URL that no
// rule can rewrite comes back unchanged as ProviderGeneric, and the fetch is
// where a bad link finally surfaces. seq is the 1-based position of the URL in
// its batch and only affects SuggestedName.
func Normalize(rawURL string, seq int) Link {
	raw := strings.TrimSpace(rawURL)
	if seq < 1 {
		seq = 1
	}

	for _, r := range rules {
		if !r.match(raw) {
			continue
		}
		fetchURL, fileID, ok := r.rewrite(raw)
		if !ok {
			break
		}
		if _, err := url.Parse(fetchURL); err != nil {
			fetchURL = raw
		}
		return Link{
			OriginalURL:   raw,
			FetchURL:      fetchURL,
			SuggestedName: fmt.Sprintf("%s_%d.jpg", r.prefix, seq),
			Provider:      r.provider,
			FileID:        fileID,
		}
	}

	return Link{
		OriginalURL:   raw,
		FetchURL:      raw,
		SuggestedName: fmt.Sprintf("image_%d.%s", seq, extensionOf(raw)),
		Provider:      ProviderGeneric,
	}
}

// NormalizeAll normalizes urls in order, numbering them from 1.
func NormalizeAll(urls []string) []Link {
	out := make([]Link, 0, len(urls))
	for i, u := range urls {
		out = append(out, Normalize(u, i+1))
	}
	return out
}

func rewriteDrive(raw string) (string, string, bool) {
	m := driveFileID.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return DriveViewURL(m[1]), m[1], true
}

// DriveViewURL is the export=view URL for a Drive file id.
func DriveViewURL(id string) string {
	return "https://drive.google.com/uc?export=view&id=" + id
}

// DriveDownloadURL is the export=download URL for a Drive file id.
func DriveDownloadURL(id string) string {
	return "https://drive.google.com/uc?export=download&id=" + id
}

func rewriteDropboxShare(raw string) (string, string, bool) {
	base, fragment, hasFragment := strings.Cut(raw, "#")
	switch {
	case dropboxDLZero.MatchString(base):
		base = dropboxDLZero.ReplaceAllString(base, "${1}dl=1${2}")
	case dropboxDL.MatchString(base):
		// dl already set to something other than 0
	case strings.Contains(base, "?"):
		base += "&dl=1"
	default:
		base += "?dl=1"
	}
	if hasFragment {
		base += "#" + fragment
	}
	return base, "", true
}

func rewriteDropboxDirect(raw string) (string, string, bool) {
	if strings.Contains(raw, "raw=1") {
		return raw, "", true
	}
	return strings.Replace(raw, "?rlkey=", "?raw=1&rlkey=", 1), "", true
}

func isOneDrive(raw string) bool {
	return strings.Contains(raw, "sharepoint.com") ||
		strings.Contains(raw, "onedrive.live.com") ||
		strings.Contains(raw, "1drv.ms")
}

func rewriteOneDrive(raw string) (string, string, bool) {
	if strings.Contains(raw, "/_layouts/") {
		return raw, "", true
	}
	return strings.Replace(raw, "/redir?", "/download.aspx?", 1), "", true
}

func extensionOf(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(path.Ext(path.Base(p)), ".")
	if !extPattern.MatchString(ext) {
		return "jpg"
	}
	return strings.ToLower(ext)
}
