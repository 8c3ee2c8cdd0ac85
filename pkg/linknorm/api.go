// Package linknorm rewrites cloud-storage sharing links into URLs that can be
// fetched directly. It performs no I/O: every function here is deterministic.
package linknorm

// Provider identifies the file-hosting service a link belongs to.
type Provider string

const (
	// ProviderGoogleDrive is a drive.google.com file link.
	ProviderGoogleDrive Provider = "google_drive"
	// ProviderDropbox covers both /s/ share links and /scl/fi/ links.
	ProviderDropbox Provider = "dropbox"
	// ProviderOneDrive covers OneDrive personal and SharePoint links.
	ProviderOneDrive Provider = "onedrive_sharepoint"
	// ProviderGeneric is any URL no provider rule applies to.
	ProviderGeneric Provider = "generic"
)

// Link is the immutable result of normalizing one raw URL.
type Link struct {
	// OriginalURL is the trimmed raw input.
	OriginalURL string `json:"originalUrl"`
	// FetchURL is the best guess at a direct download URL. It equals
	// OriginalURL when no transform applies.
	FetchURL string `json:"fetchUrl"`
	// SuggestedName is a display/download filename. It carries no type information.
	SuggestedName string `json:"suggestedName"`
	// Provider is the rule that produced FetchURL.
	Provider Provider `json:"provider"`
	// FileID is the Google Drive file id, empty for other providers.
	FileID string `json:"fileId,omitempty"`
}

// Rewritten reports whether normalization changed the URL.
func (l Link) Rewritten() bool {
	return l.FetchURL != l.OriginalURL
}
