package linknorm

import "strings"

var remediation = map[Provider]string{
	ProviderGoogleDrive: "For Google Drive images:\n" +
		"• Ensure the file is publicly shared\n" +
		"• Set access to \"Anyone with the link can view\"\n" +
		"• Try a different sharing link format",
	ProviderDropbox: "For Dropbox images:\n" +
		"• Use sharing links (ending in ?dl=0)\n" +
		"• Ensure the link is accessible without signing in\n" +
		"• Try a direct download link",
	ProviderOneDrive: "For OneDrive/SharePoint images:\n" +
		"• Try a different link format\n" +
		"• Use a direct download link when possible\n" +
		"• Ensure proper sharing permissions",
}

// Classify reports which provider a URL belongs to using host hints only.
// It is broader than the rewrite rules: a Drive folder link classifies as
// Drive here even though Normalize leaves it generic.
func Classify(rawURL string) Provider {
	switch {
	case strings.Contains(rawURL, "drive.google.com"):
		return ProviderGoogleDrive
	case strings.Contains(rawURL, "dropbox.com"):
		return ProviderDropbox
	case isOneDrive(rawURL):
		return ProviderOneDrive
	default:
		return ProviderGeneric
	}
}

// Remediation returns user-facing advice for links of provider p, or "" for
// generic links.
func Remediation(p Provider) string {
	return remediation[p]
}
