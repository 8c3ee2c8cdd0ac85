package linknorm

import (
	"strings"
	"testing"
)

func TestNormalizeDriveFileLink(t *testing.T) {
	l := Normalize("https://drive.google.com/file/d/XYZ123/view?usp=sharing", 1)
	if l.Provider != ProviderGoogleDrive {
		t.Fatalf("Expected google_drive, got %s", l.Provider)
	}
	if l.FetchURL != "https://drive.google.com/uc?export=view&id=XYZ123" {
		t.Errorf("Unexpected fetch url: %s", l.FetchURL)
	}
	if l.FileID != "XYZ123" {
		t.Errorf("Expected file id XYZ123, got %q", l.FileID)
	}
	if l.SuggestedName != "drive_image_1.jpg" {
		t.Errorf("Unexpected name: %s", l.SuggestedName)
	}
}

func TestNormalizeDriveIDs(t *testing.T) {
	ids := []string{"a", "1AbC-dEf_9", "0B7x_yz-Q"}
	for _, id := range ids {
		raw := "https://drive.google.com/file/d/" + id + "/view"
		got := Normalize(raw, 3).FetchURL
		if want := "https://drive.google.com/uc?export=view&id=" + id; got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeDriveIsIdempotent(t *testing.T) {
	first := Normalize("https://drive.google.com/file/d/XYZ123/view", 1)
	second := Normalize(first.FetchURL, 1)
	if second.FetchURL != first.FetchURL {
		t.Errorf("Expected unchanged url, got %s", second.FetchURL)
	}
	if second.Provider != ProviderGeneric {
		t.Errorf("Expected generic for an already-normalized link, got %s", second.Provider)
	}
}

func TestNormalizeMalformedDriveFallsThrough(t *testing.T) {
	raw := "https://drive.google.com/drive/folders/abc"
	l := Normalize(raw, 2)
	if l.Provider != ProviderGeneric || l.FetchURL != raw {
		t.Errorf("Expected generic passthrough, got %+v", l)
	}
	if Classify(raw) != ProviderGoogleDrive {
		t.Errorf("Classify should still recognise Drive host")
	}
}

func TestNormalizeDropboxShare(t *testing.T) {
	cases := map[string]string{
		"https://www.dropbox.com/s/abc/image.jpg?dl=0":       "https://www.dropbox.com/s/abc/image.jpg?dl=1",
		"https://www.dropbox.com/s/abc/image.jpg":            "https://www.dropbox.com/s/abc/image.jpg?dl=1",
		"https://www.dropbox.com/s/abc/image.jpg?foo=bar":    "https://www.dropbox.com/s/abc/image.jpg?foo=bar&dl=1",
		"https://www.dropbox.com/s/abc/image.jpg?dl=0&x=1":   "https://www.dropbox.com/s/abc/image.jpg?dl=1&x=1",
		"https://www.dropbox.com/s/abc/image.jpg?dl=1":       "https://www.dropbox.com/s/abc/image.jpg?dl=1",
		"https://www.dropbox.com/s/abc/image.jpg?x=1&dl=0#f": "https://www.dropbox.com/s/abc/image.jpg?x=1&dl=1#f",
	}
	for raw, want := range cases {
		l := Normalize(raw, 1)
		if l.FetchURL != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, l.FetchURL, want)
		}
		if strings.Contains(l.FetchURL, "dl=0") {
			t.Errorf("dl=0 survived in %q", l.FetchURL)
		}
		if strings.Count(l.FetchURL, "dl=") != 1 {
			t.Errorf("Expected exactly one dl param in %q", l.FetchURL)
		}
		if l.Provider != ProviderDropbox || l.SuggestedName != "dropbox_image_1.jpg" {
			t.Errorf("Unexpected classification %+v", l)
		}
	}
}

func TestNormalizeDropboxDirect(t *testing.T) {
	raw := "https://www.dropbox.com/scl/fi/xyz/photo.png?rlkey=abc&st=1"
	l := Normalize(raw, 4)
	if l.FetchURL != "https://www.dropbox.com/scl/fi/xyz/photo.png?raw=1&rlkey=abc&st=1" {
		t.Errorf("Unexpected fetch url: %s", l.FetchURL)
	}
	if again := Normalize(l.FetchURL, 4); again.FetchURL != l.FetchURL {
		t.Errorf("Expected idempotent rewrite, got %s", again.FetchURL)
	}
	if l.SuggestedName != "dropbox_image_4.jpg" {
		t.Errorf("Unexpected name: %s", l.SuggestedName)
	}
}

func TestNormalizeOneDrive(t *testing.T) {
	l := Normalize("https://onedrive.live.com/redir?resid=ABC&authkey=x", 1)
	if l.FetchURL != "https://onedrive.live.com/download.aspx?resid=ABC&authkey=x" {
		t.Errorf("Unexpected fetch url: %s", l.FetchURL)
	}
	if l.Provider != ProviderOneDrive || l.SuggestedName != "onedrive_image_1.jpg" {
		t.Errorf("Unexpected classification %+v", l)
	}

	layouts := "https://contoso.sharepoint.com/sites/x/_layouts/15/download.aspx?share=abc"
	if got := Normalize(layouts, 1).FetchURL; got != layouts {
		t.Errorf("Expected _layouts link unchanged, got %s", got)
	}

	short := "https://1drv.ms/i/s!Abc"
	l = Normalize(short, 2)
	if l.FetchURL != short || l.Provider != ProviderOneDrive {
		t.Errorf("Expected 1drv.ms link unchanged but classified, got %+v", l)
	}
}

func TestNormalizeGenericIsIdentity(t *testing.T) {
	urls := []string{
		"https://example.com/photos/window.png",
		"https://cdn.example.org/a/b/c?size=large",
		"http://example.net/",
		"not a url at all",
	}
	for _, u := range urls {
		l := Normalize(u, 1)
		if l.FetchURL != u || l.Provider != ProviderGeneric {
			t.Errorf("Normalize(%q) = %+v, want identity", u, l)
		}
		if l.Rewritten() {
			t.Errorf("Rewritten() should be false for %q", u)
		}
	}
}

func TestNormalizeGenericNames(t *testing.T) {
	cases := []struct {
		raw  string
		seq  int
		want string
	}{
		{"https://example.com/photos/window.PNG?x=1", 2, "image_2.png"},
		{"https://example.com/photos/door.webp", 1, "image_1.webp"},
		{"https://example.com/photos/", 5, "image_5.jpg"},
		{"https://example.com/render?id=9", 7, "image_7.jpg"},
		{"https://example.com/file.tar.gzipped", 1, "image_1.jpg"},
		{"https://example.com/x.png", 0, "image_1.png"},
	}
	for _, c := range cases {
		if got := Normalize(c.raw, c.seq).SuggestedName; got != c.want {
			t.Errorf("Normalize(%q, %d).SuggestedName = %q, want %q", c.raw, c.seq, got, c.want)
		}
	}
}

func TestNormalizeIsPure(t *testing.T) {
	raw := "  https://www.dropbox.com/s/abc/image.jpg?dl=0  "
	a := Normalize(raw, 1)
	b := Normalize(raw, 1)
	if a != b {
		t.Errorf("Expected identical results, got %+v and %+v", a, b)
	}
	if a.OriginalURL != strings.TrimSpace(raw) {
		t.Errorf("Expected trimmed original, got %q", a.OriginalURL)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("a\n\nb\n  \nc")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Unexpected split: %q", got)
	}
	if got := SplitLines("   \n  \r\n"); len(got) != 0 {
		t.Errorf("Expected no lines, got %q", got)
	}
	links := NormalizeAll(SplitLines("https://x.test/1.png\r\nhttps://x.test/2.gif"))
	if len(links) != 2 || links[1].SuggestedName != "image_2.gif" {
		t.Errorf("Unexpected links: %+v", links)
	}
}

func TestRemediation(t *testing.T) {
	if !strings.Contains(Remediation(ProviderGoogleDrive), "publicly shared") {
		t.Errorf("Drive hint missing sharing advice")
	}
	if !strings.Contains(Remediation(Classify("https://www.dropbox.com/s/x")), "?dl=0") {
		t.Errorf("Dropbox hint missing share link advice")
	}
	if Remediation(ProviderGeneric) != "" {
		t.Errorf("Generic links should have no hint")
	}
}
