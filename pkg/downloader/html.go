package downloader

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLen = 120

// pageTitle returns the <title> of an HTML document, or "".
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen] + "..."
	}
	return title
}
