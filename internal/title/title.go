// Package title pulls the document title out of an HTML response body.
package title

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Extract decodes body to UTF-8 using the charset declared in contentType or
// sniffed from the document, then returns the trimmed text of the first
// <title> element. The second result is false when there is no title, the
// title is blank, or the body cannot be parsed.
func Extract(body []byte, contentType string) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if !utf8.Valid(body) {
			return "", false
		}
		decoded = body
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(doc.Find("title").First().Text())
	// An empty or whitespace-only title counts as no title, so callers label
	// the page with the placeholder instead of "[]".
	if text == "" {
		return "", false
	}
	return text, true
}
