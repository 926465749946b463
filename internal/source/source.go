// Package source extracts the list of URLs to check from free-form text.
package source

import (
	"errors"
	"io/fs"
	"os"
	"regexp"

	"github.com/JakeFAU/linkcheck/internal/crawler"
)

// urlPattern matches http(s) URLs up to whitespace or a closing bracket.
var urlPattern = regexp.MustCompile(`https?://[^\s\)\]]+`)

// Extract returns every URL in text, in first-seen order, each exactly once.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// ExtractFile reads path and extracts its URLs. A missing file yields a
// SourceNotFound error; any other read failure yields SourceUnreadable.
func ExtractFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, crawler.NewError(crawler.KindSourceNotFound, path, err)
		}
		return nil, crawler.NewError(crawler.KindSourceUnreadable, path, err)
	}
	return Extract(string(data)), nil
}
