// Package report renders run entries as "[<label>] (<url>)" lines.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/JakeFAU/linkcheck/internal/crawler"
)

// ContentType is the media type of a rendered report.
const ContentType = "text/plain; charset=utf-8"

// Line formats a single entry without the trailing newline.
func Line(entry crawler.Entry) string {
	return fmt.Sprintf("[%s] (%s)", entry.Outcome.Label, entry.URL)
}

// Render writes one line per entry to w.
func Render(w io.Writer, entries []crawler.Entry) error {
	bw := bufio.NewWriter(w)
	for _, entry := range entries {
		if _, err := bw.WriteString(Line(entry) + "\n"); err != nil {
			return fmt.Errorf("write report line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Bytes renders entries into memory.
func Bytes(entries []crawler.Entry) []byte {
	var buf bytes.Buffer
	_ = Render(&buf, entries) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

// Write creates or truncates path and renders entries into it. Any failure to
// create, write, or close the file is a DestinationUnwritable error.
func Write(path string, entries []crawler.Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return crawler.NewError(crawler.KindDestinationUnwritable, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = crawler.NewError(crawler.KindDestinationUnwritable, path, cerr)
		}
	}()
	if err := Render(f, entries); err != nil {
		return crawler.NewError(crawler.KindDestinationUnwritable, path, err)
	}
	return nil
}
