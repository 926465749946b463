package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JakeFAU/linkcheck/internal/crawler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDeduplicatesInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	text := "https://a.test\nsee https://b.test and https://a.test again\n"
	require.Equal(t, []string{"https://a.test", "https://b.test"}, Extract(text))
}

func TestExtractStopsAtDelimiters(t *testing.T) {
	t.Parallel()

	text := "[docs](https://example.com/docs) [x](http://x.test/a?b=1] tail https://c.test/p\tnext"
	assert.Equal(t, []string{
		"https://example.com/docs",
		"http://x.test/a?b=1",
		"https://c.test/p",
	}, Extract(text))
}

func TestExtractIgnoresOtherSchemes(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Extract("ftp://files.test mailto:a@b.test www.example.com"))
	assert.Empty(t, Extract(""))
}

func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	text := "https://a.test https://b.test https://a.test https://c.test"
	first := Extract(text)
	var joined string
	for _, u := range first {
		joined += u + "\n"
	}
	assert.Equal(t, first, Extract(joined))
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.test\nhttps://a.test\nhttps://b.test\n"), 0o600))

	urls, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, urls)
}

func TestExtractFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ExtractFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrSourceNotFound)
}

func TestExtractFileUnreadable(t *testing.T) {
	t.Parallel()

	// Reading a directory fails with something other than not-exist.
	_, err := ExtractFile(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrSourceUnreadable)
}
