package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeURLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadURLs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"blank entry dropped", "http://a.com, ,http://b.com", []string{"http://a.com", "http://b.com"}},
		{"single url", "http://example.com\n", []string{"http://example.com"}},
		{"order kept", "https://c.com,https://a.com,https://b.com", []string{"https://c.com", "https://a.com", "https://b.com"}},
		{"duplicates kept", "http://a.com,http://a.com", []string{"http://a.com", "http://a.com"}},
		{"trailing comma", "http://a.com,\n", []string{"http://a.com"}},
		{"invalid entries pass through", "ftp://x.com, example.org", []string{"ftp://x.com", "example.org"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			got := readURLs(writeURLFile(t, tt.content), zerolog.New(&buf))
			assert.Equal(t, tt.want, got)
			assert.Empty(t, buf.String())
		})
	}
}

func TestReadURLs_empty(t *testing.T) {
	for _, content := range []string{"", "   \n\t  "} {
		var buf bytes.Buffer
		got := readURLs(writeURLFile(t, content), zerolog.New(&buf))
		assert.Empty(t, got)
		assert.NotNil(t, got)
		assert.Contains(t, buf.String(), "URL file is empty")
		assert.Contains(t, buf.String(), `"level":"error"`)
	}
}

func TestReadURLs_missingFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "nonexistent.txt")

	got := readURLs(path, zerolog.New(&buf))
	assert.Equal(t, []string{}, got)
	assert.Contains(t, buf.String(), "URL file not found")
	assert.Contains(t, buf.String(), path)
}

func TestReadURLs_readError(t *testing.T) {
	var buf bytes.Buffer

	// Reading a directory fails with something other than not-found.
	got := readURLs(t.TempDir(), zerolog.New(&buf))
	assert.Equal(t, []string{}, got)
	assert.Contains(t, buf.String(), "error reading URL file")
}
