package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), make([]byte, 2048), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.webm"), []byte("webm"), 0644))

	var buf bytes.Buffer
	require.NoError(t, ListDir(&buf, dir))

	out := buf.String()
	assert.Contains(t, out, "2 entries")
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "b.webm")
	assert.Contains(t, out, "4 B")
	assert.Contains(t, out, "now")
}

func TestListDir_missing(t *testing.T) {
	var buf bytes.Buffer
	err := ListDir(&buf, filepath.Join(t.TempDir(), "clicks"))
	assert.ErrorContains(t, err, "failed to list")
	assert.Empty(t, buf.String())
}
