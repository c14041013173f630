package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := FileWriter{Dir: dir}.Write("abc.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestFileWriterFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := FileWriter{Dir: file}.Write("abc.txt", []byte("hello"))
	assert.Error(t, err)
}
