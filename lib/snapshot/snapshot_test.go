package snapshot

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) ([]byte, bool, error) {
	t.Helper()
	var content []byte
	found, err := Read(path, func(r io.Reader) error {
		var err error
		content, err = io.ReadAll(r)
		return err
	})
	return content, found, err
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.snap")

	require.NoError(t, Write(path, []byte("first")))
	require.NoError(t, Write(path, []byte("second")))

	content, found, err := readAll(t, path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.snap")
	require.NoError(t, Write(path, nil))

	content, found, err := readAll(t, path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, content)
}

func TestReadMissing(t *testing.T) {
	called := false
	found, err := Read(filepath.Join(t.TempDir(), "missing.snap"), func(io.Reader) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestReadCorrupted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.snap")
	require.NoError(t, Write(path, []byte("some snapshot content")))
	valid, err := os.ReadFile(path)
	require.NoError(t, err)

	cases := map[string][]byte{
		"flipped":   append([]byte{valid[0] ^ 0xff}, valid[1:]...),
		"short":     []byte("abc"),
		"no footer": []byte("some snapshot content without any footer"),
		"truncated": valid[1:],
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, name+".snap")
			require.NoError(t, os.WriteFile(p, data, 0644))
			_, found, err := readAll(t, p)
			assert.True(t, found)
			assert.ErrorIs(t, err, ErrCorrupted)
		})
	}
}

func TestReadCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.snap")
	require.NoError(t, Write(path, []byte("content")))

	_, err := Read(path, func(io.Reader) error { return errors.New("cannot decode") })
	assert.ErrorIs(t, err, ErrCorrupted)
}
