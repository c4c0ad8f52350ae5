package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S6 — News reload: identical content after replace -> no rebuild;
// different content -> new blob installed and served.
func TestNewsWatcherReloadSkipsIdenticalContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	w := NewNewsWatcher(path)
	require.NoError(t, w.Reload())
	first := w.Current()
	require.NotNil(t, first)

	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))
	require.NoError(t, w.Reload())
	second := w.Current()
	require.Equal(t, first.CRC32, second.CRC32)
	require.Equal(t, first.Compressed, second.Compressed)
}

func TestNewsWatcherReloadInstallsChangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.txt")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0o644))

	w := NewNewsWatcher(path)
	require.NoError(t, w.Reload())
	first := w.Current()

	require.NoError(t, os.WriteFile(path, []byte("version two, now longer"), 0o644))
	require.NoError(t, w.Reload())
	second := w.Current()

	require.NotEqual(t, first.CRC32, second.CRC32)
}

func TestNewsWatcherMissingFilePermanentError(t *testing.T) {
	w := NewNewsWatcher(filepath.Join(t.TempDir(), "missing.txt"))
	err := w.Reload()
	require.Error(t, err)
	require.Nil(t, w.Current())
}
