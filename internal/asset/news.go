package asset

import (
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/opensubspace/zonecore/internal/constants"
	"github.com/opensubspace/zonecore/internal/protocol"
)

// NewsAsset is the compressed news blob, rebuilt on file-change
// (spec.md §3). The news header's filename field is all-NUL.
type NewsAsset struct {
	Header     []byte
	Compressed []byte
	CRC32      uint32
	ModTime    time.Time
}

// NewsWatcher holds the current NewsAsset and reloads it when the
// source file's content changes, retrying transient locked-file reads
// up to NewsReloadMaxRetries times (spec.md §4.5, §7).
type NewsWatcher struct {
	path string

	mu      sync.RWMutex
	current *NewsAsset
}

func NewNewsWatcher(path string) *NewsWatcher {
	return &NewsWatcher{path: path}
}

// Current returns the most recently loaded news asset, or nil if none
// has ever loaded successfully.
func (w *NewsWatcher) Current() *NewsAsset {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reload re-reads the news file and installs a new compressed asset
// only if its CRC-32 differs from the current one (S6 "no rebroadcast"
// on identical content). Retries on transient read failures.
func (w *NewsWatcher) Reload() error {
	raw, err := readWithRetry(w.path, constants.NewsReloadMaxRetries, constants.NewsReloadRetryDelayMillis)
	if err != nil {
		return fmt.Errorf("reloading news file %s: %w", w.path, err)
	}

	crc := crc32.ChecksumIEEE(raw)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil && w.current.CRC32 == crc {
		slog.Debug("news file unchanged", "path", w.path)
		return nil
	}

	header, err := protocol.BuildAssetHeader(constants.PacketTypeIncomingFile, "")
	if err != nil {
		return fmt.Errorf("building news header: %w", err)
	}
	compressed, err := zlibCompress(raw)
	if err != nil {
		return fmt.Errorf("compressing news blob: %w", err)
	}

	w.current = &NewsAsset{Header: header, Compressed: compressed, CRC32: crc, ModTime: time.Now()}
	slog.Info("news blob reloaded", "path", w.path, "crc32", crc)
	return nil
}

func readWithRetry(path string, maxRetries int, delayMillis int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, err // permanent I/O, no retry (spec.md §7)
		}
		lastErr = err
		time.Sleep(time.Duration(delayMillis) * time.Millisecond)
	}
	return nil, fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr)
}
