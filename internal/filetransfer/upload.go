package filetransfer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/opensubspace/zonecore/internal/constants"
)

// UploadChunk is one reported chunk from the transport (spec.md §4.6
// "Upload"). Offset -1 is cancellation.
type UploadChunk struct {
	PlayerID    int
	Data        []byte
	Offset      int64
	TotalLength int64
}

// UploadResult is delivered to the pending promise on completion or
// cancellation (an empty Path with a nil Err signals cancellation).
type UploadResult struct {
	Path string
	Err  error
}

// Upload tracks one in-progress client->server transfer. Its file I/O
// runs on whichever goroutine calls UploadManager.HandleChunk.
type Upload struct {
	mu       sync.Mutex
	tmpDir   string
	f        *os.File
	path     string
	received int64
	done     bool
}

// UploadManager enforces one concurrent upload per player (spec.md
// §4.6). It starts no worker goroutine and keeps no chunk queue;
// chunks are processed as HandleChunk is called.
type UploadManager struct {
	tmpDir string
	pool   *BytePool

	mu      sync.Mutex
	uploads map[int]*Upload
	results map[int]chan UploadResult
}

func NewUploadManager(tmpDir string) *UploadManager {
	return &UploadManager{
		tmpDir:  tmpDir,
		pool:    NewBytePool(4096),
		uploads: make(map[int]*Upload),
		results: make(map[int]chan UploadResult),
	}
}

// Begin registers a pending upload for playerID and returns a channel
// that receives exactly one UploadResult.
func (m *UploadManager) Begin(playerID int) <-chan UploadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan UploadResult, 1)
	m.results[playerID] = ch
	return ch
}

// HandleChunk implements spec.md §4.6's upload chunk state machine. It
// copies the chunk data into a rented buffer and writes it to the
// temporary file synchronously, on the calling goroutine.
func (m *UploadManager) HandleChunk(chunk UploadChunk) error {
	rented := m.pool.Get(len(chunk.Data))
	copy(rented, chunk.Data)
	defer m.pool.Put(rented)

	m.mu.Lock()
	up, ok := m.uploads[chunk.PlayerID]
	m.mu.Unlock()

	if chunk.Offset == -1 {
		return m.cancel(chunk.PlayerID, up)
	}

	if !ok {
		if chunk.Offset != 0 {
			return fmt.Errorf("upload for player %d: unexpected offset %d with no open transfer", chunk.PlayerID, chunk.Offset)
		}
		newUp, err := m.create(chunk.PlayerID)
		if err != nil {
			return err
		}
		up = newUp
	}

	if chunk.Offset > chunk.TotalLength {
		// "Upload chunk with offset > totalLength: ignored; prior data
		// preserved" (spec.md §8 boundary behavior).
		return nil
	}

	body := rented[:len(chunk.Data)]
	if chunk.Offset == 0 && len(body) >= constants.AssetHeaderSize {
		body = body[constants.AssetHeaderSize:]
	}

	up.mu.Lock()
	_, err := up.f.Write(body)
	up.received += int64(len(body))
	finished := chunk.Offset+int64(len(chunk.Data)) >= chunk.TotalLength
	up.mu.Unlock()
	if err != nil {
		m.fail(chunk.PlayerID, up, fmt.Errorf("writing upload chunk: %w", err))
		return err
	}

	if finished {
		return m.finish(chunk.PlayerID, up)
	}
	return nil
}

func (m *UploadManager) create(playerID int) (*Upload, error) {
	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return nil, fmt.Errorf("generating upload temp name: %w", err)
	}
	path := filepath.Join(m.tmpDir, constants.UploadTempPrefix+hex.EncodeToString(suffix[:]))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating upload temp file %s: %w", path, err)
	}

	up := &Upload{tmpDir: m.tmpDir, f: f, path: path}
	m.mu.Lock()
	m.uploads[playerID] = up
	m.mu.Unlock()
	return up, nil
}

func (m *UploadManager) finish(playerID int, up *Upload) error {
	up.mu.Lock()
	path := up.path
	closeErr := up.f.Close()
	up.done = true
	up.mu.Unlock()

	m.mu.Lock()
	delete(m.uploads, playerID)
	ch := m.results[playerID]
	delete(m.results, playerID)
	m.mu.Unlock()

	if closeErr != nil {
		deleteFile(path)
		if ch != nil {
			ch <- UploadResult{Err: closeErr}
		}
		return closeErr
	}

	slog.Info("upload completed", "player_id", playerID, "path", path)
	if ch != nil {
		ch <- UploadResult{Path: path}
	}
	return nil
}

func (m *UploadManager) cancel(playerID int, up *Upload) error {
	m.mu.Lock()
	delete(m.uploads, playerID)
	ch := m.results[playerID]
	delete(m.results, playerID)
	m.mu.Unlock()

	if up != nil {
		up.mu.Lock()
		up.f.Close()
		path := up.path
		up.mu.Unlock()
		deleteFile(path)
	}
	if ch != nil {
		ch <- UploadResult{}
	}
	return nil
}

func (m *UploadManager) fail(playerID int, up *Upload, err error) {
	m.mu.Lock()
	delete(m.uploads, playerID)
	ch := m.results[playerID]
	delete(m.results, playerID)
	m.mu.Unlock()

	if up != nil {
		up.mu.Lock()
		up.f.Close()
		path := up.path
		up.mu.Unlock()
		deleteFile(path)
	}
	if ch != nil {
		ch <- UploadResult{Err: err}
	}
}

func deleteFile(path string) error {
	if path == "" {
		return nil
	}
	return os.Remove(path)
}
