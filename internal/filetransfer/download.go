package filetransfer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/opensubspace/zonecore/internal/constants"
	"github.com/opensubspace/zonecore/internal/protocol"
)

// DownloadSource is any byte source a download can stream: a file or
// an in-memory asset (spec.md §4.6 "for any byte source").
type DownloadSource interface {
	io.ReadSeeker
	io.Closer
}

// Download implements spec.md §4.6's server->client sized-send
// contract: a 17-byte header followed by the source's bytes, served to
// a producer callback that fills a caller-supplied buffer.
type Download struct {
	source    DownloadSource
	header    []byte
	size      int64
	path      string // for logging / optional post-send delete
	deleteAfter bool
	sent      int64
}

// NewDownload builds a Download, computing size as stream length minus
// current position and validating against MaxTransferSize, and
// building the 17-byte header from typeByte + filename.
func NewDownload(source DownloadSource, typeByte byte, filename string, deleteAfter bool, path string) (*Download, error) {
	pos, err := source.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seeking current position: %w", err)
	}
	end, err := source.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seeking end: %w", err)
	}
	if _, err := source.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("restoring position: %w", err)
	}

	size := end - pos
	if size > constants.MaxTransferSize {
		return nil, fmt.Errorf("transfer size %d exceeds maximum %d", size, constants.MaxTransferSize)
	}

	header, err := protocol.BuildAssetHeader(typeByte, filename)
	if err != nil {
		return nil, fmt.Errorf("building download header: %w", err)
	}

	return &Download{source: source, header: header, size: size, path: path, deleteAfter: deleteAfter}, nil
}

// TotalSize is the size reported to the sized-send transport: header + payload.
func (d *Download) TotalSize() int64 {
	return int64(len(d.header)) + d.size
}

// Produce is the sized-send producer contract (spec.md §4.6): given an
// offset and a buffer, fill from the header for [0,17), then the
// stream thereafter. An empty buf signals completion.
func (d *Download) Produce(offset int64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, d.finish()
	}

	n := 0
	if offset < int64(len(d.header)) {
		n = copy(buf, d.header[offset:])
		if n == len(buf) {
			return n, nil
		}
		offset += int64(n)
	}

	streamOffset := offset - int64(len(d.header))
	if _, err := d.source.Seek(streamOffset, io.SeekStart); err != nil {
		return n, fmt.Errorf("seeking download stream: %w", err)
	}
	m, err := d.source.Read(buf[n:])
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("reading download stream: %w", err)
	}
	return n + m, nil
}

func (d *Download) finish() error {
	if err := d.source.Close(); err != nil {
		return fmt.Errorf("closing download source: %w", err)
	}
	slog.Info("download completed", "path", d.path, "bytes", d.TotalSize())
	if d.deleteAfter {
		if err := deleteFile(d.path); err != nil {
			slog.Warn("failed to delete download source after send", "path", d.path, "error", err)
		}
	}
	return nil
}
