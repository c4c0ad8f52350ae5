// Package asset builds and serves the compressed, checksum-indexed
// map/LVZ catalog and the news text blob (spec.md §4.5). Grounded on
// the teacher's internal/html/cache.go compiled-and-cached-by-key
// pattern, adapted from HTML templates to compressed binary payloads.
package asset

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash/crc32"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opensubspace/zonecore/internal/constants"
	"github.com/opensubspace/zonecore/internal/protocol"
)

// MapDataProvider is the out-of-scope "map-tile data provider"
// collaborator (spec.md §1): it enumerates an arena's map/LVZ files
// and reads their raw bytes.
type MapDataProvider interface {
	ListFiles(arenaName string) ([]MapFileRef, error)
	ReadFile(arenaName, filename string) ([]byte, error)
}

// MapFileRef names one map/LVZ file and whether it's optional.
type MapFileRef struct {
	Filename string
	Optional bool
}

// MapAsset is one built, ready-to-serve map/LVZ asset (spec.md §3).
type MapAsset struct {
	Filename   string
	Optional   bool
	CRC32      uint32
	Header     []byte // 17-byte prelude
	Compressed []byte // compressed (.lvl) or raw (.lvz) payload
}

// TotalSize is the size reported to clients: header + payload.
func (a MapAsset) TotalSize() int64 {
	return int64(len(a.Header) + len(a.Compressed))
}

// emergencyMap is the built-in 29-byte fallback substituted when a
// .lvl fails to build (spec.md §4.5), with the known CRC the spec
// pins: 0x5643ef8a.
var emergencyMap = []byte{
	'e', 'm', 'e', 'r', 'g', 'e', 'n', 'c', 'y', '.', 'l', 'v', 'l', 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// BuildMapAsset builds one MapAsset from raw file bytes, compressing
// .lvl files with zlib at its best-compression level and leaving .lvz
// files untouched (they may already be compressed), per spec.md §4.5.
func BuildMapAsset(filename string, raw []byte, optional bool) (MapAsset, bool) {
	crc := crc32.ChecksumIEEE(raw)

	header, err := protocol.BuildAssetHeader(constants.PacketTypeIncomingFile, filename)
	if err != nil {
		return emergencyAsset(), false
	}

	payload := raw
	if strings.EqualFold(filepath.Ext(filename), ".lvl") {
		compressed, cerr := zlibCompress(raw)
		if cerr != nil {
			return emergencyAsset(), false
		}
		payload = compressed
	}

	a := MapAsset{
		Filename:   filename,
		Optional:   optional,
		CRC32:      crc,
		Header:     header,
		Compressed: payload,
	}
	return a, true
}

func emergencyAsset() MapAsset {
	header, _ := protocol.BuildAssetHeader(constants.PacketTypeIncomingFile, "emergency.lvl")
	return MapAsset{
		Filename:   "emergency.lvl",
		CRC32:      constants.EmergencyMapCRC32,
		Header:     header,
		Compressed: emergencyMap[:constants.EmergencyMapSize-len(header)],
	}
}

func zlibCompress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating zlib writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing asset: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Catalog is the per-arena set of built assets, built once at arena
// creation per spec.md §4.5.
type Catalog struct {
	mu     sync.RWMutex
	assets []MapAsset
}

// BuildCatalog enumerates and builds every asset for an arena via the
// map-data provider, substituting the emergency map when a .lvl build
// fails and warning (returned as warnings, logged by the caller) when
// a compressed asset exceeds 256 KiB or a filename encodes too long.
func BuildCatalog(provider MapDataProvider, arenaName string) (*Catalog, []string, error) {
	refs, err := provider.ListFiles(arenaName)
	if err != nil {
		return nil, nil, fmt.Errorf("listing map files for %q: %w", arenaName, err)
	}

	c := &Catalog{}
	var warnings []string
	for _, ref := range refs {
		raw, err := provider.ReadFile(arenaName, ref.Filename)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reading %s: %v, substituting emergency map", ref.Filename, err))
			c.assets = append(c.assets, emergencyAsset())
			continue
		}
		asset, ok := BuildMapAsset(ref.Filename, raw, ref.Optional)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("building %s failed, substituting emergency map", ref.Filename))
		}
		if len(asset.Compressed) > constants.AssetWarnSizeBytes {
			warnings = append(warnings, fmt.Sprintf("%s compressed size %d exceeds warn threshold", ref.Filename, len(asset.Compressed)))
		}
		c.assets = append(c.assets, asset)
	}
	if len(c.assets) == 0 {
		c.assets = append(c.assets, emergencyAsset())
	}
	return c, warnings, nil
}

// Assets returns a snapshot of every built asset, filtered to
// non-optional ones unless wantAllLVZ is set (spec.md §4.5
// "GetMapFilename list").
func (c *Catalog) Assets(wantAllLVZ bool) []MapAsset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if wantAllLVZ {
		out := make([]MapAsset, len(c.assets))
		copy(out, c.assets)
		return out
	}
	var out []MapAsset
	for _, a := range c.assets {
		if !a.Optional {
			out = append(out, a)
		}
	}
	return out
}

// At returns the idx-th visible asset (spec.md §4.5 "MapRequest(idx)").
func (c *Catalog) At(idx int, wantAllLVZ bool) (MapAsset, bool) {
	assets := c.Assets(wantAllLVZ)
	if idx < 0 || idx >= len(assets) {
		return MapAsset{}, false
	}
	return assets[idx], true
}

// FilenamePacket builds the type-0x29 listing for every visible asset.
func (c *Catalog) FilenamePacket(wantAllLVZ bool) ([]byte, error) {
	assets := c.Assets(wantAllLVZ)
	if len(assets) == 1 {
		a := assets[0]
		return protocol.EncodeMapFilenameSingle(a.Filename, a.CRC32)
	}
	entries := make([]protocol.MapFilenameEntry, len(assets))
	for i, a := range assets {
		entries[i] = protocol.MapFilenameEntry{Filename: a.Filename, CRC32: a.CRC32, Size: uint32(a.TotalSize())}
	}
	return protocol.EncodeMapFilenameList(entries)
}

// ReadAt serves bytes for a sized-send starting at offset: the header
// for offset <= 16, the compressed payload thereafter (spec.md §4.5
// "MapRequest(idx)" offset contract).
func (a MapAsset) ReadAt(offset int64, buf []byte) int {
	total := a.Header
	total = append(append([]byte(nil), total...), a.Compressed...)
	if offset >= int64(len(total)) {
		return 0
	}
	return copy(buf, total[offset:])
}
