package protocol

import (
	"fmt"

	"github.com/opensubspace/zonecore/internal/constants"
)

// MapFilenameEntry is one record of a map-filename-announce packet
// (type 0x29, spec.md §6). Size is only meaningful in the multi-file form.
type MapFilenameEntry struct {
	Filename string
	CRC32    uint32
	Size     uint32
}

// EncodeMapFilenameSingle encodes the single-file form of the 0x29
// packet: just {filename(16B), crc32}, used for the primary map.
func EncodeMapFilenameSingle(filename string, crc32 uint32) ([]byte, error) {
	if err := checkAssetFilename(filename); err != nil {
		return nil, err
	}
	w := NewWriter(1 + constants.AssetFilenameFieldSize + 4)
	w.U8(constants.PacketTypeMapFilenameAnnounce)
	w.FixedString(filename, constants.AssetFilenameFieldSize)
	w.U32(crc32)
	return w.Bytes(), nil
}

// EncodeMapFilenameList encodes the multi-file form of the 0x29 packet.
func EncodeMapFilenameList(entries []MapFilenameEntry) ([]byte, error) {
	for _, e := range entries {
		if err := checkAssetFilename(e.Filename); err != nil {
			return nil, err
		}
	}
	recSize := constants.AssetFilenameFieldSize + 4 + 4
	w := NewWriter(1 + len(entries)*recSize)
	w.U8(constants.PacketTypeMapFilenameAnnounce)
	for _, e := range entries {
		w.FixedString(e.Filename, constants.AssetFilenameFieldSize)
		w.U32(e.CRC32)
		w.U32(e.Size)
	}
	return w.Bytes(), nil
}

func checkAssetFilename(filename string) error {
	if len(filename) == 0 || len(filename) > constants.MaxAssetFilenameEncodedLen {
		return fmt.Errorf("asset filename %q encodes to an invalid length (1..%d required)", filename, constants.MaxAssetFilenameEncodedLen)
	}
	return nil
}

// BuildAssetHeader builds the 17-byte prelude shared by news and map
// payloads: 1 type byte + 16-byte NUL-padded filename. filename is
// empty (all-NUL) for the news blob.
func BuildAssetHeader(packetType byte, filename string) ([]byte, error) {
	if filename != "" {
		if err := checkAssetFilename(filename); err != nil {
			return nil, err
		}
	}
	header := make([]byte, constants.AssetHeaderSize)
	header[0] = packetType
	PutString(header[1:], filename)
	return header, nil
}
