package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opensubspace/zonecore/internal/constants"
)

func TestEncodeMapFilenameSingle(t *testing.T) {
	encoded, err := EncodeMapFilenameSingle("level.lvl", 0xDEADBEEF)
	require.NoError(t, err)
	require.Len(t, encoded, 1+constants.AssetFilenameFieldSize+4)
	require.Equal(t, constants.PacketTypeMapFilenameAnnounce, encoded[0])
}

func TestEncodeMapFilenameSingleRejectsOversizedName(t *testing.T) {
	longName := strings.Repeat("x", constants.MaxAssetFilenameEncodedLen+1) + ".lvl"
	_, err := EncodeMapFilenameSingle(longName, 0)
	require.Error(t, err)
}

func TestEncodeMapFilenameListEncodesEachRecord(t *testing.T) {
	entries := []MapFilenameEntry{
		{Filename: "level.lvl", CRC32: 1, Size: 100},
		{Filename: "extra.lvz", CRC32: 2, Size: 200},
	}
	encoded, err := EncodeMapFilenameList(entries)
	require.NoError(t, err)

	recSize := constants.AssetFilenameFieldSize + 4 + 4
	require.Len(t, encoded, 1+len(entries)*recSize)
	require.Equal(t, constants.PacketTypeMapFilenameAnnounce, encoded[0])
}

func TestEncodeMapFilenameListRejectsBadEntry(t *testing.T) {
	entries := []MapFilenameEntry{{Filename: ""}}
	_, err := EncodeMapFilenameList(entries)
	require.Error(t, err)
}

func TestBuildAssetHeaderForMapAndNews(t *testing.T) {
	header, err := BuildAssetHeader(constants.PacketTypeMapFilenameAnnounce, "level.lvl")
	require.NoError(t, err)
	require.Len(t, header, constants.AssetHeaderSize)
	require.Equal(t, constants.PacketTypeMapFilenameAnnounce, header[0])

	newsHeader, err := BuildAssetHeader(0x2D, "")
	require.NoError(t, err)
	require.Len(t, newsHeader, constants.AssetHeaderSize)
	for _, b := range newsHeader[1:] {
		require.Equal(t, byte(0), b)
	}
}
