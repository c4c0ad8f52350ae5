package asset

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMapAssetCompressesLvlAndSetsCRC(t *testing.T) {
	raw := []byte("a tiny fake map file payload, repeated repeated repeated")
	a, ok := BuildMapAsset("test.lvl", raw, false)
	require.True(t, ok)
	require.Equal(t, crc32.ChecksumIEEE(raw), a.CRC32)
	require.Len(t, a.Header, 17)

	zr, err := zlib.NewReader(bytes.NewReader(a.Compressed))
	require.NoError(t, err)
	decompressed, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, raw, decompressed)
}

func TestBuildMapAssetLeavesLvzUncompressed(t *testing.T) {
	raw := []byte("lvz-payload-bytes")
	a, ok := BuildMapAsset("extras.lvz", raw, true)
	require.True(t, ok)
	require.Equal(t, raw, a.Compressed)
}

func TestCatalogFiltersOptionalUnlessWantAllLVZ(t *testing.T) {
	c := &Catalog{assets: []MapAsset{
		{Filename: "main.lvl", Optional: false},
		{Filename: "extra.lvz", Optional: true},
	}}
	require.Len(t, c.Assets(false), 1)
	require.Len(t, c.Assets(true), 2)
}
