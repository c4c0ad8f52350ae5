package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrickPacketRoundTrip(t *testing.T) {
	records := []BrickRecord{
		{X1: 10, Y1: 20, X2: 30, Y2: 40, Freq: 1, BrickID: 5, StartTime: 1000},
		{X1: -5, Y1: -5, X2: 5, Y2: 5, Freq: 2, BrickID: 6, StartTime: 2000},
	}
	encoded := EncodeBrickPacket(0x23, records)
	require.Len(t, encoded, 1+len(records)*brickRecordWireSize)

	packetType, decoded, err := DecodeBrickPacket(encoded)
	require.NoError(t, err)
	require.Equal(t, byte(0x23), packetType)
	require.Equal(t, records, decoded)
}

func TestDecodeBrickPacketEmpty(t *testing.T) {
	packetType, records, err := DecodeBrickPacket([]byte{0x23})
	require.NoError(t, err)
	require.Equal(t, byte(0x23), packetType)
	require.Empty(t, records)
}

func TestDecodeBrickPacketShortBuffer(t *testing.T) {
	_, _, err := DecodeBrickPacket([]byte{})
	require.Error(t, err)
}

func TestMaxBrickRecordsPerPacket(t *testing.T) {
	n := MaxBrickRecordsPerPacket(520, 6)
	require.Equal(t, (520-6-1)/brickRecordWireSize, n)
	require.Positive(t, n)

	require.Equal(t, 0, MaxBrickRecordsPerPacket(5, 6))
}
