package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBallPacketRoundTrip(t *testing.T) {
	cases := []BallPacket{
		{Type: 0x21, BallID: 0, X: 512, Y: 512, XSpeed: 0, YSpeed: 0, CarrierID: -1, Time: 1000},
		{Type: 0x21, BallID: 7, X: -100, Y: 32000, XSpeed: -32768, YSpeed: 32767, CarrierID: 255, Time: 0},
	}
	for _, c := range cases {
		encoded := EncodeBallPacket(c)
		require.Len(t, encoded, 16)
		decoded, err := DecodeBallPacket(encoded)
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	}
}

func TestDecodeBallPacketShortBuffer(t *testing.T) {
	_, err := DecodeBallPacket([]byte{0x21, 0x00})
	require.Error(t, err)
}
