package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlowfishCipher_RoundTrip(t *testing.T) {
	cipher, err := NewBlowfishCipher(DefaultLinkKey)
	require.NoError(t, err)

	plaintext := []byte("ZONE-CORE-BILLING-LINK!")
	padded := make([]byte, 24) // multiple of BlowfishBlockSize
	copy(padded, plaintext)

	buf := append([]byte(nil), padded...)
	require.NoError(t, cipher.Encrypt(buf, 0, len(buf)))
	require.NotEqual(t, padded, buf)

	require.NoError(t, cipher.Decrypt(buf, 0, len(buf)))
	require.Equal(t, padded, buf)
}

func TestBlowfishCipher_SizeNotBlockAligned(t *testing.T) {
	cipher, err := NewBlowfishCipher(DefaultLinkKey)
	require.NoError(t, err)

	buf := make([]byte, 10)
	require.Error(t, cipher.Encrypt(buf, 0, 10))
	require.Error(t, cipher.Decrypt(buf, 0, 10))
}

func TestAppendAndVerifyChecksum(t *testing.T) {
	buf := make([]byte, 16)
	for i := range 12 {
		buf[i] = byte(i + 1)
	}

	AppendChecksum(buf, 0, 16)
	require.True(t, VerifyChecksum(buf, 0, 16))

	buf[0] ^= 0xFF
	require.False(t, VerifyChecksum(buf, 0, 16))
}

func TestVerifyChecksum_RejectsBadSize(t *testing.T) {
	require.False(t, VerifyChecksum(make([]byte, 6), 0, 6))
	require.False(t, VerifyChecksum(make([]byte, 4), 0, 4))
}
