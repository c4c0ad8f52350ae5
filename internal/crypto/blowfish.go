// Package crypto provides the cipher primitives the billing client's
// link-encryption interface can be backed by. spec.md treats "the
// encryption layer for the billing client link" as an external
// collaborator reached through an interface (see internal/billing);
// this package supplies the teacher's own Blowfish-ECB default for
// that interface, the same cipher the teacher uses for its GS↔LS link.
package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

const (
	// BlowfishBlockSize is the Blowfish block size in bytes (64-bit).
	BlowfishBlockSize = 8

	// PacketChecksumSize is the XOR checksum size in bytes (32-bit).
	PacketChecksumSize = 4
)

// DefaultLinkKey is the static key used before a session key has been
// negotiated over the billing link, mirroring the teacher's
// DefaultGSBlowfishKey bootstrap key for the GS↔LS connection.
var DefaultLinkKey = []byte{
	0x5F, 0x3B, 0x76, 0x2E, 0x5D, 0x30, 0x35, 0x2D,
	0x33, 0x31, 0x21, 0x7C, 0x2B, 0x2D, 0x25, 0x78,
	0x54, 0x21, 0x5E, 0x5B, 0x24, 0x00,
}

// BlowfishCipher wraps Blowfish ECB encryption/decryption.
type BlowfishCipher struct {
	cipher *blowfish.Cipher
}

// NewBlowfishCipher creates a new Blowfish ECB cipher from the given key.
func NewBlowfishCipher(key []byte) (*BlowfishCipher, error) {
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating blowfish cipher: %w", err)
	}
	return &BlowfishCipher{cipher: c}, nil
}

// Encrypt encrypts data in-place using Blowfish ECB mode.
// size must be a multiple of BlowfishBlockSize.
func (b *BlowfishCipher) Encrypt(data []byte, offset, size int) error {
	if size%BlowfishBlockSize != 0 {
		return fmt.Errorf("blowfish encrypt: size %d is not a multiple of %d", size, BlowfishBlockSize)
	}
	if offset+size > len(data) {
		return fmt.Errorf("blowfish encrypt: offset %d + size %d exceeds data length %d", offset, size, len(data))
	}
	for i := offset; i < offset+size; i += BlowfishBlockSize {
		b.cipher.Encrypt(data[i:i+BlowfishBlockSize], data[i:i+BlowfishBlockSize])
	}
	return nil
}

// Decrypt decrypts data in-place using Blowfish ECB mode.
// size must be a multiple of BlowfishBlockSize.
func (b *BlowfishCipher) Decrypt(data []byte, offset, size int) error {
	if size%BlowfishBlockSize != 0 {
		return fmt.Errorf("blowfish decrypt: size %d is not a multiple of %d", size, BlowfishBlockSize)
	}
	if offset+size > len(data) {
		return fmt.Errorf("blowfish decrypt: offset %d + size %d exceeds data length %d", offset, size, len(data))
	}
	for i := offset; i < offset+size; i += BlowfishBlockSize {
		b.cipher.Decrypt(data[i:i+BlowfishBlockSize], data[i:i+BlowfishBlockSize])
	}
	return nil
}

// AppendChecksum calculates and appends a 32-bit XOR checksum to the data.
// The data must have at least 4 extra bytes at the end for the checksum.
// size must be a multiple of 4.
func AppendChecksum(data []byte, offset, size int) {
	var checksum uint32
	for i := offset; i < offset+size-PacketChecksumSize; i += PacketChecksumSize {
		checksum ^= binary.LittleEndian.Uint32(data[i:])
	}
	binary.LittleEndian.PutUint32(data[offset+size-PacketChecksumSize:], checksum)
}

// VerifyChecksum verifies that XOR of all 32-bit words in the range is zero.
func VerifyChecksum(data []byte, offset, size int) bool {
	if size%PacketChecksumSize != 0 || size <= PacketChecksumSize {
		return false
	}
	var checksum uint32
	for i := offset; i < offset+size; i += PacketChecksumSize {
		checksum ^= binary.LittleEndian.Uint32(data[i:])
	}
	return checksum == 0
}
