package billing

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/opensubspace/zonecore/internal/crypto"
)

// LinkCipher is the pluggable encryption layer for the billing link.
// The default implementation wraps golang.org/x/crypto/blowfish via
// internal/crypto.BlowfishCipher, the same cipher the teacher uses for
// its GS<->LS link.
type LinkCipher interface {
	Encrypt(data []byte, offset, size int) error
	Decrypt(data []byte, offset, size int) error
}

// NewDefaultLinkCipher builds the Blowfish-ECB default LinkCipher from
// a session key, falling back to crypto.DefaultLinkKey when key is empty.
func NewDefaultLinkCipher(key []byte) (LinkCipher, error) {
	if len(key) == 0 {
		key = crypto.DefaultLinkKey
	}
	return crypto.NewBlowfishCipher(key)
}

// TCPDialer dials a reliable TCP connection to the biller and wraps it
// in the length-prefixed, checksummed, Blowfish-encrypted framing the
// teacher's GS<->LS link uses (internal/testutil/gsclient.go).
type TCPDialer struct {
	Timeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, host string, port int) (LinkConn, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing biller at %s: %w", addr, err)
	}
	cipher, err := NewDefaultLinkCipher(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating link cipher: %w", err)
	}
	return &CipherConn{conn: conn, cipher: cipher, timeout: timeout}, nil
}

// CipherConn implements LinkConn over a net.Conn, framing each packet
// as {totalLen(u16 LE), ciphertext}. The plaintext payload is
// zero-padded to a multiple of the cipher's block size and carries a
// trailing 4-byte XOR checksum, mirroring the teacher's
// SendBlowFishKey/SendGameServerAuth framing.
type CipherConn struct {
	conn    net.Conn
	cipher  LinkCipher
	timeout time.Duration
}

func (c *CipherConn) Send(data []byte) error {
	padded := len(data) + crypto.PacketChecksumSize
	if rem := padded % crypto.BlowfishBlockSize; rem != 0 {
		padded += crypto.BlowfishBlockSize - rem
	}

	buf := make([]byte, padded)
	copy(buf, data)
	crypto.AppendChecksum(buf, 0, padded)

	if err := c.cipher.Encrypt(buf, 0, padded); err != nil {
		return fmt.Errorf("encrypting billing packet: %w", err)
	}

	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(2+padded))

	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	if _, err := c.conn.Write(header[:]); err != nil {
		return fmt.Errorf("writing billing packet header: %w", err)
	}
	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("writing billing packet body: %w", err)
	}
	return nil
}

func (c *CipherConn) Recv() ([]byte, error) {
	var header [2]byte
	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, fmt.Errorf("reading billing packet header: %w", err)
	}
	total := int(binary.LittleEndian.Uint16(header[:]))
	if total < 2 {
		return nil, fmt.Errorf("invalid billing packet length %d", total)
	}
	body := make([]byte, total-2)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("reading billing packet body: %w", err)
	}
	if err := c.cipher.Decrypt(body, 0, len(body)); err != nil {
		return nil, fmt.Errorf("decrypting billing packet: %w", err)
	}
	if !crypto.VerifyChecksum(body, 0, len(body)) {
		return nil, fmt.Errorf("billing packet checksum mismatch")
	}
	return body[:len(body)-crypto.PacketChecksumSize], nil
}

func (c *CipherConn) Close() error {
	return c.conn.Close()
}
