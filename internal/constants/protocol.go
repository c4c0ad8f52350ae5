// Package constants holds protocol-level and subsystem-level constants
// shared across the zone core packages: wire field sizes, packet type
// bytes, and tunable limits that are not themselves per-arena config.
package constants

// Packet framing constants shared by every wire struct in internal/protocol.
const (
	// PacketChecksumSize is the XOR checksum size in bytes (32-bit).
	PacketChecksumSize = 4

	// PacketPaddingAlign is the Blowfish block alignment for the billing link.
	PacketPaddingAlign = 8
)

// Ball subsystem constants (spec.md §3, §4.2).
const (
	// MaxBalls is the maximum number of balls tracked per arena.
	MaxBalls = 8

	// BallBroadcastGranularityMillis is the mainloop timer tick for ball broadcasts.
	BallBroadcastGranularityMillis = 250
)

// Brick subsystem constants (spec.md §4.3).
const (
	// MaxActiveBricks caps the FIFO brick queue per arena.
	MaxActiveBricks = 256

	// BrickRecordSize is the encoded size of one brick record on the wire:
	// x1,y1,x2,y2,freq (int16 each) + brickId (uint16) + startTime (uint32).
	BrickRecordSize = 2 + 2 + 2 + 2 + 2 + 2 + 4
)

// Asset streamer constants (spec.md §4.5).
const (
	// AssetHeaderSize is the 1 type byte + 16 NUL-padded filename bytes prelude.
	AssetHeaderSize = 17

	// AssetFilenameFieldSize is the filename field size within the header
	// (16 bytes, trailing NUL required).
	AssetFilenameFieldSize = 16

	// MaxAssetFilenameEncodedLen is the maximum encoded filename length
	// before the trailing NUL that still fits the 16-byte field.
	MaxAssetFilenameEncodedLen = 15

	// AssetWarnSizeBytes is the compressed-size warning threshold (256 KiB).
	AssetWarnSizeBytes = 256 * 1024

	// EmergencyMapCRC32 is the known CRC-32 of the built-in emergency map.
	EmergencyMapCRC32 = 0x5643ef8a

	// EmergencyMapSize is the size in bytes of the built-in emergency map.
	EmergencyMapSize = 29

	// NewsReloadMaxRetries / NewsReloadRetryDelayMillis bound the
	// temporarily-locked-file retry loop for news.txt reloads.
	NewsReloadMaxRetries       = 30
	NewsReloadRetryDelayMillis = 100
)

// Wire packet type bytes (spec.md §6).
const (
	// PacketTypeIncomingFile marks both a news blob and a map data chunk.
	PacketTypeIncomingFile byte = 0x10

	// PacketTypeMapFilenameAnnounce lists map/LVZ filenames and CRCs.
	PacketTypeMapFilenameAnnounce byte = 0x29

	// PacketTypeMapData streams compressed map/LVZ payload bytes.
	PacketTypeMapData byte = 0x2A
)

// File transfer constants (spec.md §4.6).
const (
	// MaxTransferSize is INT32_MAX - AssetHeaderSize, the largest download
	// the sized-send framing can address.
	MaxTransferSize = int64(1<<31 - 1 - AssetHeaderSize)

	// UploadTempPrefix names staged uploads under the configured tmp dir.
	UploadTempPrefix = "FileTransfer-"
)

// Config-authorization constants (spec.md §4.8).
const (
	// ConfigAuthReloadMaxRetries / ConfigAuthReloadRetryDelayMillis bound
	// the CRC+parse retry loop for the restricted-setting files.
	ConfigAuthReloadMaxRetries       = 10
	ConfigAuthReloadRetryDelayMillis = 1000
)

// Billing client constants (spec.md §4.7).
const (
	// DefaultMaxPendingAuths / DefaultMaxInterruptedAuths are the historical
	// hard-coded caps from the source; SPEC_FULL.md promotes them to config
	// (Open Question 4) with these as defaults.
	DefaultMaxPendingAuths     = 15
	DefaultMaxInterruptedAuths = 20

	// InterruptedAuthDecaySeconds halves the interrupted-auth counter.
	InterruptedAuthDecaySeconds = 10

	// BillingKeepaliveIntervalSeconds is the Ping cadence while LoggedIn.
	BillingKeepaliveIntervalSeconds = 60

	// WaitLoginTimeoutSeconds bounds the WaitLogin -> LoggedIn transition.
	WaitLoginTimeoutSeconds = 5
)

// Security/seed cycle constants (spec.md §4.4).
const (
	SecuritySwitchIntervalSeconds = 60
	SecurityCheckDelaySeconds     = 15
	ScrtyTableEntries             = 1000
)
