package protocol

// Billing uplink (server -> biller) opcodes (spec.md §6).
const (
	BillingOpServerConnect     byte = 0x01
	BillingOpLogin             byte = 0x02
	BillingOpLogoff            byte = 0x03
	BillingOpUserCommand       byte = 0x04
	BillingOpUserChannelChat   byte = 0x05
	BillingOpUserPrivateChat   byte = 0x06
	BillingOpUserDemographics  byte = 0x07
	BillingOpUserBanner        byte = 0x08
	BillingOpServerCapabilities byte = 0x09
	BillingOpPing              byte = 0x0A
	BillingOpServerDisconnect  byte = 0x0B
)

// Billing downlink (biller -> server) opcodes.
const (
	BillingOpUserLogin                byte = 0x81
	BillingOpUserPrivateChatDown      byte = 0x82
	BillingOpUserKickout              byte = 0x83
	BillingOpUserCommandChat          byte = 0x84
	BillingOpUserChannelChatDown      byte = 0x85
	BillingOpScoreReset               byte = 0x86
	BillingOpUserPacket                byte = 0x87
	BillingOpBillingIdentity          byte = 0x88
	BillingOpUserMulticastChannelChat byte = 0x89
)

const (
	billingNameFieldSize     = 24
	billingPasswordFieldSize = 32
	billingSquadFieldSize    = 24
)

// ServerLoginRequest is the uplink Login packet: a player's credentials
// plus connection metadata, forwarded to the biller by the billing
// client gatekeeper (spec.md §4.7).
type ServerLoginRequest struct {
	Name        string
	Password    string
	IP          uint32
	MacID       uint32
	TimezoneBias int32
	ClientVersion uint16
	Extra       []byte // client-specific trailing bytes, already capped by the caller
}

func EncodeServerLoginRequest(p ServerLoginRequest) []byte {
	w := NewWriter(1 + billingNameFieldSize + billingPasswordFieldSize + 4 + 4 + 4 + 2 + len(p.Extra))
	w.U8(BillingOpLogin)
	w.FixedString(p.Name, billingNameFieldSize)
	w.FixedString(p.Password, billingPasswordFieldSize)
	w.U32(p.IP)
	w.U32(p.MacID)
	w.I32(p.TimezoneBias)
	w.U16(p.ClientVersion)
	w.Raw(p.Extra)
	return w.Bytes()
}

func DecodeServerLoginRequest(buf []byte) (ServerLoginRequest, error) {
	r := NewReader(buf)
	var p ServerLoginRequest
	if _, err := r.U8(); err != nil {
		return p, err
	}
	var err error
	if p.Name, err = r.FixedString(billingNameFieldSize); err != nil {
		return p, err
	}
	if p.Password, err = r.FixedString(billingPasswordFieldSize); err != nil {
		return p, err
	}
	if p.IP, err = r.U32(); err != nil {
		return p, err
	}
	if p.MacID, err = r.U32(); err != nil {
		return p, err
	}
	if p.TimezoneBias, err = r.I32(); err != nil {
		return p, err
	}
	if p.ClientVersion, err = r.U16(); err != nil {
		return p, err
	}
	if r.Remaining() > 0 {
		p.Extra, err = r.Raw(r.Remaining())
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

// AuthResultCode is the mapped meaning of a UserLogin response's result
// byte (spec.md §4.7).
type AuthResultCode uint8

const (
	AuthResultOK AuthResultCode = iota
	AuthResultNewName
	AuthResultBadPassword
	AuthResultLockedOut
	AuthResultNoNewConn
	AuthResultBadName
	AuthResultServerBusy
	AuthResultAskDemographics
	AuthResultNoPermission
)

// MapAuthResultCode maps the biller's raw result byte to AuthResultCode,
// defaulting unknown values to NoPermission per spec.md §4.7.
func MapAuthResultCode(raw uint8) AuthResultCode {
	switch raw {
	case 0:
		return AuthResultOK
	case 1:
		return AuthResultNewName
	case 2:
		return AuthResultBadPassword
	case 3:
		return AuthResultLockedOut
	case 4:
		return AuthResultNoNewConn
	case 5:
		return AuthResultBadName
	case 6:
		return AuthResultServerBusy
	case 7:
		return AuthResultAskDemographics
	default:
		return AuthResultNoPermission
	}
}

// UserLoginResponse is the downlink auth-completion packet.
type UserLoginResponse struct {
	Result        AuthResultCode
	UserID        uint32
	FirstLogin    uint32
	Usage         uint32
	Name          string
	Squad         string
	Banner        []byte
	HasScoreBlock bool
	Score         PlayerScoreBlock
}

// PlayerScoreBlock mirrors spec.md §3's snapshot fields persisted
// between arena-leave and logoff/score-reset.
type PlayerScoreBlock struct {
	Kills      int32
	Deaths     int32
	Flags      int32
	KillPoints int32
	FlagPoints int32
}

func EncodeScoreBlock(s PlayerScoreBlock) []byte {
	w := NewWriter(20)
	w.I32(s.Kills)
	w.I32(s.Deaths)
	w.I32(s.Flags)
	w.I32(s.KillPoints)
	w.I32(s.FlagPoints)
	return w.Bytes()
}

func DecodeScoreBlock(buf []byte) (PlayerScoreBlock, error) {
	r := NewReader(buf)
	var s PlayerScoreBlock
	var err error
	if s.Kills, err = r.I32(); err != nil {
		return s, err
	}
	if s.Deaths, err = r.I32(); err != nil {
		return s, err
	}
	if s.Flags, err = r.I32(); err != nil {
		return s, err
	}
	if s.KillPoints, err = r.I32(); err != nil {
		return s, err
	}
	if s.FlagPoints, err = r.I32(); err != nil {
		return s, err
	}
	return s, nil
}

// ServerLogoffRequest is the uplink Logoff packet, optionally carrying
// a saved score block (spec.md §4.7 "Logoff").
type ServerLogoffRequest struct {
	UserID     uint32
	HasScore   bool
	Score      PlayerScoreBlock
}

func EncodeServerLogoffRequest(p ServerLogoffRequest) []byte {
	w := NewWriter(1 + 4 + 1 + 20)
	w.U8(BillingOpLogoff)
	w.U32(p.UserID)
	if p.HasScore {
		w.U8(1)
		w.Raw(EncodeScoreBlock(p.Score))
	} else {
		w.U8(0)
	}
	return w.Bytes()
}

const billingBannerFieldSize = 96

// DecodeUserLoginResponse decodes the biller's auth-completion packet
// (opcode already stripped by the caller's dispatcher).
func DecodeUserLoginResponse(buf []byte) (UserLoginResponse, error) {
	r := NewReader(buf)
	var p UserLoginResponse
	raw, err := r.U8()
	if err != nil {
		return p, err
	}
	p.Result = MapAuthResultCode(raw)
	if p.UserID, err = r.U32(); err != nil {
		return p, err
	}
	if p.FirstLogin, err = r.U32(); err != nil {
		return p, err
	}
	if p.Usage, err = r.U32(); err != nil {
		return p, err
	}
	if p.Name, err = r.FixedString(billingNameFieldSize); err != nil {
		return p, err
	}
	if p.Squad, err = r.FixedString(billingSquadFieldSize); err != nil {
		return p, err
	}
	hasBanner, err := r.U8()
	if err != nil {
		return p, err
	}
	if hasBanner != 0 {
		if p.Banner, err = r.Raw(billingBannerFieldSize); err != nil {
			return p, err
		}
	}
	hasScore, err := r.U8()
	if err != nil {
		return p, err
	}
	if hasScore != 0 {
		scoreBuf, err := r.Raw(20)
		if err != nil {
			return p, err
		}
		if p.Score, err = DecodeScoreBlock(scoreBuf); err != nil {
			return p, err
		}
		p.HasScoreBlock = true
	}
	return p, nil
}

// EncodeSimpleBillingOp encodes a single-opcode-byte uplink packet, used
// for Ping, ServerConnect, and ServerDisconnect.
func EncodeSimpleBillingOp(op byte) []byte {
	w := NewWriter(1)
	w.U8(op)
	return w.Bytes()
}

// ScoreResetNotice is the downlink ScoreReset packet: the biller demands
// the named arena group's interval scores be reset (spec.md §4.7
// "Score-reset").
type ScoreResetNotice struct {
	ArenaGroup string
}

const billingArenaGroupFieldSize = 32

func DecodeScoreResetNotice(buf []byte) (ScoreResetNotice, error) {
	r := NewReader(buf)
	var n ScoreResetNotice
	var err error
	if n.ArenaGroup, err = r.FixedString(billingArenaGroupFieldSize); err != nil {
		return n, err
	}
	return n, nil
}

// UserKickoutNotice is the downlink UserKickout packet.
type UserKickoutNotice struct {
	UserID uint32
	Reason string
}

const billingReasonFieldSize = 64

func DecodeUserKickoutNotice(buf []byte) (UserKickoutNotice, error) {
	r := NewReader(buf)
	var n UserKickoutNotice
	var err error
	if n.UserID, err = r.U32(); err != nil {
		return n, err
	}
	if n.Reason, err = r.FixedString(billingReasonFieldSize); err != nil {
		return n, err
	}
	return n, nil
}

// ChatRelayNotice covers the three downlink chat shapes that differ only
// in routing (private, channel, multicast-channel): UserPrivateChat,
// UserChannelChat, and UserMulticastChannelChat all carry a target and a
// NUL-terminated message (spec.md §6).
type ChatRelayNotice struct {
	TargetUserID uint32
	Target       string
	Message      string
}

const (
	billingTargetFieldSize  = 24
	billingMessageFieldSize = 250
)

func DecodeChatRelayNotice(buf []byte) (ChatRelayNotice, error) {
	r := NewReader(buf)
	var n ChatRelayNotice
	var err error
	if n.TargetUserID, err = r.U32(); err != nil {
		return n, err
	}
	if n.Target, err = r.FixedString(billingTargetFieldSize); err != nil {
		return n, err
	}
	if n.Message, err = r.FixedString(billingMessageFieldSize); err != nil {
		return n, err
	}
	return n, nil
}

func EncodeChatRelayNotice(op byte, n ChatRelayNotice) []byte {
	w := NewWriter(1 + 4 + billingTargetFieldSize + billingMessageFieldSize)
	w.U8(op)
	w.U32(n.TargetUserID)
	w.FixedString(n.Target, billingTargetFieldSize)
	w.FixedString(n.Message, billingMessageFieldSize)
	return w.Bytes()
}

// UserCommandRequest is the uplink "?command" forward.
type UserCommandRequest struct {
	UserID uint32
	Text   string
}

const billingCommandFieldSize = 250

func EncodeUserCommandRequest(p UserCommandRequest) []byte {
	w := NewWriter(1 + 4 + billingCommandFieldSize)
	w.U8(BillingOpUserCommand)
	w.U32(p.UserID)
	w.FixedString(p.Text, billingCommandFieldSize)
	return w.Bytes()
}

// BillingIdentityNotice is the downlink opaque identity buffer used by
// `?userdbadm identity` (spec.md §6 CLI surface).
type BillingIdentityNotice struct {
	Data []byte
}

func DecodeBillingIdentityNotice(buf []byte) (BillingIdentityNotice, error) {
	r := NewReader(buf)
	data, err := r.Raw(r.Remaining())
	if err != nil {
		return BillingIdentityNotice{}, err
	}
	return BillingIdentityNotice{Data: data}, nil
}
