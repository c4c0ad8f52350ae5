package protocol

// SecurityRequest is the server->client security challenge (spec.md §6, §4.4).
type SecurityRequest struct {
	GreenSeed uint32
	DoorSeed  uint32
	Timestamp uint32
	Key       uint32
}

func EncodeSecurityRequest(p SecurityRequest) []byte {
	w := NewWriter(16)
	w.U32(p.GreenSeed)
	w.U32(p.DoorSeed)
	w.U32(p.Timestamp)
	w.U32(p.Key)
	return w.Bytes()
}

func DecodeSecurityRequest(buf []byte) (SecurityRequest, error) {
	r := NewReader(buf)
	var p SecurityRequest
	var err error
	if p.GreenSeed, err = r.U32(); err != nil {
		return p, err
	}
	if p.DoorSeed, err = r.U32(); err != nil {
		return p, err
	}
	if p.Timestamp, err = r.U32(); err != nil {
		return p, err
	}
	if p.Key, err = r.U32(); err != nil {
		return p, err
	}
	return p, nil
}

// SecurityResponse is the client->server reply to a SecurityRequest.
type SecurityResponse struct {
	WeaponCount      uint32
	S2CSlowTotal     uint32
	S2CFastTotal     uint32
	S2CSlowCurrent   uint32
	S2CFastCurrent   uint32
	Unknown1         uint32
	LastPing         uint32
	AveragePing      uint32
	LowestPing       uint32
	HighestPing      uint32
	MapChecksum      uint32
	ExeChecksum      uint32
	SettingChecksum  uint32
}

const securityResponseFieldCount = 13
const securityResponseWireSize = securityResponseFieldCount * 4

func EncodeSecurityResponse(p SecurityResponse) []byte {
	w := NewWriter(securityResponseWireSize)
	w.U32(p.WeaponCount)
	w.U32(p.S2CSlowTotal)
	w.U32(p.S2CFastTotal)
	w.U32(p.S2CSlowCurrent)
	w.U32(p.S2CFastCurrent)
	w.U32(p.Unknown1)
	w.U32(p.LastPing)
	w.U32(p.AveragePing)
	w.U32(p.LowestPing)
	w.U32(p.HighestPing)
	w.U32(p.MapChecksum)
	w.U32(p.ExeChecksum)
	w.U32(p.SettingChecksum)
	return w.Bytes()
}

func DecodeSecurityResponse(buf []byte) (SecurityResponse, error) {
	r := NewReader(buf)
	var p SecurityResponse
	fields := []*uint32{
		&p.WeaponCount, &p.S2CSlowTotal, &p.S2CFastTotal, &p.S2CSlowCurrent,
		&p.S2CFastCurrent, &p.Unknown1, &p.LastPing, &p.AveragePing,
		&p.LowestPing, &p.HighestPing, &p.MapChecksum, &p.ExeChecksum,
		&p.SettingChecksum,
	}
	for _, f := range fields {
		v, err := r.U32()
		if err != nil {
			return p, err
		}
		*f = v
	}
	return p, nil
}
