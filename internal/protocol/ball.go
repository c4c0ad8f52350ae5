package protocol

// BallPacket is the server<->client ball state wire struct (spec.md §6).
// For a carried ball Time is 0; an on-map ball carries the tick at
// which it entered map state. CarrierID is -1 when the ball has no
// carrier.
type BallPacket struct {
	Type      byte
	BallID    uint8
	X         int16
	Y         int16
	XSpeed    int16
	YSpeed    int16
	CarrierID int16
	Time      uint32
}

// EncodeBallPacket returns the wire encoding of p.
func EncodeBallPacket(p BallPacket) []byte {
	w := NewWriter(16)
	w.U8(p.Type)
	w.U8(p.BallID)
	w.I16(p.X)
	w.I16(p.Y)
	w.I16(p.XSpeed)
	w.I16(p.YSpeed)
	w.I16(p.CarrierID)
	w.U32(p.Time)
	return w.Bytes()
}

// DecodeBallPacket parses a ball packet from buf.
func DecodeBallPacket(buf []byte) (BallPacket, error) {
	r := NewReader(buf)
	var p BallPacket
	var err error
	if p.Type, err = r.U8(); err != nil {
		return p, err
	}
	if p.BallID, err = r.U8(); err != nil {
		return p, err
	}
	if p.X, err = r.I16(); err != nil {
		return p, err
	}
	if p.Y, err = r.I16(); err != nil {
		return p, err
	}
	if p.XSpeed, err = r.I16(); err != nil {
		return p, err
	}
	if p.YSpeed, err = r.I16(); err != nil {
		return p, err
	}
	if p.CarrierID, err = r.I16(); err != nil {
		return p, err
	}
	if p.Time, err = r.U32(); err != nil {
		return p, err
	}
	return p, nil
}
