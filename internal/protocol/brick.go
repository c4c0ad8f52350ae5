package protocol

// BrickRecord is one entry in a server->client brick packet (spec.md §6).
type BrickRecord struct {
	X1        int16
	Y1        int16
	X2        int16
	Y2        int16
	Freq      int16
	BrickID   uint16
	StartTime uint32
}

const brickRecordWireSize = 2 + 2 + 2 + 2 + 2 + 2 + 4

// EncodeBrickPacket encodes a type byte followed by each record.
func EncodeBrickPacket(packetType byte, records []BrickRecord) []byte {
	w := NewWriter(1 + len(records)*brickRecordWireSize)
	w.U8(packetType)
	for _, rec := range records {
		w.I16(rec.X1)
		w.I16(rec.Y1)
		w.I16(rec.X2)
		w.I16(rec.Y2)
		w.I16(rec.Freq)
		w.U16(rec.BrickID)
		w.U32(rec.StartTime)
	}
	return w.Bytes()
}

// DecodeBrickPacket parses a type byte and its trailing brick records.
func DecodeBrickPacket(buf []byte) (byte, []BrickRecord, error) {
	r := NewReader(buf)
	packetType, err := r.U8()
	if err != nil {
		return 0, nil, err
	}
	var records []BrickRecord
	for r.Remaining() >= brickRecordWireSize {
		var rec BrickRecord
		if rec.X1, err = r.I16(); err != nil {
			return 0, nil, err
		}
		if rec.Y1, err = r.I16(); err != nil {
			return 0, nil, err
		}
		if rec.X2, err = r.I16(); err != nil {
			return 0, nil, err
		}
		if rec.Y2, err = r.I16(); err != nil {
			return 0, nil, err
		}
		if rec.Freq, err = r.I16(); err != nil {
			return 0, nil, err
		}
		if rec.BrickID, err = r.U16(); err != nil {
			return 0, nil, err
		}
		if rec.StartTime, err = r.U32(); err != nil {
			return 0, nil, err
		}
		records = append(records, rec)
	}
	return packetType, records, nil
}

// MaxBrickRecordsPerPacket returns how many records fit a packet of the
// given maximum size after a reliable header and the type byte, per
// spec.md §4.3.
func MaxBrickRecordsPerPacket(maxPacket, reliableHeaderSize int) int {
	avail := maxPacket - reliableHeaderSize - 1
	if avail <= 0 {
		return 0
	}
	return avail / brickRecordWireSize
}
