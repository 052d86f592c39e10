package topiclog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)
//
// The header is 8 bytes of big-endian unix-nano timestamp followed by the
// payer identity bytes.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeHeader(tsNanos uint64, payer string) []byte {
	h := make([]byte, 8, 8+len(payer))
	binary.BigEndian.PutUint64(h, tsNanos)
	return append(h, payer...)
}

func decodeHeader(h []byte) (tsNanos uint64, payer string, ok bool) {
	if len(h) < 8 {
		return 0, "", false
	}
	return binary.BigEndian.Uint64(h[:8]), string(h[8:]), true
}

func encodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

type decoded struct {
	Header  []byte
	Payload []byte
}

func decodeRecord(b []byte) (decoded, bool) {
	if len(b) < 1+4 {
		return decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return decoded{}, false
	}
	if int(n)+int(hlen)+4 > len(b) {
		return decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return decoded{}, false
	}
	return decoded{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, true
}
