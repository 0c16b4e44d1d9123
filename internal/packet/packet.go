package packet

import (
	"encoding/binary"

	"icmp-ping/internal/models"
)

const (
	// TypeEchoRequest is the ICMP type of an Echo Request.
	TypeEchoRequest = 8
	// TypeEchoReply is the ICMP type of an Echo Reply.
	TypeEchoReply = 0
	// HeaderLength is the fixed size of the ICMP echo header.
	HeaderLength = 8
)

// Checksum computes the RFC 792 one's-complement checksum over data: sum all
// big-endian 16-bit words, treating a trailing odd byte as the high byte of a
// final word, fold the carries back into the low 16 bits, and complement.
func Checksum(data []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}

// BuildEchoRequest produces a complete ICMP Echo Request frame: the 8-byte
// header (type=8, code=0) followed by payload, with the checksum computed
// over the whole message. The returned frame is ready to transmit.
func BuildEchoRequest(id, seq uint16, payload []byte) []byte {
	pkt := make([]byte, HeaderLength+len(payload))
	pkt[0] = TypeEchoRequest
	// pkt[1] (code) and pkt[2:4] (checksum placeholder) stay zero
	binary.BigEndian.PutUint16(pkt[4:6], id)
	binary.BigEndian.PutUint16(pkt[6:8], seq)
	copy(pkt[HeaderLength:], payload)

	binary.BigEndian.PutUint16(pkt[2:4], Checksum(pkt))
	return pkt
}

// ParseEchoReply inspects the first n bytes of buf as a possible ICMP Echo
// Reply. A raw ICMP socket may deliver the datagram with a leading IPv4
// header; if so the header is skipped according to its IHL field. Buffers too
// short to carry an ICMP header after that adjustment are noise, not errors:
// the second return value is false and the caller keeps polling.
//
// Type, code, identifier and sequence checks are the caller's concern.
func ParseEchoReply(buf []byte, n int) (models.EchoReply, bool) {
	skip := 0
	if n >= 20 && buf[0]>>4 == 4 {
		skip = int(buf[0]&0x0f) * 4
	}
	if n < skip+HeaderLength {
		return models.EchoReply{}, false
	}
	return models.EchoReply{
		Type:  buf[skip],
		Code:  buf[skip+1],
		ID:    binary.BigEndian.Uint16(buf[skip+4 : skip+6]),
		Seq:   binary.BigEndian.Uint16(buf[skip+6 : skip+8]),
		Bytes: n - skip,
	}, true
}
