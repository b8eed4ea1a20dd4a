package dns

import (
	"encoding/binary"
	"fmt"
)

// Header represents a DNS message header (RFC 1035 Section 4.1.1).
//
// Unlike codecs that keep the 16-bit flags word opaque, every sub-field is
// an explicit struct field so the response policy can inspect and set them
// by name. Marshal and ParseHeader do the bit packing.
type Header struct {
	ID      uint16 // Transaction ID, echoed verbatim in responses
	QR      bool   // false = query, true = response
	Opcode  uint8  // 4-bit operation type, 0 = standard query
	AA      bool   // Authoritative Answer
	TC      bool   // Truncated
	RD      bool   // Recursion Desired
	RA      bool   // Recursion Available
	Z       uint8  // 3-bit reserved field, zero on everything we send
	RCode   uint8  // 4-bit response code
	QDCount uint16 // Question count
	ANCount uint16 // Answer count
	NSCount uint16 // Authority (nameserver) count
	ARCount uint16 // Additional records count
}

// HeaderSize is the fixed size of a DNS header in bytes.
const HeaderSize = 12

// Flags packs the eight flag sub-fields into the wire-format flags word.
func (h Header) Flags() uint16 {
	var f uint16
	if h.QR {
		f |= QRFlag
	}
	f |= (uint16(h.Opcode) << 11) & OpcodeMask
	if h.AA {
		f |= AAFlag
	}
	if h.TC {
		f |= TCFlag
	}
	if h.RD {
		f |= RDFlag
	}
	if h.RA {
		f |= RAFlag
	}
	f |= (uint16(h.Z) << 4) & ZMask
	f |= uint16(h.RCode) & RCodeMask
	return f
}

// Marshal serializes the header to wire format (big-endian, 12 bytes).
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(b[0:2], h.ID)
	binary.BigEndian.PutUint16(b[2:4], h.Flags())
	binary.BigEndian.PutUint16(b[4:6], h.QDCount)
	binary.BigEndian.PutUint16(b[6:8], h.ANCount)
	binary.BigEndian.PutUint16(b[8:10], h.NSCount)
	binary.BigEndian.PutUint16(b[10:12], h.ARCount)
	return b
}

// ParseHeader parses a DNS header from the message at the given offset.
// It advances *off by 12 bytes (the header size) on success.
func ParseHeader(msg []byte, off *int) (Header, error) {
	if *off+HeaderSize > len(msg) {
		return Header{}, fmt.Errorf("%w: unexpected EOF while reading DNS header", ErrTruncated)
	}
	flags := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	h := Header{
		ID:      binary.BigEndian.Uint16(msg[*off : *off+2]),
		QR:      flags&QRFlag != 0,
		Opcode:  uint8((flags & OpcodeMask) >> 11),
		AA:      flags&AAFlag != 0,
		TC:      flags&TCFlag != 0,
		RD:      flags&RDFlag != 0,
		RA:      flags&RAFlag != 0,
		Z:       uint8((flags & ZMask) >> 4),
		RCode:   uint8(flags & RCodeMask),
		QDCount: binary.BigEndian.Uint16(msg[*off+4 : *off+6]),
		ANCount: binary.BigEndian.Uint16(msg[*off+6 : *off+8]),
		NSCount: binary.BigEndian.Uint16(msg[*off+8 : *off+10]),
		ARCount: binary.BigEndian.Uint16(msg[*off+10 : *off+12]),
	}
	*off += HeaderSize
	return h, nil
}
