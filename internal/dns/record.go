package dns

import (
	"encoding/binary"
	"fmt"
)

// ResourceRecord represents a single answer record (RFC 1035 Section 4.1.3).
//
// The only record this server ever produces is an A record whose owner name
// is the raw question name and whose RDATA is the client's IPv4 address.
type ResourceRecord struct {
	RawName  []byte // Owner name, copied verbatim from the question
	Name     string // Decoded owner name, filled only when parsing
	Type     uint16
	Class    uint16
	TTL      uint32
	RDLength uint16
	RData    []byte
}

// ParseResourceRecord parses one record at *off, advancing past it.
// The server never decodes records; this exists for the dnsquery client
// and tests that read replies back. Compression pointers are not followed.
func ParseResourceRecord(msg []byte, off *int) (ResourceRecord, error) {
	raw, name, err := parseName(msg, off)
	if err != nil {
		return ResourceRecord{}, err
	}

	if *off+10 > len(msg) {
		return ResourceRecord{}, fmt.Errorf("%w: unexpected EOF while reading record fields", ErrTruncated)
	}
	rr := ResourceRecord{
		RawName:  raw,
		Name:     name,
		Type:     binary.BigEndian.Uint16(msg[*off : *off+2]),
		Class:    binary.BigEndian.Uint16(msg[*off+2 : *off+4]),
		TTL:      binary.BigEndian.Uint32(msg[*off+4 : *off+8]),
		RDLength: binary.BigEndian.Uint16(msg[*off+8 : *off+10]),
	}
	*off += 10

	if *off+int(rr.RDLength) > len(msg) {
		return ResourceRecord{}, fmt.Errorf("%w: unexpected EOF while reading %d bytes of rdata", ErrTruncated, rr.RDLength)
	}
	rr.RData = make([]byte, rr.RDLength)
	copy(rr.RData, msg[*off:*off+int(rr.RDLength)])
	*off += int(rr.RDLength)
	return rr, nil
}

// Marshal serializes the record to wire format: owner name bytes, then
// type(16), class(16), ttl(32), rdlength(16), and rdlength bytes of rdata,
// all big-endian.
func (rr ResourceRecord) Marshal() ([]byte, error) {
	if int(rr.RDLength) != len(rr.RData) {
		return nil, fmt.Errorf("dns: rdlength %d does not match %d bytes of rdata", rr.RDLength, len(rr.RData))
	}
	out := make([]byte, 0, len(rr.RawName)+10+len(rr.RData))
	out = append(out, rr.RawName...)
	var fixed [10]byte
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], rr.RDLength)
	out = append(out, fixed[:]...)
	out = append(out, rr.RData...)
	return out, nil
}
