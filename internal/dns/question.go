package dns

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Question represents a DNS question section entry (RFC 1035 Section 4.1.2).
//
// RawName preserves the exact owner-name bytes as consumed from the wire
// (length bytes, labels, and the zero terminator). Answer records reuse
// these bytes verbatim, so a response never has to re-encode the name and
// the owner name always matches what the client sent, byte for byte.
type Question struct {
	RawName []byte // Wire-format name exactly as received
	Name    string // Decoded dot-joined labels, trailing dot included
	Type    uint16
	Class   uint16
}

// ParseQuestion parses a question from the message at the given offset.
// It advances *off past the parsed question on success.
//
// The name is read as a plain sequence of length-prefixed labels terminated
// by a zero length byte. Compression pointers are not followed: every
// nonzero length byte is taken literally, which matches what real stub
// resolvers put in the question section of a query.
func ParseQuestion(msg []byte, off *int) (Question, error) {
	raw, name, err := parseName(msg, off)
	if err != nil {
		return Question{}, err
	}

	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: unexpected EOF while reading question type/class", ErrTruncated)
	}
	q := Question{
		RawName: raw,
		Name:    name,
		Type:    binary.BigEndian.Uint16(msg[*off : *off+2]),
		Class:   binary.BigEndian.Uint16(msg[*off+2 : *off+4]),
	}
	*off += 4
	return q, nil
}

// parseName walks the length-prefixed labels at *off and returns both the
// exact wire bytes consumed and the decoded dot-joined form.
func parseName(msg []byte, off *int) (raw []byte, decoded string, err error) {
	start := *off
	var name strings.Builder
	for {
		if *off >= len(msg) {
			return nil, "", fmt.Errorf("%w: unexpected EOF while reading label length", ErrTruncated)
		}
		labelLen := int(msg[*off])
		*off++
		if labelLen == 0 {
			break
		}
		if *off+labelLen > len(msg) {
			return nil, "", fmt.Errorf("%w: unexpected EOF while reading %d-byte label", ErrTruncated, labelLen)
		}
		name.Write(msg[*off : *off+labelLen])
		name.WriteByte('.')
		*off += labelLen
	}

	raw = make([]byte, *off-start)
	copy(raw, msg[start:*off])
	return raw, name.String(), nil
}

// Marshal serializes the question to wire format. Used by the dnsquery
// client and tests to build queries; the server never encodes questions.
func (q Question) Marshal() ([]byte, error) {
	name := q.RawName
	if name == nil {
		encoded, err := EncodeName(q.Name)
		if err != nil {
			return nil, err
		}
		name = encoded
	}
	b := make([]byte, 0, len(name)+4)
	b = append(b, name...)
	var fixed [4]byte
	binary.BigEndian.PutUint16(fixed[0:2], q.Type)
	binary.BigEndian.PutUint16(fixed[2:4], q.Class)
	return append(b, fixed[:]...), nil
}

// EncodeName encodes a domain name to DNS wire format (RFC 1035 Section 3.1):
// a sequence of length-prefixed labels terminated by a zero-length label.
//
// Example: "my.ip4.live" encodes as [2]my[3]ip4[4]live[0].
//
// A trailing dot is accepted and ignored. Labels are limited to 63 bytes
// and the encoded name to 255 bytes.
func EncodeName(domain string) ([]byte, error) {
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" {
		return []byte{0}, nil // root
	}
	out := make([]byte, 0, len(domain)+2)
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return nil, fmt.Errorf("dns: invalid domain name (empty label): %q", domain)
		}
		if len(label) > 63 {
			return nil, fmt.Errorf("dns: label too long (%d > 63): %q", len(label), label)
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	out = append(out, 0)
	if len(out) > 255 {
		return nil, fmt.Errorf("dns: encoded domain name too long (%d > 255)", len(out))
	}
	return out, nil
}
