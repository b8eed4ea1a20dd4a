// Package responder maps decoded queries to one of the fixed response
// variants and builds the reply.
//
// The policy is a pure function with no state between calls: every
// well-framed query, however semantically broken, lands on exactly one
// variant. Only framing errors (a truncated buffer) propagate as errors,
// in which case the caller must drop the datagram without replying.
package responder

import (
	"fmt"
	"net/netip"

	"github.com/ip4live/checkipdns/internal/dns"
)

// Variant identifies which of the fixed response shapes a query maps to.
type Variant uint8

const (
	// VariantAnswer is the authoritative A answer carrying the client IP.
	VariantAnswer Variant = iota
	// VariantNotImplemented covers responses, non-standard opcodes,
	// question-less queries, and non-IN classes. Carries rcode 0: the
	// service this replaces answered these with NOERROR and clients
	// depend on that, so the shape (no answer) is the real signal.
	VariantNotImplemented
	// VariantFormatError answers queries that arrive with TC set.
	VariantFormatError
	// VariantNoRecords is an empty NOERROR for types other than A/ANY.
	VariantNoRecords
	// VariantRefused answers questions for any name but the service zone.
	VariantRefused
)

// String returns a short label for logs and the query log.
func (v Variant) String() string {
	switch v {
	case VariantAnswer:
		return "answer"
	case VariantNotImplemented:
		return "not-implemented"
	case VariantFormatError:
		return "format-error"
	case VariantNoRecords:
		return "no-records"
	case VariantRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// RCode returns the response code the variant carries on the wire.
func (v Variant) RCode() uint8 {
	switch v {
	case VariantFormatError:
		return dns.RCodeFormErr
	case VariantRefused:
		return dns.RCodeRefused
	default:
		return dns.RCodeNoError
	}
}

// rule is one row of the decision table: first matching rule wins.
type rule struct {
	match   func(m *dns.Message) bool
	variant Variant
}

// Responder decides and builds responses for a single service zone.
type Responder struct {
	zone  string // fully qualified, trailing dot
	ttl   uint32
	rules []rule
}

// New creates a Responder answering for the given zone name.
// The zone is normalized to carry a trailing dot, matching decoded names.
func New(zone string, ttl uint32) *Responder {
	if zone == "" {
		zone = "my.ip4.live."
	}
	if zone[len(zone)-1] != '.' {
		zone += "."
	}
	r := &Responder{zone: zone, ttl: ttl}

	// Ordered guard chain, evaluated top-down. Rules past the third may
	// index Questions[0]: QDCount >= 1 guarantees at least one decoded
	// question on any message that survived parsing.
	r.rules = []rule{
		{func(m *dns.Message) bool { return m.Header.QR || m.Header.Opcode != 0 }, VariantNotImplemented},
		{func(m *dns.Message) bool { return m.Header.TC }, VariantFormatError},
		{func(m *dns.Message) bool { return m.Header.QDCount < 1 }, VariantNotImplemented},
		{func(m *dns.Message) bool {
			t := m.Questions[0].Type
			return t != dns.TypeA && t != dns.TypeANY
		}, VariantNoRecords},
		{func(m *dns.Message) bool { return m.Questions[0].Class != dns.ClassIN }, VariantNotImplemented},
		{func(m *dns.Message) bool { return m.Questions[0].Name != r.zone }, VariantRefused},
	}
	return r
}

// Zone returns the fully qualified zone name this responder answers for.
func (r *Responder) Zone() string { return r.zone }

// Decide maps a decoded query to its response variant.
func (r *Responder) Decide(m *dns.Message) Variant {
	for _, rule := range r.rules {
		if rule.match(m) {
			return rule.variant
		}
	}
	return VariantAnswer
}

// BuildResponse constructs the response message for the given variant.
//
// Every variant echoes the query's id, opcode, and rd; sets qr, clears
// ra and z, and carries qdcount=0. The answer variant additionally sets
// aa and attaches a single A record whose owner name is the question's
// raw name bytes and whose rdata is the client's IPv4 address.
func (r *Responder) BuildResponse(query *dns.Message, v Variant, client netip.Addr) (dns.Message, error) {
	resp := dns.Message{
		Header: dns.Header{
			ID:     query.Header.ID,
			QR:     true,
			Opcode: query.Header.Opcode,
			RD:     query.Header.RD,
			RCode:  v.RCode(),
		},
	}
	if v != VariantAnswer {
		return resp, nil
	}

	ip := client.Unmap()
	if !ip.Is4() {
		return dns.Message{}, fmt.Errorf("responder: client address %s is not IPv4", client)
	}
	addr := ip.As4()

	resp.Header.AA = true
	resp.Header.ANCount = 1
	resp.Answers = []dns.ResourceRecord{{
		RawName:  query.Questions[0].RawName,
		Type:     dns.TypeA,
		Class:    dns.ClassIN,
		TTL:      r.ttl,
		RDLength: 4,
		RData:    addr[:],
	}}
	return resp, nil
}

// Result holds the outcome of handling one datagram.
type Result struct {
	ResponseBytes []byte      // Wire-format response, ready to send
	Variant       Variant     // Which policy row matched
	Query         dns.Message // The decoded query
}

// Respond decodes a query, decides its variant, and encodes the reply.
// A framing error from the codec propagates; the caller drops the datagram.
func (r *Responder) Respond(req []byte, client netip.Addr) (Result, error) {
	m, err := dns.ParseMessage(req)
	if err != nil {
		return Result{}, err
	}
	v := r.Decide(&m)
	resp, err := r.BuildResponse(&m, v, client)
	if err != nil {
		return Result{}, err
	}
	b, err := resp.Marshal()
	if err != nil {
		return Result{}, err
	}
	return Result{ResponseBytes: b, Variant: v, Query: m}, nil
}

// HandleQuery is the transport-facing entry point: raw request bytes and
// the datagram's source address in, raw response bytes out.
func (r *Responder) HandleQuery(req []byte, client netip.Addr) ([]byte, error) {
	res, err := r.Respond(req, client)
	if err != nil {
		return nil, err
	}
	return res.ResponseBytes, nil
}
