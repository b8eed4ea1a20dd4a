package dns

// DNS header flags and masks (RFC 1035 Section 4.1.1)
//
// The header carries a 16-bit flags word with the following layout:
//
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA|   Z    |   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	 15 14 13 12 11 10  9  8  7  6  5  4  3  2  1  0
const (
	QRFlag     uint16 = 0x8000 // Query/Response: 1 = response, 0 = query
	OpcodeMask uint16 = 0x7800 // Bits 14-11: operation type (>> 11 to extract)
	AAFlag     uint16 = 0x0400 // Authoritative Answer
	TCFlag     uint16 = 0x0200 // Truncation: message was truncated
	RDFlag     uint16 = 0x0100 // Recursion Desired
	RAFlag     uint16 = 0x0080 // Recursion Available
	ZMask      uint16 = 0x0070 // Bits 6-4: reserved, zero on every message we send
	RCodeMask  uint16 = 0x000F // Bits 3-0: response code
)

// Record types this server recognizes (RFC 1035 Section 3.2.2/3.2.3).
const (
	TypeA   uint16 = 1   // IPv4 host address
	TypeANY uint16 = 255 // QTYPE *: request for all records
)

// ClassIN is the Internet class (RFC 1035 Section 3.2.4).
const ClassIN uint16 = 1

// Response codes used by the response policy (RFC 1035 Section 4.1.1).
//
// Note RCodeNoError also stands in for "not implemented" responses: the
// service this replaces answered unsupported opcodes and classes with
// rcode 0, and clients in the wild depend on that shape.
const (
	RCodeNoError uint8 = 0 // No error
	RCodeFormErr uint8 = 1 // Format error: query malformed
	RCodeRefused uint8 = 5 // Query refused by policy
)
