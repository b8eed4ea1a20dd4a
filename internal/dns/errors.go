// Package dns implements the wire-format codec for the checkipdns responder.
//
// The codec covers exactly what the service needs: bit-exact decode of the
// 12-byte header and the question section of a query, and encode of a response
// consisting of a header plus at most one A answer record. Names are always
// spelled out in full; message compression (RFC 1035 Section 4.1.4) is never
// emitted and never expected on the query path this server handles.
//
// Error Handling:
//
// Structural corruption (a buffer that ends before a declared field or label)
// is the only failure mode. It is reported as ErrTruncated, wrapped with
// context using fmt.Errorf("...: %w", err). Semantically invalid but
// well-framed queries never fail to decode; classifying them is the
// responder's job.
package dns

import "errors"

// ErrTruncated is the sentinel error for messages that end before a
// fixed-size field or a declared-length label can be fully read.
// Wrap this with fmt.Errorf("context: %w", ErrTruncated) to add context.
var ErrTruncated = errors.New("dns: truncated message")
