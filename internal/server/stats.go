package server

import (
	"sync/atomic"

	"github.com/ip4live/checkipdns/internal/responder"
)

// DNSStats collects query statistics per response variant.
// All methods are safe for concurrent use and nil-receiver safe.
type DNSStats struct {
	queriesTotal   atomic.Uint64
	answered       atomic.Uint64
	refused        atomic.Uint64
	noRecords      atomic.Uint64
	formatError    atomic.Uint64
	notImplemented atomic.Uint64
	dropped        atomic.Uint64
	latencyTotalNs atomic.Uint64
}

// NewDNSStats creates a new statistics collector.
func NewDNSStats() *DNSStats {
	return &DNSStats{}
}

// RecordVariant records one handled query and its policy variant.
func (s *DNSStats) RecordVariant(v responder.Variant) {
	if s == nil {
		return
	}
	s.queriesTotal.Add(1)
	switch v {
	case responder.VariantAnswer:
		s.answered.Add(1)
	case responder.VariantRefused:
		s.refused.Add(1)
	case responder.VariantNoRecords:
		s.noRecords.Add(1)
	case responder.VariantFormatError:
		s.formatError.Add(1)
	case responder.VariantNotImplemented:
		s.notImplemented.Add(1)
	}
}

// RecordDropped records a datagram that could not be decoded and was
// dropped without a reply.
func (s *DNSStats) RecordDropped() {
	if s == nil {
		return
	}
	s.queriesTotal.Add(1)
	s.dropped.Add(1)
}

// RecordLatency records query handling latency in nanoseconds.
func (s *DNSStats) RecordLatency(ns int64) {
	if s == nil || ns <= 0 {
		return
	}
	s.latencyTotalNs.Add(uint64(ns))
}

// DNSStatsSnapshot is a point-in-time snapshot of server statistics.
type DNSStatsSnapshot struct {
	QueriesTotal   uint64
	Answered       uint64
	Refused        uint64
	NoRecords      uint64
	FormatError    uint64
	NotImplemented uint64
	Dropped        uint64
	AvgLatencyMs   float64
}

// Snapshot returns the current counter values.
func (s *DNSStats) Snapshot() DNSStatsSnapshot {
	if s == nil {
		return DNSStatsSnapshot{}
	}
	snap := DNSStatsSnapshot{
		QueriesTotal:   s.queriesTotal.Load(),
		Answered:       s.answered.Load(),
		Refused:        s.refused.Load(),
		NoRecords:      s.noRecords.Load(),
		FormatError:    s.formatError.Load(),
		NotImplemented: s.notImplemented.Load(),
		Dropped:        s.dropped.Load(),
	}
	if handled := snap.QueriesTotal - snap.Dropped; handled > 0 {
		snap.AvgLatencyMs = float64(s.latencyTotalNs.Load()) / float64(handled) / 1e6
	}
	return snap
}
