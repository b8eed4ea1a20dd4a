package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ip4live/checkipdns/internal/responder"
)

func TestStatsRecordVariant(t *testing.T) {
	s := NewDNSStats()

	s.RecordVariant(responder.VariantAnswer)
	s.RecordVariant(responder.VariantAnswer)
	s.RecordVariant(responder.VariantRefused)
	s.RecordVariant(responder.VariantNoRecords)
	s.RecordVariant(responder.VariantFormatError)
	s.RecordVariant(responder.VariantNotImplemented)
	s.RecordDropped()

	snap := s.Snapshot()
	assert.Equal(t, uint64(7), snap.QueriesTotal)
	assert.Equal(t, uint64(2), snap.Answered)
	assert.Equal(t, uint64(1), snap.Refused)
	assert.Equal(t, uint64(1), snap.NoRecords)
	assert.Equal(t, uint64(1), snap.FormatError)
	assert.Equal(t, uint64(1), snap.NotImplemented)
	assert.Equal(t, uint64(1), snap.Dropped)
}

func TestStatsAvgLatency(t *testing.T) {
	s := NewDNSStats()

	s.RecordVariant(responder.VariantAnswer)
	s.RecordLatency(2_000_000) // 2ms
	s.RecordVariant(responder.VariantAnswer)
	s.RecordLatency(4_000_000) // 4ms

	snap := s.Snapshot()
	assert.InDelta(t, 3.0, snap.AvgLatencyMs, 0.001)
}

func TestStatsAvgLatencyExcludesDropped(t *testing.T) {
	s := NewDNSStats()

	s.RecordVariant(responder.VariantAnswer)
	s.RecordLatency(2_000_000)
	s.RecordDropped()

	snap := s.Snapshot()
	assert.InDelta(t, 2.0, snap.AvgLatencyMs, 0.001)
}

func TestStatsNilReceiver(t *testing.T) {
	var s *DNSStats
	s.RecordVariant(responder.VariantAnswer)
	s.RecordDropped()
	s.RecordLatency(1)
	assert.Equal(t, DNSStatsSnapshot{}, s.Snapshot())
}
