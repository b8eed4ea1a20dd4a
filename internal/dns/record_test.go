package dns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceRecordRoundTrip(t *testing.T) {
	rr := ResourceRecord{
		RawName:  []byte{2, 'm', 'y', 3, 'i', 'p', '4', 4, 'l', 'i', 'v', 'e', 0},
		Type:     TypeA,
		Class:    ClassIN,
		TTL:      1,
		RDLength: 4,
		RData:    []byte{203, 0, 113, 7},
	}
	wire, err := rr.Marshal()
	require.NoError(t, err)

	off := 0
	got, err := ParseResourceRecord(wire, &off)
	require.NoError(t, err)
	assert.Equal(t, len(wire), off)

	assert.Equal(t, rr.RawName, got.RawName)
	assert.Equal(t, "my.ip4.live.", got.Name)
	assert.Equal(t, TypeA, got.Type)
	assert.Equal(t, ClassIN, got.Class)
	assert.Equal(t, uint32(1), got.TTL)
	assert.Equal(t, []byte{203, 0, 113, 7}, got.RData)
}

func TestParseResourceRecordTruncated(t *testing.T) {
	rr := ResourceRecord{
		RawName:  []byte{2, 'm', 'y', 0},
		Type:     TypeA,
		Class:    ClassIN,
		TTL:      1,
		RDLength: 4,
		RData:    []byte{203, 0, 113, 7},
	}
	wire, err := rr.Marshal()
	require.NoError(t, err)

	for cut := 1; cut < len(wire); cut++ {
		off := 0
		_, err := ParseResourceRecord(wire[:cut], &off)
		require.Error(t, err, "cut at %d", cut)
		assert.True(t, errors.Is(err, ErrTruncated), "cut at %d", cut)
	}
}
