package dns

import (
	"testing"
)

func TestHeaderMarshal(t *testing.T) {
	h := Header{
		ID:      0x1234,
		QR:      true,
		RD:      true,
		RA:      true,
		QDCount: 1,
		ANCount: 2,
		NSCount: 3,
		ARCount: 4,
	}

	b := h.Marshal()
	if len(b) != HeaderSize {
		t.Fatalf("expected %d bytes, got %d", HeaderSize, len(b))
	}

	if b[0] != 0x12 || b[1] != 0x34 {
		t.Errorf("unexpected ID: %02x%02x", b[0], b[1])
	}
	// QR|RD|RA = 0x8180
	if b[2] != 0x81 || b[3] != 0x80 {
		t.Errorf("unexpected flags: %02x%02x", b[2], b[3])
	}
	if b[4] != 0 || b[5] != 1 {
		t.Errorf("unexpected QDCount: %d", int(b[4])<<8|int(b[5]))
	}
	if b[6] != 0 || b[7] != 2 {
		t.Errorf("unexpected ANCount: %d", int(b[6])<<8|int(b[7]))
	}
	if b[8] != 0 || b[9] != 3 {
		t.Errorf("unexpected NSCount: %d", int(b[8])<<8|int(b[9]))
	}
	if b[10] != 0 || b[11] != 4 {
		t.Errorf("unexpected ARCount: %d", int(b[10])<<8|int(b[11]))
	}
}

func TestParseHeader(t *testing.T) {
	msg := []byte{
		0x12, 0x34, // ID
		0x81, 0x80, // Flags: QR|RD|RA
		0x00, 0x01, // QDCount
		0x00, 0x02, // ANCount
		0x00, 0x03, // NSCount
		0x00, 0x04, // ARCount
	}

	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.ID != 0x1234 {
		t.Errorf("expected ID 0x1234, got 0x%04x", h.ID)
	}
	if !h.QR {
		t.Error("expected QR set")
	}
	if h.Opcode != 0 {
		t.Errorf("expected opcode 0, got %d", h.Opcode)
	}
	if h.AA || h.TC {
		t.Error("expected AA and TC clear")
	}
	if !h.RD || !h.RA {
		t.Error("expected RD and RA set")
	}
	if h.Z != 0 || h.RCode != 0 {
		t.Errorf("expected Z and RCode 0, got %d %d", h.Z, h.RCode)
	}
	if h.QDCount != 1 || h.ANCount != 2 || h.NSCount != 3 || h.ARCount != 4 {
		t.Errorf("unexpected counts: %d %d %d %d", h.QDCount, h.ANCount, h.NSCount, h.ARCount)
	}
	if off != HeaderSize {
		t.Errorf("expected offset %d, got %d", HeaderSize, off)
	}
}

func TestParseHeaderOpcodeAndRCode(t *testing.T) {
	// Opcode 2 (STATUS), AA set, rcode 5 (REFUSED): 0x1405
	msg := []byte{
		0xab, 0xcd,
		0x14, 0x05,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
	}

	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.QR {
		t.Error("expected QR clear")
	}
	if h.Opcode != 2 {
		t.Errorf("expected opcode 2, got %d", h.Opcode)
	}
	if !h.AA {
		t.Error("expected AA set")
	}
	if h.RCode != 5 {
		t.Errorf("expected rcode 5, got %d", h.RCode)
	}
}

// Bit packing must be lossless for all 13 header fields.
func TestHeaderRoundTrip(t *testing.T) {
	headers := []Header{
		{},
		{ID: 0xffff, QR: true, Opcode: 15, AA: true, TC: true, RD: true, RA: true, Z: 7, RCode: 15,
			QDCount: 0xffff, ANCount: 0xffff, NSCount: 0xffff, ARCount: 0xffff},
		{ID: 0x1234, RD: true, QDCount: 1},
		{ID: 1, QR: true, AA: true, RCode: 5},
		{Opcode: 4, Z: 3, RCode: 9, ANCount: 7},
	}

	for _, want := range headers {
		off := 0
		got, err := ParseHeader(want.Marshal(), &off)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		off := 0
		_, err := ParseHeader(make([]byte, n), &off)
		if err == nil {
			t.Errorf("expected error for %d-byte message", n)
		}
	}
}
