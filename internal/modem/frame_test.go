package modem

import (
	"bytes"
	"testing"
)

func TestStuffUnstuffRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  []byte
	}{
		{"plain bytes", []byte{mcTransmit, 0x01, 0x02, 0x03}},
		{"embedded delimiter", []byte{mcTransmit, 0xC0, 0x00, 0xC0}},
		{"embedded escape", []byte{mcTransmit, 0xDB, 0xDB}},
		{"delimiter and escape adjacent", []byte{0xDB, 0xC0, 0xDB, 0xC0}},
		{"empty packet", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := stuff(tt.pkt)
			if wire[0] != frameEnd || wire[len(wire)-1] != frameEnd {
				t.Fatalf("wire packet not delimited: % x", wire)
			}
			for _, b := range wire[1 : len(wire)-1] {
				if b == frameEnd {
					t.Fatalf("unescaped delimiter inside packet: % x", wire)
				}
			}
			got, err := unstuff(wire[1 : len(wire)-1])
			if err != nil {
				t.Fatalf("unstuff = %v", err)
			}
			if !bytes.Equal(got, tt.pkt) {
				t.Errorf("round trip = % x, want % x", got, tt.pkt)
			}
		})
	}
}

func TestUnstuffBadEscape(t *testing.T) {
	tests := []struct {
		name    string
		segment []byte
	}{
		{"unknown escape code", []byte{0xDB, 0x00}},
		{"trailing escape", []byte{0x01, 0xDB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := unstuff(tt.segment); err == nil {
				t.Errorf("unstuff(% x) accepted a malformed segment", tt.segment)
			}
		})
	}
}
