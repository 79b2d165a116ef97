package driver

import "testing"

func TestDecodeTxArg(t *testing.T) {
	tests := []struct {
		name   string
		arg    uint32
		dest   uint16
		length int
	}{
		{"zero", 0x00000000, 0x0000, 0},
		{"address only", 0x00001234, 0x1234, 0},
		{"length only", 0x00050000, 0x0000, 5},
		{"address and length", 0x00051234, 0x1234, 5},
		{"max length", 0x00FFFFFF, 0xFFFF, 255},
		{"bits above the length field ignored", 0xFF051234, 0x1234, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, length := DecodeTxArg(tt.arg)
			if dest != tt.dest || length != tt.length {
				t.Errorf("DecodeTxArg(%#08x) = (%#04x, %d), want (%#04x, %d)",
					tt.arg, dest, length, tt.dest, tt.length)
			}
		})
	}
}

func TestPackTxArgRoundTrip(t *testing.T) {
	tests := []struct {
		dest   uint16
		length int
	}{
		{0x0000, 0},
		{0x1234, 5},
		{0xFFFF, 255},
		{0xABCD, 1},
	}

	for _, tt := range tests {
		dest, length := DecodeTxArg(PackTxArg(tt.dest, tt.length))
		if dest != tt.dest || length != tt.length {
			t.Errorf("round trip (%#04x, %d) = (%#04x, %d)", tt.dest, tt.length, dest, length)
		}
	}
}
