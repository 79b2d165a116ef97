package radio

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{"zero header", Header{FCF: FrameControl}},
		{"typical frame", Header{Length: MACHeaderSize + 5, FCF: FrameControl, Seq: 42, PAN: 0x00AA, Dest: 0x1234, Src: 0x0001}},
		{"broadcast", Header{Length: MACHeaderSize, FCF: FrameControl, Seq: 255, PAN: BroadcastAddr, Dest: BroadcastAddr, Src: 0xFFFE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, FrameBufSize)
			PutHeader(buf, tt.h)
			got, ok := ParseHeader(buf)
			if !ok {
				t.Fatal("ParseHeader failed on a full frame buffer")
			}
			if got != tt.h {
				t.Errorf("round trip = %+v, want %+v", got, tt.h)
			}
		})
	}
}

func TestParseHeaderShortBuffer(t *testing.T) {
	if _, ok := ParseHeader(make([]byte, PayloadStart-1)); ok {
		t.Error("ParseHeader accepted a buffer shorter than the header region")
	}
}

func TestPutHeaderLeavesPayloadAlone(t *testing.T) {
	buf := make([]byte, FrameBufSize)
	for i := PayloadStart; i < len(buf); i++ {
		buf[i] = 0x5A
	}
	PutHeader(buf, Header{Length: MACHeaderSize + 1, FCF: FrameControl})
	for i := PayloadStart; i < len(buf); i++ {
		if buf[i] != 0x5A {
			t.Fatalf("payload byte %d modified by PutHeader", i)
		}
	}
}
