package radio

import "encoding/binary"

// FrameControl is the 802.15.4 data-frame FCF stamped on every outgoing
// frame: data frame, PAN ID compression, 16-bit source and destination
// addressing.
const FrameControl = 0x8841

// Header is the decoded MAC header of a frame buffer.
type Header struct {
	Length uint8 // on-air length: MAC header plus payload
	FCF    uint16
	Seq    uint8
	PAN    uint16
	Dest   uint16
	Src    uint16
}

// PutHeader writes the length byte and MAC header into the first
// PayloadStart bytes of buf, leaving the payload staged after them
// untouched. buf must be at least PayloadStart bytes.
func PutHeader(buf []byte, h Header) {
	buf[0] = h.Length
	binary.LittleEndian.PutUint16(buf[1:3], h.FCF)
	buf[3] = h.Seq
	binary.LittleEndian.PutUint16(buf[4:6], h.PAN)
	binary.LittleEndian.PutUint16(buf[6:8], h.Dest)
	binary.LittleEndian.PutUint16(buf[8:10], h.Src)
}

// ParseHeader decodes the length byte and MAC header from the start of buf.
// ok is false when buf is too short to hold a header.
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < PayloadStart {
		return Header{}, false
	}
	return Header{
		Length: buf[0],
		FCF:    binary.LittleEndian.Uint16(buf[1:3]),
		Seq:    buf[3],
		PAN:    binary.LittleEndian.Uint16(buf[4:6]),
		Dest:   binary.LittleEndian.Uint16(buf[6:8]),
		Src:    binary.LittleEndian.Uint16(buf[8:10]),
	}, true
}
