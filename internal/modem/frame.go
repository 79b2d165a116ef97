// Package modem implements radio.Transceiver over a UART-attached radio
// modem. The wire protocol is SLIP-style byte stuffing: every packet starts
// with 0xC0, and 0xC0/0xDB bytes inside a packet are escaped with 0xDB.
package modem

import "errors"

const (
	frameEnd    = 0xC0
	frameEsc    = 0xDB
	frameEscEnd = 0xDC // 0xDB 0xDC decodes to 0xC0
	frameEscEsc = 0xDD // 0xDB 0xDD decodes to 0xDB
)

// Host-to-modem command codes, first byte of every unstuffed packet.
const (
	mcSetAddress = 0x40
	mcSetPAN     = 0x41
	mcTransmit   = 0x7F
)

// Modem-to-host response codes.
const (
	mrTxDone = 0x15 // followed by one status byte, 0 = transmitted
	mrData   = 0x14 // followed by a received frame image
)

var errBadEscape = errors.New("modem: invalid escape sequence")

// stuff encodes one packet for the wire: delimiters on both ends, with
// 0xC0 and 0xDB inside the packet escaped. The reader treats 0xC0 purely as
// a segment separator, so back-to-back packets share a delimiter.
func stuff(data []byte) []byte {
	out := make([]byte, 0, len(data)+4)
	out = append(out, frameEnd)
	for _, b := range data {
		switch b {
		case frameEnd:
			out = append(out, frameEsc, frameEscEnd)
		case frameEsc:
			out = append(out, frameEsc, frameEscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, frameEnd)
}

// unstuff decodes the escaped bytes between two delimiters back into the
// packet.
func unstuff(segment []byte) ([]byte, error) {
	out := make([]byte, 0, len(segment))
	esc := false
	for _, b := range segment {
		if esc {
			switch b {
			case frameEscEnd:
				out = append(out, frameEnd)
			case frameEscEsc:
				out = append(out, frameEsc)
			default:
				return nil, errBadEscape
			}
			esc = false
			continue
		}
		if b == frameEsc {
			esc = true
			continue
		}
		out = append(out, b)
	}
	if esc {
		return nil, errBadEscape
	}
	return out, nil
}
