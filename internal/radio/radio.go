// Package radio defines the contract between the driver capsule and a
// physical 802.15.4 transceiver, together with the frame geometry shared
// by the concrete transceiver implementations.
package radio

// Frame geometry. A staged frame is laid out as one leading length byte
// followed by the MAC header and then the payload. The driver only ever
// consults HeaderSize/PayloadOffset on the transceiver, but the concrete
// implementations in this repo all use these values.
const (
	// MACHeaderSize covers FCF (2), sequence (1), destination PAN (2),
	// destination address (2) and source address (2).
	MACHeaderSize = 9

	// PayloadStart is where payload bytes begin inside a frame buffer:
	// one length byte plus the MAC header.
	PayloadStart = 1 + MACHeaderSize

	// MaxPayload is the largest payload the frame geometry supports. The
	// packed transmit argument can encode lengths up to 255, but anything
	// beyond MaxPayload fails the driver's size check: every valid byte
	// of a frame buffer, length byte and header included, must be
	// addressable by the transceiver's 8-bit length fields.
	MaxPayload = 245

	// FrameBufSize is the allocation size for kernel and receive-pool
	// frame buffers.
	FrameBufSize = PayloadStart + MaxPayload

	// BroadcastAddr is the all-stations short address.
	BroadcastAddr = 0xFFFF
)

// Transceiver is the hardware capability consumed by the driver capsule.
// Transmit and SetReceiveBuffer are asynchronous: Transmit returns an
// accept/reject result immediately and the final outcome arrives later
// through the TxClient, while buffers handed to SetReceiveBuffer come back
// through the RxClient when a frame lands in them.
type Transceiver interface {
	// Ready reports whether the radio is powered and able to accept work.
	Ready() bool

	// SetAddress sets the radio's 16-bit short address.
	SetAddress(addr uint16) error

	// SetPAN sets the radio's PAN identifier.
	SetPAN(pan uint16) error

	// HeaderSize is the number of MAC header bytes prepended to a payload
	// on the air.
	HeaderSize() uint8

	// PayloadOffset is the index inside a frame buffer at which payload
	// bytes must be staged, leaving room for the header the transceiver
	// fills in.
	PayloadOffset() uint8

	// Transmit takes exclusive ownership of buf and queues it for
	// transmission to dest. length is the on-air length (payload plus
	// header). A nil return means the request was accepted and SendDone
	// will be invoked later with buf; a non-nil return means the request
	// was rejected and ownership of buf stays with the caller.
	Transmit(dest uint16, buf []byte, length uint8) error

	// SetReceiveBuffer hands buf to the transceiver's receive pool. The
	// buffer comes back through RxClient.Receive once a frame has been
	// written into it.
	SetReceiveBuffer(buf []byte)
}

// TxClient receives transmit completions from a Transceiver.
type TxClient interface {
	// SendDone returns ownership of the transmit buffer along with the
	// final result of the transmission; a nil result means the frame went
	// out.
	SendDone(buf []byte, result error)
}

// RxClient receives inbound frames from a Transceiver.
type RxClient interface {
	// Receive hands over a receive-pool buffer holding length valid bytes
	// (length byte plus header plus payload). The client must return the
	// buffer via SetReceiveBuffer before discarding the event, or the
	// pool runs dry.
	Receive(buf []byte, length uint8, result error)
}
