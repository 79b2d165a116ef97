// Package driver implements the radio driver capsule: the narrow syscall
// surface (allow, subscribe, command) a client uses to reach the single
// shared transceiver, the busy/idle state machine that serializes hardware
// access, and the completion callbacks the transceiver invokes when an
// asynchronous operation finishes.
package driver

import (
	"sync"

	"github.com/dbehnke/radio154/internal/radio"
)

// ClientID identifies a logical client of the driver. Registration state is
// kept per client so two clients cannot clobber each other's buffers or
// callbacks.
type ClientID uint32

// TxDoneFunc is a client's transmit-complete callback. A nil result means
// the frame was transmitted.
type TxDoneFunc func(result error)

// RxFunc is a client's receive callback. n is the number of payload bytes
// copied into the client's read buffer, which may be less than the frame's
// payload if the buffer was too small.
type RxFunc func(n int, result error)

// Allow selectors.
const (
	AllowRead  = 0 // grant the buffer received payloads are copied into
	AllowWrite = 1 // grant the buffer outgoing payloads are read from
)

// Subscribe selectors.
const (
	SubscribeTxDone = 0
	SubscribeRx     = 1
)

// Command selectors.
const (
	CmdPresence    = 0
	CmdSetAddress  = 1
	CmdSetPAN      = 2
	CmdSetChannel  = 3 // accepted syntactically, not yet supported
	CmdSetTxPower  = 4 // accepted syntactically, not yet supported
	CmdTransmit    = 5
	CmdPowerStatus = 6
)

// client is one registration record: the granted buffers and registered
// callbacks of a single logical client. Records are created lazily on the
// first allow or subscribe call and updated in place afterwards.
type client struct {
	txCallback TxDoneFunc
	rxCallback RxFunc
	readBuf    []byte
	writeBuf   []byte
}

// Driver mediates access to one Transceiver. It owns a single kernel frame
// buffer whose ownership alternates between the driver (idle) and the
// transceiver (transmit in flight); the busy flag is set exactly while the
// transceiver holds it for a transmit.
//
// All syscall-surface methods are non-blocking: they either finish
// immediately with a result or hand work to the transceiver and return the
// accept/reject result. Completions arrive later through SendDone and
// Receive. The transceiver must deliver those completions from a different
// goroutine than the one calling Transmit.
type Driver struct {
	rf radio.Transceiver

	mu       sync.Mutex
	busy     bool
	kernelTx []byte // nil while the transceiver holds it or before ConfigBuffer
	txOwner  ClientID
	clients  map[ClientID]*client
}

// New creates a driver for rf. The caller must hand the driver a frame
// buffer with ConfigBuffer and register the driver as rf's TxClient and
// RxClient before use.
func New(rf radio.Transceiver) *Driver {
	return &Driver{
		rf:      rf,
		clients: make(map[ClientID]*client),
	}
}

// ConfigBuffer gives the driver the kernel frame buffer used to stage
// outgoing packets. Transmit commands fail with ErrNoMem until this is
// called.
func (d *Driver) ConfigBuffer(buf []byte) {
	d.mu.Lock()
	d.kernelTx = buf
	d.mu.Unlock()
}

// record returns id's registration record, creating it on first use.
// Caller holds d.mu.
func (d *Driver) record(id ClientID) *client {
	c := d.clients[id]
	if c == nil {
		c = &client{}
		d.clients[id] = c
	}
	return c
}

// Allow grants one of the client's buffers to the driver. Selector
// AllowRead grants the buffer received payloads are delivered into;
// AllowWrite grants the buffer outgoing payloads are staged from. A nil
// buffer revokes the grant.
func (d *Driver) Allow(id ClientID, num int, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch num {
	case AllowRead:
		d.record(id).readBuf = buf
	case AllowWrite:
		d.record(id).writeBuf = buf
	default:
		return radio.ErrUnsupported
	}
	return nil
}

// SubscribeTx registers the client's transmit-complete callback; a nil
// callback unregisters it.
func (d *Driver) SubscribeTx(id ClientID, cb TxDoneFunc) error {
	d.mu.Lock()
	d.record(id).txCallback = cb
	d.mu.Unlock()
	return nil
}

// SubscribeRx registers the client's receive callback; a nil callback
// unregisters it.
func (d *Driver) SubscribeRx(id ClientID, cb RxFunc) error {
	d.mu.Lock()
	d.record(id).rxCallback = cb
	d.mu.Unlock()
	return nil
}

// Subscribe dispatches a subscribe selector. Callbacks are passed as an
// untyped value so the selector table stays in one place; a value of the
// wrong type fails with ErrUnsupported.
func (d *Driver) Subscribe(id ClientID, num int, cb interface{}) error {
	switch num {
	case SubscribeTxDone:
		fn, ok := cb.(TxDoneFunc)
		if !ok && cb != nil {
			return radio.ErrUnsupported
		}
		return d.SubscribeTx(id, fn)
	case SubscribeRx:
		fn, ok := cb.(RxFunc)
		if !ok && cb != nil {
			return radio.ErrUnsupported
		}
		return d.SubscribeRx(id, fn)
	default:
		return radio.ErrUnsupported
	}
}

// Command dispatches a command selector. All commands complete immediately;
// CmdTransmit's nil return is an accepted-request acknowledgment, with the
// outcome delivered later through the transmit-complete callback.
func (d *Driver) Command(id ClientID, num int, arg uint32) error {
	switch num {
	case CmdPresence:
		return nil
	case CmdSetAddress:
		return d.rf.SetAddress(uint16(arg))
	case CmdSetPAN:
		return d.rf.SetPAN(uint16(arg))
	case CmdSetChannel, CmdSetTxPower:
		return radio.ErrUnsupported
	case CmdTransmit:
		return d.transmit(id, arg)
	case CmdPowerStatus:
		if d.rf.Ready() {
			return nil
		}
		return radio.ErrOff
	default:
		return radio.ErrUnsupported
	}
}

// transmit stages the client's payload into the kernel buffer and hands the
// buffer to the transceiver. Precondition failures are checked in a fixed
// order: busy, radio off, no kernel buffer, then payload fit. On accept the
// busy flag is set and the kernel buffer is owned by the transceiver until
// SendDone returns it; on reject the buffer never left the driver.
func (d *Driver) transmit(id ClientID, arg uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.busy {
		return radio.ErrBusy
	}
	if !d.rf.Ready() {
		return radio.ErrOff
	}
	if d.kernelTx == nil {
		return radio.ErrNoMem
	}

	dest, length := DecodeTxArg(arg)
	c := d.clients[id]
	if c == nil || c.writeBuf == nil || len(c.writeBuf) < length {
		return radio.ErrInvalidSize
	}

	// The on-air length must fit the transceiver's 8-bit length field and
	// the staged payload must fit the kernel buffer. Either failure happens
	// before any byte is copied.
	txLen := length + int(d.rf.HeaderSize())
	offset := int(d.rf.PayloadOffset())
	if txLen > 0xFF || offset+length > len(d.kernelTx) {
		return radio.ErrInvalidSize
	}
	copy(d.kernelTx[offset:offset+length], c.writeBuf[:length])

	// Ownership handoff: from here until SendDone the driver must not
	// touch the buffer.
	buf := d.kernelTx
	d.kernelTx = nil

	if err := d.rf.Transmit(dest, buf, uint8(txLen)); err != nil {
		// Rejected: the handoff never happened.
		d.kernelTx = buf
		return err
	}
	d.busy = true
	d.txOwner = id
	return nil
}

// SendDone implements radio.TxClient. Ownership of the kernel buffer
// returns to the driver and the busy flag clears before the client callback
// runs, so the callback may immediately issue another transmit.
func (d *Driver) SendDone(buf []byte, result error) {
	d.mu.Lock()
	d.kernelTx = buf
	d.busy = false
	var cb TxDoneFunc
	if c := d.clients[d.txOwner]; c != nil {
		cb = c.txCallback
	}
	d.mu.Unlock()

	if cb != nil {
		cb(result)
	}
}

// rxDelivery pairs a receive callback with the byte count copied for that
// client.
type rxDelivery struct {
	cb RxFunc
	n  int
}

// Receive implements radio.RxClient. The frame payload is copied into every
// client's granted read buffer, truncated to that buffer's length, and the
// pool buffer goes back to the transceiver before any client callback runs
// so a dropped frame can never starve reception.
func (d *Driver) Receive(buf []byte, length uint8, result error) {
	d.mu.Lock()

	offset := int(d.rf.PayloadOffset())
	avail := int(length) - offset
	if avail < 0 {
		avail = 0
	}

	var deliveries []rxDelivery
	for _, c := range d.clients {
		if c.readBuf == nil {
			continue
		}
		n := avail
		if n > len(c.readBuf) {
			n = len(c.readBuf)
		}
		copy(c.readBuf[:n], buf[offset:offset+n])
		if c.rxCallback != nil {
			deliveries = append(deliveries, rxDelivery{c.rxCallback, n})
		}
	}

	d.rf.SetReceiveBuffer(buf)
	d.mu.Unlock()

	for _, dl := range deliveries {
		dl.cb(dl.n, result)
	}
}
