package network

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/dbehnke/radio154/internal/radio"
)

// txJob is one accepted transmit waiting for the send loop.
type txJob struct {
	buf    []byte
	length uint8
}

// UDPTransceiver implements radio.Transceiver over UDP datagrams. Each
// datagram carries a full frame-buffer image: one length byte, the MAC
// header, then the payload. Transmit completions and received frames are
// delivered from the transceiver's own goroutines, never from the caller's.
type UDPTransceiver struct {
	sock *UDPSocket
	peer *net.UDPAddr

	mu      sync.Mutex
	addr    uint16
	pan     uint16
	seq     uint8
	running bool
	rxBuf   []byte // single-slot receive pool

	txc radio.TxClient
	rxc radio.RxClient

	txq  chan txJob
	done chan struct{}
	wg   sync.WaitGroup
}

// NewUDPTransceiver creates a transceiver bound to localPort that sends
// frames to peerAddress:peerPort.
func NewUDPTransceiver(localPort int, peerAddress string, peerPort int) (*UDPTransceiver, error) {
	peer, err := ParseUDPAddr(peerAddress, peerPort)
	if err != nil {
		return nil, fmt.Errorf("invalid peer: %v", err)
	}
	return &UDPTransceiver{
		sock: NewUDPSocket("", localPort),
		peer: peer,
		txq:  make(chan txJob, 1),
		done: make(chan struct{}),
	}, nil
}

// SetClients registers the completion interfaces. Must be called before
// Start.
func (t *UDPTransceiver) SetClients(txc radio.TxClient, rxc radio.RxClient) {
	t.txc = txc
	t.rxc = rxc
}

// Start opens the socket and launches the send and receive loops.
func (t *UDPTransceiver) Start() error {
	if err := t.sock.Open(); err != nil {
		return err
	}
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()

	t.wg.Add(2)
	go t.sendLoop()
	go t.recvLoop()
	return nil
}

// LocalPort returns the bound UDP port.
func (t *UDPTransceiver) LocalPort() int {
	return t.sock.LocalPort()
}

// Close stops both loops and closes the socket.
func (t *UDPTransceiver) Close() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.done)
	t.sock.Close()
	t.wg.Wait()
}

// Ready implements radio.Transceiver.
func (t *UDPTransceiver) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// SetAddress implements radio.Transceiver.
func (t *UDPTransceiver) SetAddress(addr uint16) error {
	t.mu.Lock()
	t.addr = addr
	t.mu.Unlock()
	return nil
}

// SetPAN implements radio.Transceiver.
func (t *UDPTransceiver) SetPAN(pan uint16) error {
	t.mu.Lock()
	t.pan = pan
	t.mu.Unlock()
	return nil
}

// HeaderSize implements radio.Transceiver.
func (t *UDPTransceiver) HeaderSize() uint8 { return radio.MACHeaderSize }

// PayloadOffset implements radio.Transceiver.
func (t *UDPTransceiver) PayloadOffset() uint8 { return radio.PayloadStart }

// Transmit fills in the length byte and MAC header around the payload the
// caller staged at PayloadOffset, then queues the frame for the send loop.
// A nil return means SendDone will be invoked with buf later.
func (t *UDPTransceiver) Transmit(dest uint16, buf []byte, length uint8) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return radio.ErrOff
	}
	if int(length) < radio.MACHeaderSize || 1+int(length) > len(buf) {
		t.mu.Unlock()
		return radio.ErrInvalidSize
	}

	radio.PutHeader(buf, radio.Header{
		Length: length,
		FCF:    radio.FrameControl,
		Seq:    t.seq,
		PAN:    t.pan,
		Dest:   dest,
		Src:    t.addr,
	})
	t.seq++
	t.mu.Unlock()

	select {
	case t.txq <- txJob{buf: buf, length: length}:
		return nil
	default:
		return radio.ErrBusy
	}
}

// SetReceiveBuffer implements radio.Transceiver. The pool holds one buffer;
// inbound frames are dropped while it is empty.
func (t *UDPTransceiver) SetReceiveBuffer(buf []byte) {
	t.mu.Lock()
	t.rxBuf = buf
	t.mu.Unlock()
}

func (t *UDPTransceiver) sendLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case job := <-t.txq:
			err := t.sock.Write(job.buf[:1+int(job.length)], t.peer)
			t.txc.SendDone(job.buf, err)
		}
	}
}

func (t *UDPTransceiver) recvLoop() {
	defer t.wg.Done()
	tmp := make([]byte, radio.FrameBufSize)
	for {
		n, _, err := t.sock.Read(tmp)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			log.Printf("UDP transceiver read error: %v", err)
			return
		}
		t.deliver(tmp, n)
	}
}

// deliver validates one datagram and hands it to the receive client in the
// pool buffer. Frames for other stations and frames arriving while the pool
// is empty are dropped.
func (t *UDPTransceiver) deliver(datagram []byte, n int) {
	h, ok := radio.ParseHeader(datagram[:n])
	if !ok {
		return
	}
	frameLen := int(h.Length)
	if 1+frameLen > n {
		log.Printf("UDP transceiver: length byte %d beyond datagram of %d bytes", frameLen, n)
		return
	}

	t.mu.Lock()
	if h.Dest != t.addr && h.Dest != radio.BroadcastAddr {
		t.mu.Unlock()
		return
	}
	if h.PAN != t.pan && h.PAN != radio.BroadcastAddr {
		t.mu.Unlock()
		return
	}
	buf := t.rxBuf
	t.rxBuf = nil
	t.mu.Unlock()

	if buf == nil {
		log.Printf("UDP transceiver: receive pool empty, dropping frame for %#04x", h.Dest)
		return
	}

	copy(buf, datagram[:1+frameLen])
	t.rxc.Receive(buf, uint8(1+frameLen), nil)
}
