package modem

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/dbehnke/radio154/internal/radio"
)

// txDoneTimeout bounds how long the send loop waits for the modem's
// transmit-done response before reporting the transmission as failed.
const txDoneTimeout = 2 * time.Second

var errTxTimeout = errors.New("modem: no transmit-done response")

// txJob is one accepted transmit waiting for the send loop.
type txJob struct {
	buf    []byte
	length uint8
}

// SerialTransceiver implements radio.Transceiver against a radio modem on a
// serial port. The host stages complete frame images (length byte, MAC
// header, payload); the modem radios them verbatim and reports completion
// with a transmit-done packet.
type SerialTransceiver struct {
	cfg  *serial.Config
	port io.ReadWriteCloser
	wmu  sync.Mutex // serializes writes to the port

	mu      sync.Mutex
	addr    uint16
	pan     uint16
	seq     uint8
	running bool
	rxBuf   []byte // single-slot receive pool

	txc radio.TxClient
	rxc radio.RxClient

	txq  chan txJob
	ack  chan error
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSerialTransceiver creates a transceiver for the modem on the named
// serial device.
func NewSerialTransceiver(device string, baud int) *SerialTransceiver {
	return &SerialTransceiver{
		cfg:  &serial.Config{Name: device, Baud: baud},
		txq:  make(chan txJob, 1),
		ack:  make(chan error, 1),
		done: make(chan struct{}),
	}
}

// SetClients registers the completion interfaces. Must be called before
// Open.
func (s *SerialTransceiver) SetClients(txc radio.TxClient, rxc radio.RxClient) {
	s.txc = txc
	s.rxc = rxc
}

// Open connects to the modem and launches the send and read loops.
func (s *SerialTransceiver) Open() error {
	port, err := serial.OpenPort(s.cfg)
	if err != nil {
		return fmt.Errorf("modem: open %s: %v", s.cfg.Name, err)
	}
	log.Printf("Modem connected on %s at %d baud", s.cfg.Name, s.cfg.Baud)
	s.start(port)
	return nil
}

// start wires the loops onto an already-open port. Split from Open so tests
// can drive the transceiver over an in-memory pipe.
func (s *SerialTransceiver) start(port io.ReadWriteCloser) {
	s.port = port
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.wg.Add(2)
	go s.sendLoop()
	go s.readLoop()
}

// Close stops the loops and closes the port.
func (s *SerialTransceiver) Close() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.done)
	s.port.Close()
	s.wg.Wait()
}

// Ready implements radio.Transceiver.
func (s *SerialTransceiver) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetAddress implements radio.Transceiver: the address is kept for receive
// filtering and pushed down to the modem.
func (s *SerialTransceiver) SetAddress(addr uint16) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return radio.ErrOff
	}
	s.addr = addr
	s.mu.Unlock()
	return s.writePacket([]byte{mcSetAddress, byte(addr), byte(addr >> 8)})
}

// SetPAN implements radio.Transceiver.
func (s *SerialTransceiver) SetPAN(pan uint16) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return radio.ErrOff
	}
	s.pan = pan
	s.mu.Unlock()
	return s.writePacket([]byte{mcSetPAN, byte(pan), byte(pan >> 8)})
}

// HeaderSize implements radio.Transceiver.
func (s *SerialTransceiver) HeaderSize() uint8 { return radio.MACHeaderSize }

// PayloadOffset implements radio.Transceiver.
func (s *SerialTransceiver) PayloadOffset() uint8 { return radio.PayloadStart }

// Transmit implements radio.Transceiver: the header is stamped around the
// staged payload and the frame queued for the send loop. SendDone fires
// once the modem's transmit-done packet arrives (or the wait times out).
func (s *SerialTransceiver) Transmit(dest uint16, buf []byte, length uint8) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return radio.ErrOff
	}
	if int(length) < radio.MACHeaderSize || 1+int(length) > len(buf) {
		s.mu.Unlock()
		return radio.ErrInvalidSize
	}

	radio.PutHeader(buf, radio.Header{
		Length: length,
		FCF:    radio.FrameControl,
		Seq:    s.seq,
		PAN:    s.pan,
		Dest:   dest,
		Src:    s.addr,
	})
	s.seq++
	s.mu.Unlock()

	select {
	case s.txq <- txJob{buf: buf, length: length}:
		return nil
	default:
		return radio.ErrBusy
	}
}

// SetReceiveBuffer implements radio.Transceiver.
func (s *SerialTransceiver) SetReceiveBuffer(buf []byte) {
	s.mu.Lock()
	s.rxBuf = buf
	s.mu.Unlock()
}

// writePacket stuffs and writes one packet to the port.
func (s *SerialTransceiver) writePacket(pkt []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.port.Write(stuff(pkt))
	return err
}

func (s *SerialTransceiver) sendLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case job := <-s.txq:
			pkt := make([]byte, 0, 2+int(job.length))
			pkt = append(pkt, mcTransmit)
			pkt = append(pkt, job.buf[:1+int(job.length)]...)

			// Drop a stale transmit-done left over from a timed-out
			// exchange so it cannot answer for this frame.
			select {
			case <-s.ack:
			default:
			}

			result := s.writePacket(pkt)
			if result == nil {
				select {
				case result = <-s.ack:
				case <-time.After(txDoneTimeout):
					result = errTxTimeout
				case <-s.done:
					return
				}
			}
			s.txc.SendDone(job.buf, result)
		}
	}
}

func (s *SerialTransceiver) readLoop() {
	defer s.wg.Done()
	chunk := make([]byte, 256)
	var pending []byte
	for {
		n, err := s.port.Read(chunk)
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("Modem read error: %v", err)
			}
			return
		}
		for _, b := range chunk[:n] {
			if b == frameEnd {
				if len(pending) > 0 {
					s.dispatch(pending)
					pending = pending[:0]
				}
				continue
			}
			pending = append(pending, b)
		}
	}
}

// dispatch decodes one delimiter-free wire segment and routes the modem's
// response.
func (s *SerialTransceiver) dispatch(segment []byte) {
	pkt, err := unstuff(segment)
	if err != nil {
		log.Printf("Modem framing error: %v", err)
		return
	}
	if len(pkt) == 0 {
		return
	}

	switch pkt[0] {
	case mrTxDone:
		if len(pkt) < 2 {
			log.Printf("Modem: short transmit-done packet")
			return
		}
		var result error
		if pkt[1] != 0 {
			result = fmt.Errorf("modem: transmit failed with status %#02x", pkt[1])
		}
		select {
		case s.ack <- result:
		default:
		}
	case mrData:
		s.deliver(pkt[1:])
	default:
		log.Printf("Modem: unknown response code %#02x", pkt[0])
	}
}

// deliver hands one received frame image to the receive client, applying
// the same address and PAN filtering as the hardware would.
func (s *SerialTransceiver) deliver(frame []byte) {
	h, ok := radio.ParseHeader(frame)
	if !ok {
		return
	}
	frameLen := int(h.Length)
	if 1+frameLen > len(frame) || frameLen > radio.FrameBufSize-1 {
		log.Printf("Modem: length byte %d beyond packet of %d bytes", frameLen, len(frame))
		return
	}

	s.mu.Lock()
	if h.Dest != s.addr && h.Dest != radio.BroadcastAddr {
		s.mu.Unlock()
		return
	}
	if h.PAN != s.pan && h.PAN != radio.BroadcastAddr {
		s.mu.Unlock()
		return
	}
	buf := s.rxBuf
	s.rxBuf = nil
	s.mu.Unlock()

	if buf == nil {
		log.Printf("Modem: receive pool empty, dropping frame for %#04x", h.Dest)
		return
	}

	copy(buf, frame[:1+frameLen])
	s.rxc.Receive(buf, uint8(1+frameLen), nil)
}
