package modem

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/dbehnke/radio154/internal/radio"
)

// pipePort is one end of an in-memory duplex byte stream standing in for
// the serial port.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipePort) Close() error {
	p.r.Close()
	return p.w.Close()
}

func newPortPair() (host, modem *pipePort) {
	hr, mw := io.Pipe()
	mr, hw := io.Pipe()
	return &pipePort{r: hr, w: hw}, &pipePort{r: mr, w: mw}
}

// fakeModem answers transmit commands with a transmit-done status and can
// inject received frames toward the host.
type fakeModem struct {
	port     *pipePort
	txStatus byte
	frames   chan []byte // frame images seen in transmit commands
}

func (m *fakeModem) run() {
	chunk := make([]byte, 256)
	var pending []byte
	for {
		n, err := m.port.Read(chunk)
		if err != nil {
			return
		}
		for _, b := range chunk[:n] {
			if b == frameEnd {
				if len(pending) > 0 {
					m.handle(pending)
					pending = nil
				}
				continue
			}
			pending = append(pending, b)
		}
	}
}

func (m *fakeModem) handle(segment []byte) {
	pkt, err := unstuff(segment)
	if err != nil || len(pkt) == 0 {
		return
	}
	switch pkt[0] {
	case mcTransmit:
		frame := make([]byte, len(pkt)-1)
		copy(frame, pkt[1:])
		m.frames <- frame
		m.port.Write(stuff([]byte{mrTxDone, m.txStatus}))
	case mcSetAddress, mcSetPAN:
		// configuration writes need no response
	}
}

func (m *fakeModem) inject(frame []byte) {
	m.port.Write(stuff(append([]byte{mrData}, frame...)))
}

type testTxClient struct {
	done chan error
}

func (c *testTxClient) SendDone(buf []byte, result error) { c.done <- result }

type rxEvent struct {
	payload []byte
	length  uint8
}

type testRxClient struct {
	tr     *SerialTransceiver
	frames chan rxEvent
}

func (c *testRxClient) Receive(buf []byte, length uint8, result error) {
	payload := make([]byte, int(length)-radio.PayloadStart)
	copy(payload, buf[radio.PayloadStart:length])
	c.tr.SetReceiveBuffer(buf)
	c.frames <- rxEvent{payload: payload, length: length}
}

func newTestTransceiver(t *testing.T) (*SerialTransceiver, *fakeModem, *testTxClient, chan rxEvent) {
	t.Helper()

	hostPort, modemPort := newPortPair()
	m := &fakeModem{port: modemPort, frames: make(chan []byte, 4)}
	go m.run()

	s := NewSerialTransceiver("test", 115200)
	txc := &testTxClient{done: make(chan error, 1)}
	rxc := &testRxClient{tr: s, frames: make(chan rxEvent, 4)}
	s.SetClients(txc, rxc)
	s.start(hostPort)
	t.Cleanup(s.Close)

	if err := s.SetAddress(0x0001); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPAN(0x00AA); err != nil {
		t.Fatal(err)
	}
	s.SetReceiveBuffer(make([]byte, radio.FrameBufSize))

	return s, m, txc, rxc.frames
}

func TestSerialTransmitCompletes(t *testing.T) {
	s, m, txc, _ := newTestTransceiver(t)

	payload := []byte("over the wire")
	buf := make([]byte, radio.FrameBufSize)
	copy(buf[radio.PayloadStart:], payload)
	length := uint8(radio.MACHeaderSize + len(payload))

	if err := s.Transmit(0x0002, buf, length); err != nil {
		t.Fatalf("Transmit = %v", err)
	}

	select {
	case err := <-txc.done:
		if err != nil {
			t.Fatalf("SendDone result = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transmit completion")
	}

	select {
	case frame := <-m.frames:
		h, ok := radio.ParseHeader(frame)
		if !ok {
			t.Fatalf("modem saw malformed frame: % x", frame)
		}
		if h.Dest != 0x0002 || h.Src != 0x0001 || h.PAN != 0x00AA {
			t.Errorf("header = %+v", h)
		}
		if got := frame[radio.PayloadStart : radio.PayloadStart+len(payload)]; !bytes.Equal(got, payload) {
			t.Errorf("modem saw payload %q, want %q", got, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("modem never saw the frame")
	}
}

func TestSerialTransmitFailureStatus(t *testing.T) {
	s, m, txc, _ := newTestTransceiver(t)
	m.txStatus = 0x12

	buf := make([]byte, radio.FrameBufSize)
	if err := s.Transmit(0x0002, buf, radio.MACHeaderSize); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-txc.done:
		if err == nil {
			t.Fatal("SendDone result = nil, want modem status error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transmit completion")
	}
}

func TestSerialReceiveDelivery(t *testing.T) {
	_, m, _, frames := newTestTransceiver(t)

	payload := []byte("inbound")
	frame := make([]byte, radio.PayloadStart+len(payload))
	radio.PutHeader(frame, radio.Header{
		Length: uint8(radio.MACHeaderSize + len(payload)),
		FCF:    radio.FrameControl,
		PAN:    0x00AA,
		Dest:   0x0001,
		Src:    0x0002,
	})
	copy(frame[radio.PayloadStart:], payload)
	m.inject(frame)

	select {
	case ev := <-frames:
		if !bytes.Equal(ev.payload, payload) {
			t.Errorf("delivered payload = %q, want %q", ev.payload, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never delivered")
	}
}

func TestSerialReceiveFiltersOtherStations(t *testing.T) {
	_, m, _, frames := newTestTransceiver(t)

	frame := make([]byte, radio.PayloadStart+3)
	radio.PutHeader(frame, radio.Header{
		Length: radio.MACHeaderSize + 3,
		FCF:    radio.FrameControl,
		PAN:    0x00AA,
		Dest:   0x0099,
		Src:    0x0002,
	})
	m.inject(frame)

	select {
	case ev := <-frames:
		t.Fatalf("frame for another station delivered: %q", ev.payload)
	case <-time.After(200 * time.Millisecond):
	}
}
