// radio154 is a small daemon that exposes one packet radio through the
// driver capsule: it grants buffers, subscribes completion callbacks, and
// issues commands against the same syscall-style surface a process would
// use, with the frames carried by a UDP or serial-modem transceiver.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dbehnke/radio154/internal/config"
	"github.com/dbehnke/radio154/internal/database"
	"github.com/dbehnke/radio154/internal/driver"
	"github.com/dbehnke/radio154/internal/modem"
	"github.com/dbehnke/radio154/internal/network"
	"github.com/dbehnke/radio154/internal/radio"
)

const VERSION = "1.0.0"

// clientID is the registration slot this process uses on the driver.
const clientID driver.ClientID = 1

const txTimeout = 5 * time.Second

// Daemon wires the transceiver, the driver capsule, and the packet journal
// together.
type Daemon struct {
	cfg *config.Config
	drv *driver.Driver

	rf      radio.Transceiver
	stopRF  func()
	db      *database.DB
	journal *database.PacketRepository

	readBuf  []byte
	writeBuf []byte
	txDone   chan error
	rxSeen   chan int
}

// NewDaemon loads configuration and brings up the transceiver, the driver,
// and (when enabled) the journal.
func NewDaemon(configFile string) (*Daemon, error) {
	cfg := config.NewConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	d := &Daemon{
		cfg:      cfg,
		readBuf:  make([]byte, radio.MaxPayload),
		writeBuf: make([]byte, radio.MaxPayload),
		txDone:   make(chan error, 1),
		rxSeen:   make(chan int, 16),
	}

	if cfg.GetDatabaseEnabled() {
		db, err := database.NewDB(database.Config{Path: cfg.GetDatabasePath()}, log.Default())
		if err != nil {
			return nil, fmt.Errorf("failed to open packet journal: %v", err)
		}
		d.db = db
		d.journal = database.NewPacketRepository(db.GetDB())
	}

	return d, nil
}

// Start opens the transceiver, registers the driver as its completion
// client, and performs the process-side registration calls.
func (d *Daemon) Start() error {
	switch d.cfg.GetTransportMode() {
	case "serial":
		tr := modem.NewSerialTransceiver(d.cfg.GetSerialPort(), int(d.cfg.GetSerialBaud()))
		d.drv = driver.New(tr)
		tr.SetClients(d.drv, d.drv)
		if err := tr.Open(); err != nil {
			return err
		}
		d.rf = tr
		d.stopRF = tr.Close
	default:
		tr, err := network.NewUDPTransceiver(int(d.cfg.GetLocalPort()),
			d.cfg.GetPeerAddress(), int(d.cfg.GetPeerPort()))
		if err != nil {
			return err
		}
		d.drv = driver.New(tr)
		tr.SetClients(d.drv, d.drv)
		if err := tr.Start(); err != nil {
			return err
		}
		d.rf = tr
		d.stopRF = tr.Close
	}

	// Kernel-side buffers: the staging buffer the driver owns and the
	// first receive-pool buffer.
	d.drv.ConfigBuffer(make([]byte, radio.FrameBufSize))
	d.rf.SetReceiveBuffer(make([]byte, radio.FrameBufSize))

	// Process-side setup against the syscall surface.
	if err := d.drv.Command(clientID, driver.CmdPresence, 0); err != nil {
		return fmt.Errorf("driver not present: %v", err)
	}
	if err := d.drv.Allow(clientID, driver.AllowRead, d.readBuf); err != nil {
		return err
	}
	if err := d.drv.Allow(clientID, driver.AllowWrite, d.writeBuf); err != nil {
		return err
	}
	if err := d.drv.Subscribe(clientID, driver.SubscribeTxDone, driver.TxDoneFunc(d.onTxDone)); err != nil {
		return err
	}
	if err := d.drv.Subscribe(clientID, driver.SubscribeRx, driver.RxFunc(d.onReceive)); err != nil {
		return err
	}
	if err := d.drv.Command(clientID, driver.CmdSetAddress, uint32(d.cfg.GetAddress())); err != nil {
		return err
	}
	if err := d.drv.Command(clientID, driver.CmdSetPAN, uint32(d.cfg.GetPAN())); err != nil {
		return err
	}
	if err := d.drv.Command(clientID, driver.CmdPowerStatus, 0); err != nil {
		return fmt.Errorf("radio not powered: %v", err)
	}

	log.Printf("radio154 %s up: addr=%#04x pan=%#04x transport=%s",
		VERSION, d.cfg.GetAddress(), d.cfg.GetPAN(), d.cfg.GetTransportMode())
	return nil
}

// Stop shuts the transceiver and journal down.
func (d *Daemon) Stop() {
	if d.stopRF != nil {
		d.stopRF()
	}
	if d.db != nil {
		d.db.Close()
	}
}

func (d *Daemon) onTxDone(result error) {
	select {
	case d.txDone <- result:
	default:
	}
}

func (d *Daemon) onReceive(n int, result error) {
	if result != nil {
		log.Printf("receive error: %v", result)
		return
	}
	log.Printf("received %d bytes: %q", n, d.readBuf[:n])
	if d.journal != nil {
		rec := &database.PacketRecord{
			Direction: database.DirectionRx,
			Address:   d.cfg.GetAddress(),
			PAN:       d.cfg.GetPAN(),
			Length:    n,
			Status:    database.StatusDelivered,
		}
		if err := d.journal.Insert(rec); err != nil {
			log.Printf("journal insert failed: %v", err)
		}
	}
	select {
	case d.rxSeen <- n:
	default:
	}
}

// Send transmits one payload and waits for the completion callback.
func (d *Daemon) Send(dest uint16, payload []byte) error {
	if len(payload) > len(d.writeBuf) {
		return radio.ErrInvalidSize
	}
	copy(d.writeBuf, payload)

	var rec *database.PacketRecord
	if d.journal != nil {
		rec = &database.PacketRecord{
			Direction: database.DirectionTx,
			Address:   dest,
			PAN:       d.cfg.GetPAN(),
			Length:    len(payload),
			Status:    database.StatusPending,
		}
		if err := d.journal.Insert(rec); err != nil {
			log.Printf("journal insert failed: %v", err)
			rec = nil
		}
	}

	err := d.drv.Command(clientID, driver.CmdTransmit, driver.PackTxArg(dest, len(payload)))
	if err == nil {
		select {
		case err = <-d.txDone:
		case <-time.After(txTimeout):
			err = fmt.Errorf("no completion within %v", txTimeout)
		}
	}

	if rec != nil {
		status, detail := database.StatusDelivered, ""
		if err != nil {
			status, detail = database.StatusFailed, err.Error()
		}
		if jerr := d.journal.SetStatus(rec.ID, status, detail); jerr != nil {
			log.Printf("journal update failed: %v", jerr)
		}
	}
	return err
}

// printTotals logs the journal's lifetime counters.
func (d *Daemon) printTotals() {
	if d.journal == nil {
		return
	}
	for _, dir := range []string{database.DirectionTx, database.DirectionRx} {
		count, bytes, err := d.journal.Totals(dir)
		if err != nil {
			log.Printf("journal totals failed: %v", err)
			return
		}
		log.Printf("journal %s: %s packets, %s", dir,
			humanize.Comma(count), humanize.Bytes(uint64(bytes)))
	}
}

func parseDest(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid destination address %q: %v", s, err)
	}
	return uint16(v), nil
}

func main() {
	configFile := flag.String("config", "radio154.ini", "path to configuration file")
	sendMsg := flag.String("send", "", "payload to transmit; empty means listen")
	destStr := flag.String("dest", "0xFFFF", "destination address for -send")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("radio154 %s\n", VERSION)
		return
	}

	daemon, err := NewDaemon(*configFile)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	if err := daemon.Start(); err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer daemon.Stop()

	if *sendMsg != "" {
		dest, err := parseDest(*destStr)
		if err != nil {
			log.Fatal(err)
		}
		if err := daemon.Send(dest, []byte(*sendMsg)); err != nil {
			log.Fatalf("transmit failed: %v", err)
		}
		log.Printf("transmitted %d bytes to %#04x", len(*sendMsg), dest)
		daemon.printTotals()
		return
	}

	log.Printf("listening; Ctrl-C to exit")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	daemon.printTotals()
	log.Printf("shutting down")
}
