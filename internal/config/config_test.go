package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_LoadFromString(t *testing.T) {
	testConfig := `[Radio]
Address=0x1234
PAN=0x00AA

[Transport]
Mode=udp
LocalPort=42610
PeerAddress=192.168.1.50
PeerPort=42611

[Serial]
Port=/dev/ttyACM0
Baud=57600

[Database]
Enabled=1
Path=/var/lib/radio154/packets.db

[Log]
Debug=yes
`

	cfg := NewConfig("")
	if err := cfg.LoadFromString(testConfig); err != nil {
		t.Fatalf("LoadFromString = %v", err)
	}

	if cfg.GetAddress() != 0x1234 {
		t.Errorf("address = %#04x, want 0x1234", cfg.GetAddress())
	}
	if cfg.GetPAN() != 0x00AA {
		t.Errorf("pan = %#04x, want 0x00AA", cfg.GetPAN())
	}
	if cfg.GetTransportMode() != "udp" {
		t.Errorf("mode = %q, want udp", cfg.GetTransportMode())
	}
	if cfg.GetLocalPort() != 42610 {
		t.Errorf("local port = %d, want 42610", cfg.GetLocalPort())
	}
	if cfg.GetPeerAddress() != "192.168.1.50" {
		t.Errorf("peer address = %q", cfg.GetPeerAddress())
	}
	if cfg.GetPeerPort() != 42611 {
		t.Errorf("peer port = %d, want 42611", cfg.GetPeerPort())
	}
	if cfg.GetSerialPort() != "/dev/ttyACM0" {
		t.Errorf("serial port = %q", cfg.GetSerialPort())
	}
	if cfg.GetSerialBaud() != 57600 {
		t.Errorf("serial baud = %d, want 57600", cfg.GetSerialBaud())
	}
	if !cfg.GetDatabaseEnabled() {
		t.Error("database not enabled")
	}
	if cfg.GetDatabasePath() != "/var/lib/radio154/packets.db" {
		t.Errorf("database path = %q", cfg.GetDatabasePath())
	}
	if !cfg.GetLogDebug() {
		t.Error("log debug not enabled")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := NewConfig("")
	if err := cfg.LoadFromString("# empty\n"); err != nil {
		t.Fatalf("LoadFromString = %v", err)
	}

	if cfg.GetAddress() != 0x0001 {
		t.Errorf("default address = %#04x, want 0x0001", cfg.GetAddress())
	}
	if cfg.GetTransportMode() != "udp" {
		t.Errorf("default mode = %q, want udp", cfg.GetTransportMode())
	}
	if cfg.GetSerialBaud() != 115200 {
		t.Errorf("default baud = %d, want 115200", cfg.GetSerialBaud())
	}
	if cfg.GetDatabaseEnabled() {
		t.Error("database enabled by default")
	}
}

func TestConfig_DecimalAddress(t *testing.T) {
	cfg := NewConfig("")
	if err := cfg.LoadFromString("[Radio]\nAddress=4660\n"); err != nil {
		t.Fatal(err)
	}
	if cfg.GetAddress() != 4660 {
		t.Errorf("address = %d, want 4660", cfg.GetAddress())
	}
}

func TestConfig_InvalidTransportMode(t *testing.T) {
	cfg := NewConfig("")
	if err := cfg.LoadFromString("[Transport]\nMode=carrier-pigeon\n"); err == nil {
		t.Error("invalid transport mode accepted")
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio154.ini")
	content := "[Radio]\nAddress=0x0042\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load = %v", err)
	}
	if cfg.GetAddress() != 0x0042 {
		t.Errorf("address = %#04x, want 0x0042", cfg.GetAddress())
	}
}

func TestConfig_MissingFile(t *testing.T) {
	cfg := NewConfig("/nonexistent/radio154.ini")
	if err := cfg.Load(); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
