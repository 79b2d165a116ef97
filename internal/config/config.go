// Package config loads the radio154 daemon configuration from an INI-style
// file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the radio154 configuration
type Config struct {
	filename string

	// Radio section
	address uint16
	pan     uint16

	// Transport section
	transportMode string // "udp" or "serial"
	localPort     uint32
	peerAddress   string
	peerPort      uint32

	// Serial section
	serialPort string
	serialBaud uint32

	// Database section
	databaseEnabled bool
	databasePath    string

	// Log section
	logDebug bool
}

// NewConfig creates a new configuration instance
func NewConfig(filename string) *Config {
	return &Config{
		filename: filename,

		// Set reasonable defaults
		address:       0x0001,
		pan:           0x00AA,
		transportMode: "udp",
		localPort:     42600,
		peerAddress:   "127.0.0.1",
		peerPort:      42601,
		serialPort:    "/dev/ttyUSB0",
		serialBaud:    115200,
		databasePath:  "data/packets.db",
	}
}

// Load loads configuration from the specified file
func (c *Config) Load() error {
	file, err := os.Open(c.filename)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %v", c.filename, err)
	}
	defer file.Close()

	if err := c.parseINIScanner(bufio.NewScanner(file)); err != nil {
		return err
	}
	return c.validate()
}

// LoadFromString loads configuration from a string (useful for testing)
func (c *Config) LoadFromString(data string) error {
	if err := c.parseINIScanner(bufio.NewScanner(strings.NewReader(data))); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) parseINIScanner(scanner *bufio.Scanner) error {
	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		// Check for section header
		if line[0] == '[' && line[len(line)-1] == ']' {
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		// Parse key=value pairs
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch currentSection {
		case "Radio":
			c.parseRadioSection(key, value)
		case "Transport":
			c.parseTransportSection(key, value)
		case "Serial":
			c.parseSerialSection(key, value)
		case "Database":
			c.parseDatabaseSection(key, value)
		case "Log":
			c.parseLogSection(key, value)
		}
	}

	return scanner.Err()
}

func (c *Config) validate() error {
	switch c.transportMode {
	case "udp", "serial":
	default:
		return fmt.Errorf("invalid transport mode %q (want udp or serial)", c.transportMode)
	}
	return nil
}

func (c *Config) parseRadioSection(key, value string) {
	switch key {
	case "Address":
		if v, err := parseUint16(value); err == nil {
			c.address = v
		}
	case "PAN":
		if v, err := parseUint16(value); err == nil {
			c.pan = v
		}
	}
}

func (c *Config) parseTransportSection(key, value string) {
	switch key {
	case "Mode":
		c.transportMode = strings.ToLower(value)
	case "LocalPort":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.localPort = uint32(v)
		}
	case "PeerAddress":
		c.peerAddress = value
	case "PeerPort":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.peerPort = uint32(v)
		}
	}
}

func (c *Config) parseSerialSection(key, value string) {
	switch key {
	case "Port":
		c.serialPort = value
	case "Baud":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.serialBaud = uint32(v)
		}
	}
}

func (c *Config) parseDatabaseSection(key, value string) {
	switch key {
	case "Enabled":
		c.databaseEnabled = c.parseBool(value)
	case "Path":
		c.databasePath = value
	}
}

func (c *Config) parseLogSection(key, value string) {
	switch key {
	case "Debug":
		c.logDebug = c.parseBool(value)
	}
}

func (c *Config) parseBool(value string) bool {
	return value == "1" || strings.ToLower(value) == "true" || strings.ToLower(value) == "yes"
}

// parseUint16 accepts both decimal and 0x-prefixed hexadecimal values,
// since radio addresses are conventionally written in hex.
func parseUint16(value string) (uint16, error) {
	v, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// Getter methods for Radio section
func (c *Config) GetAddress() uint16 { return c.address }
func (c *Config) GetPAN() uint16     { return c.pan }

// Getter methods for Transport section
func (c *Config) GetTransportMode() string { return c.transportMode }
func (c *Config) GetLocalPort() uint32     { return c.localPort }
func (c *Config) GetPeerAddress() string   { return c.peerAddress }
func (c *Config) GetPeerPort() uint32      { return c.peerPort }

// Getter methods for Serial section
func (c *Config) GetSerialPort() string { return c.serialPort }
func (c *Config) GetSerialBaud() uint32 { return c.serialBaud }

// Getter methods for Database section
func (c *Config) GetDatabaseEnabled() bool { return c.databaseEnabled }
func (c *Config) GetDatabasePath() string  { return c.databasePath }

// Getter methods for Log section
func (c *Config) GetLogDebug() bool { return c.logDebug }
