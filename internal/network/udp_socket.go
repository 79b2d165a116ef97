// Package network provides the UDP-backed transceiver used to run the radio
// driver without attached hardware: frames go out as datagrams and arrive
// through a receive pump that fills the transceiver's pool buffer.
package network

import (
	"fmt"
	"log"
	"net"
)

// UDPSocket wraps a bound UDP socket with blocking reads. Close unblocks a
// pending Read.
type UDPSocket struct {
	conn    *net.UDPConn
	address string
	port    int
}

// NewUDPSocket creates a UDP socket bound to a specific local address and
// port. An empty address binds to all interfaces.
func NewUDPSocket(address string, port int) *UDPSocket {
	return &UDPSocket{
		address: address,
		port:    port,
	}
}

// Open binds the socket. Port 0 asks the OS for an ephemeral port.
func (s *UDPSocket) Open() error {
	localAddr := &net.UDPAddr{
		IP:   net.IPv4zero,
		Port: s.port,
	}
	if s.address != "" {
		localAddr.IP = net.ParseIP(s.address)
		if localAddr.IP == nil {
			return fmt.Errorf("invalid address: %s", s.address)
		}
	}

	conn, err := net.ListenUDP("udp4", localAddr)
	if err != nil {
		log.Printf("Error opening UDP socket: %v", err)
		return err
	}
	s.conn = conn

	log.Printf("UDP socket bound to %s", conn.LocalAddr().String())
	return nil
}

// LocalPort returns the bound port, useful when port 0 was requested.
func (s *UDPSocket) LocalPort() int {
	if s.conn == nil {
		return 0
	}
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Read blocks until a datagram arrives or the socket is closed.
func (s *UDPSocket) Read(buffer []byte) (int, *net.UDPAddr, error) {
	if s.conn == nil {
		return 0, nil, fmt.Errorf("socket not open")
	}
	return s.conn.ReadFromUDP(buffer)
}

// Write sends data to the specified address.
func (s *UDPSocket) Write(buffer []byte, addr *net.UDPAddr) error {
	if s.conn == nil {
		return fmt.Errorf("socket not open")
	}
	_, err := s.conn.WriteToUDP(buffer, addr)
	if err != nil {
		log.Printf("UDP write error: %v", err)
	}
	return err
}

// Close closes the socket and unblocks any pending Read.
func (s *UDPSocket) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Lookup resolves a hostname to an IPv4 address.
func Lookup(hostname string) (net.IP, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip, nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %s", hostname)
}

// ParseUDPAddr resolves an address:port pair into a UDP address.
func ParseUDPAddr(address string, port int) (*net.UDPAddr, error) {
	ip, err := Lookup(address)
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}
