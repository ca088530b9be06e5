// Package udpsend sends one datagram from an ephemeral UDP socket, the
// core behind POST /udp (spec.md §4.1). The actual fan-out relay to
// many peers is a separate binary, out of scope here.
package udpsend

import (
	"fmt"
	"net"
)

// Send resolves host:port and writes payload once from an ephemeral
// socket, returning the number of bytes written. An empty host is
// rejected with an error.
func Send(host string, port int, payload []byte) (int, error) {
	if host == "" {
		return 0, fmt.Errorf("udpsend: empty host")
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return 0, fmt.Errorf("udpsend: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return 0, fmt.Errorf("udpsend: dial %s: %w", addr, err)
	}
	defer conn.Close()

	n, err := conn.Write(payload)
	if err != nil {
		return n, fmt.Errorf("udpsend: write: %w", err)
	}
	return n, nil
}
