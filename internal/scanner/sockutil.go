package scanner

import (
	"fmt"
	"net"
	"os"
)

func parseIPv4(ip string) ([4]byte, error) {
	var out [4]byte
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return out, fmt.Errorf("scanner: invalid IPv4 address %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return out, fmt.Errorf("scanner: not an IPv4 address %q", ip)
	}
	copy(out[:], v4)
	return out, nil
}

func fdToFile(fd int, name string) *os.File {
	return os.NewFile(uintptr(fd), name)
}
