package sysinfo

import "net"

// Interface is one non-loopback IPv4 host interface.
type Interface struct {
	Name string
	IP   string // dotted quad
	Net  *net.IPNet
}

// Interfaces enumerates every non-loopback IPv4 interface address.
func Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []Interface
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			out = append(out, Interface{Name: ifc.Name, IP: ip4.String(), Net: ipnet})
		}
	}
	return out, nil
}
