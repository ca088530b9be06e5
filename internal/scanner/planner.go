package scanner

import (
	"net"

	"github.com/snokvist/autod-sub000/internal/sysinfo"
)

const maxTargets = 2048

// Target is one (ip, port) pair to probe.
type Target struct {
	IP   string
	Port int
}

// Plan implements spec.md §4.3's target-planning order: registry
// hits, ARP table, per-interface subnet walk, extra CIDRs; results are
// deduplicated and capped at maxTargets.
func Plan(reg *Registry, port int, selfIPs map[string]bool, extraCIDRs []string) []Target {
	seen := make(map[string]bool)
	var out []Target

	add := func(ip string) {
		if len(out) >= maxTargets {
			return
		}
		if seen[ip] || selfIPs[ip] || isLinkLocalOrLoopback(ip) {
			return
		}
		seen[ip] = true
		out = append(out, Target{IP: ip, Port: port})
	}

	for _, n := range reg.All() {
		if n.Port == port && !n.IsSelf {
			add(n.IP)
		}
	}

	if arp, ok := sysinfo.ReadARPTable(); ok {
		for _, e := range arp {
			add(e.IP)
		}
	}

	ifaces, err := sysinfo.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			walkSubnet(ifc.Net, add)
		}
	}

	for _, cidr := range extraCIDRs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		walkSubnet(ipnet, add)
	}

	return out
}

// walkSubnet calls add for every usable host address in ipnet,
// excluding the network and broadcast addresses (so a /31 yields no
// addresses), and treating /32 as a single host per spec.md §4.3 step 4.
func walkSubnet(ipnet *net.IPNet, add func(string)) {
	if ipnet == nil {
		return
	}
	ones, bits := ipnet.Mask.Size()
	if bits != 32 {
		return
	}
	if ones == 32 {
		add(ipnet.IP.String())
		return
	}

	network := ipToUint32(ipnet.IP.Mask(ipnet.Mask))
	hostBits := 32 - ones
	count := uint32(1) << uint(hostBits)
	broadcast := network + count - 1

	for ip := network + 1; ip < broadcast; ip++ {
		add(uint32ToIP(ip).String())
	}
}

func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func isLinkLocalOrLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast()
}
