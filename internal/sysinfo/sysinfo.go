// Package sysinfo answers questions about the host the server runs on.
package sysinfo

import (
	"log"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	psnet "github.com/shirou/gopsutil/v3/net"
)

const fallbackIP = "127.0.0.1"

// Hostname returns the host name reported by the OS.
func Hostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// LocalIPv4 returns the first IPv4 address of an interface that is up and
// not loopback, or 127.0.0.1 when there is none.
func LocalIPv4() string {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		log.Printf("sysinfo: listing interfaces: %v", err)
		return fallbackIP
	}
	return pickIPv4(ifaces)
}

func pickIPv4(ifaces psnet.InterfaceStatList) string {
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			addr := a.Addr
			if i := strings.IndexByte(addr, '/'); i >= 0 {
				addr = addr[:i]
			}
			ip := net.ParseIP(addr)
			if ip == nil || ip.To4() == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			return ip.String()
		}
	}
	return fallbackIP
}

// AdvertisedIP is the address clients should use to reach a listener bound
// to host. Announcements carry an IPv4 literal, so wildcard binds advertise
// the primary interface address and host names are resolved. A host with no
// IPv4 address also falls back to the primary interface.
func AdvertisedIP(host string) string {
	switch host {
	case "", "0.0.0.0", "::":
		return LocalIPv4()
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		log.Printf("sysinfo: %s is not IPv4, advertising the primary interface instead", host)
		return LocalIPv4()
	}
	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		log.Printf("sysinfo: resolving %s: %v", host, err)
		return LocalIPv4()
	}
	return addr.IP.String()
}
