package sysinfo

import (
	"net"
	"strings"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
)

func TestPickIPv4(t *testing.T) {
	tests := []struct {
		name   string
		ifaces psnet.InterfaceStatList
		want   string
	}{
		{
			name: "skips loopback and down",
			ifaces: psnet.InterfaceStatList{
				{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
				{Name: "eth1", Flags: []string{"broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.1.1.1/24"}}},
				{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "192.168.1.20/24"}}},
			},
			want: "192.168.1.20",
		},
		{
			name: "skips ipv6 and link-local",
			ifaces: psnet.InterfaceStatList{
				{Name: "eth0", Flags: []string{"up"}, Addrs: psnet.InterfaceAddrList{
					{Addr: "fe80::1/64"},
					{Addr: "169.254.3.4/16"},
					{Addr: "10.0.0.5/8"},
				}},
			},
			want: "10.0.0.5",
		},
		{
			name:   "no interfaces",
			ifaces: nil,
			want:   "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickIPv4(tt.ifaces); got != tt.want {
				t.Errorf("pickIPv4() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvertisedIPExplicitHost(t *testing.T) {
	if got := AdvertisedIP("10.9.8.7"); got != "10.9.8.7" {
		t.Errorf("AdvertisedIP(10.9.8.7) = %q", got)
	}
}

func TestAdvertisedIPIsAlwaysIPv4(t *testing.T) {
	tests := []struct {
		host string
		want string // empty means any IPv4 literal
	}{
		{"localhost", "127.0.0.1"},
		{"::1", ""},
		{"::", ""},
		{"", ""},
		{"no-such-host.invalid", ""},
	}
	for _, tt := range tests {
		got := AdvertisedIP(tt.host)
		ip := net.ParseIP(got)
		if ip == nil || ip.To4() == nil || strings.Contains(got, ":") {
			t.Errorf("AdvertisedIP(%q) = %q, want an IPv4 literal", tt.host, got)
			continue
		}
		if tt.want != "" && got != tt.want {
			t.Errorf("AdvertisedIP(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestHostnameNotEmpty(t *testing.T) {
	if Hostname() == "" {
		t.Error("Hostname() returned empty string")
	}
}
