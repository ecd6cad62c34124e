// Package netinfo reports the address the control surface is reachable on.
package netinfo

import (
	"net"
	"strings"
)

const (
	ModeStation     = "STA"
	ModeAccessPoint = "AP"
)

type Info struct {
	IP   string `json:"ip"`
	Mode string `json:"mode"`
}

// Interface is the subset of net.Interface used for address discovery.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// Detector resolves connectivity info. Interfaces is replaceable in tests.
type Detector struct {
	Mode       string
	Interfaces func() ([]Interface, error)
}

func NewDetector(mode string) *Detector {
	return &Detector{Mode: mode, Interfaces: systemInterfaces}
}

// Detect never fails; IP is empty when no address is found.
func (d *Detector) Detect() Info {
	info := Info{Mode: ModeStation}
	if strings.EqualFold(d.Mode, "ap") {
		info.Mode = ModeAccessPoint
	}

	ifaces, err := d.Interfaces()
	if err != nil {
		return info
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range iface.Addrs {
			if ip := ipv4(addr); ip != nil && !ip.IsLoopback() {
				info.IP = ip.String()
				return info
			}
		}
	}

	return info
}

func ipv4(addr net.Addr) net.IP {
	var ip net.IP
	switch a := addr.(type) {
	case *net.IPNet:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	}

	return ip.To4()
}

func systemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}

	return out, nil
}
