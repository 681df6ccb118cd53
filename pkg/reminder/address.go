package reminder

import (
	"fmt"
	"net"
	"net/netip"
)

// AddressSource reports the host's current IPv4 address.
type AddressSource interface {
	Addr() (netip.Addr, error)
}

// InterfaceAddress reads the first IPv4 address bound to a network interface.
type InterfaceAddress string

// Addr implements AddressSource.
func (name InterfaceAddress) Addr() (netip.Addr, error) {
	iface, err := net.InterfaceByName(string(name))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %s: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %s addresses: %w", name, err)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(ipnet.IP); ok && ip.Unmap().Is4() {
			return ip.Unmap(), nil
		}
	}
	return netip.Addr{}, fmt.Errorf("interface %s has no IPv4 address", name)
}

// StaticAddress always reports the same address.
type StaticAddress netip.Addr

// Addr implements AddressSource.
func (a StaticAddress) Addr() (netip.Addr, error) {
	return netip.Addr(a), nil
}

func parseSubnets(raw []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(raw))
	for _, r := range raw {
		p, err := netip.ParsePrefix(r)
		if err != nil {
			return nil, fmt.Errorf("staff subnet %q: %w", r, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
