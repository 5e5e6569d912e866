// Package netinfo finds the LAN-facing IPv4 address used to build the
// proxy URLs embedded in Cast LOAD requests: a receiver on the same subnet
// has to be able to dial back into this process.
package netinfo

import (
	"errors"
	"net"
)

// ErrNoLANAddress is returned when no non-loopback IPv4 interface address
// could be found.
var ErrNoLANAddress = errors.New("netinfo: no LAN IPv4 address found")

// LocalIPv4 returns the first non-loopback IPv4 address bound to this
// host. When multiple interfaces are up (wired + Wi-Fi), the first one
// reported by the OS is used; callers on a dual-homed box that need a
// specific interface should resolve it themselves.
func LocalIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}

	return nil, ErrNoLANAddress
}

// LocalIPv4String is a convenience wrapper returning the address as a
// string, or "" if none was found.
func LocalIPv4String() string {
	ip, err := LocalIPv4()
	if err != nil {
		return ""
	}
	return ip.String()
}
