//go:build !windows
// +build !windows

package dispatch

import "net"

// v6ConnectAddr returns the pre-connect destination for an IPv6 multicast
// socket: the unspecified address with the group's port.
func v6ConnectAddr(group *net.UDPAddr) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv6unspecified, Port: group.Port}
}
