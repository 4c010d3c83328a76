//go:build windows
// +build windows

package dispatch

import "net"

// v6ConnectAddr returns the pre-connect destination for an IPv6 multicast
// socket. Windows refuses connects to the unspecified address, so the fully
// resolved group address is used instead.
func v6ConnectAddr(group *net.UDPAddr) *net.UDPAddr {
	return group
}
