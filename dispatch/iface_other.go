//go:build !darwin
// +build !darwin

package dispatch

import "net"

// multicastInterface reports the interface for IPv6 group joins.
// nil means interface index 0, the kernel picks.
func multicastInterface() (*net.Interface, error) {
	return nil, nil
}
