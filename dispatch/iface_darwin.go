//go:build darwin
// +build darwin

package dispatch

import (
	"errors"
	"net"
)

// multicastInterface reports the interface for IPv6 group joins. Joining on
// index 0 fails on darwin, so the default multicast-capable interface is
// queried instead.
func multicastInterface() (*net.Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifs {
		ifi := &ifs[i]
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		return ifi, nil
	}
	return nil, errors.New("no up multicast-capable interface")
}
