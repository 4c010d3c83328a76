package dispatch

import (
	"errors"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Target is one downstream destination paired with its own bound socket.
// The socket belongs to the target for the whole session; targets are never
// shared and never reused.
type Target struct {
	Addr *net.UDPAddr
	Conn *net.UDPConn

	v6Multicast bool
}

// NewTarget resolves addr and returns a ready-to-send target. The socket is
// bound to the unspecified address of the matching family on an ephemeral
// port. Multicast groups are joined here; IPv6 multicast sockets are also
// pre-connected so that later sends need no destination.
func NewTarget(addr string) (*Target, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &Error{Kind: ErrAddressResolution, Name: addr, Err: err}
	}
	if raddr.IP == nil {
		return nil, &Error{Kind: ErrAddressResolution, Name: addr, Err: errors.New("no address found")}
	}

	if raddr.IP.IsMulticast() {
		if raddr.IP.To4() != nil {
			return newMulticastV4Target(addr, raddr)
		}
		return newMulticastV6Target(addr, raddr)
	}

	network := "udp6"
	if raddr.IP.To4() != nil {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, &Error{Kind: ErrBind, Name: addr, Err: err}
	}
	return &Target{Addr: raddr, Conn: conn}, nil
}

func newMulticastV4Target(addr string, raddr *net.UDPAddr) (*Target, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, &Error{Kind: ErrBind, Name: addr, Err: err}
	}
	// join on the unspecified local interface
	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(nil, &net.UDPAddr{IP: raddr.IP}); err != nil {
		conn.Close()
		return nil, &Error{Kind: ErrMulticastJoin, Name: addr, Err: err}
	}
	return &Target{Addr: raddr, Conn: conn}, nil
}

func newMulticastV6Target(addr string, raddr *net.UDPAddr) (*Target, error) {
	// Connecting first makes every later send an implicit-destination send.
	// The connect destination and the join interface are both platform
	// dependent, see connect_*.go and iface_*.go.
	conn, err := net.DialUDP("udp6", nil, v6ConnectAddr(raddr))
	if err != nil {
		return nil, &Error{Kind: ErrBind, Name: addr, Err: err}
	}
	ifi, err := multicastInterface()
	if err != nil {
		conn.Close()
		return nil, &Error{Kind: ErrMulticastJoin, Name: addr, Err: err}
	}
	p := ipv6.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: raddr.IP}); err != nil {
		conn.Close()
		return nil, &Error{Kind: ErrMulticastJoin, Name: addr, Err: err}
	}
	return &Target{Addr: raddr, Conn: conn, v6Multicast: true}, nil
}

// Send writes one chunk as a single datagram. IPv6 multicast sockets are
// pre-connected, so the destination is implicit there.
func (t *Target) Send(b []byte) error {
	var err error
	if t.v6Multicast {
		_, err = t.Conn.Write(b)
	} else {
		_, err = t.Conn.WriteToUDP(b, t.Addr)
	}
	if err != nil {
		return &Error{Kind: ErrSend, Name: t.Addr.String(), Err: err}
	}
	return nil
}

// Kind describes the delivery mode, for logs and stats.
func (t *Target) Kind() string {
	if t.Addr.IP.IsMulticast() {
		return "multicast"
	}
	return "unicast"
}

// Close releases the target's socket.
func (t *Target) Close() {
	if t.Conn != nil {
		t.Conn.Close()
	}
}
