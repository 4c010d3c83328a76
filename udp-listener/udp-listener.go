package main

import (
	"flag"
	"log"
	"net"
	"os"
)

func main() {
	var addr, out string
	var bufSize int
	flag.StringVar(&addr, "addr", "0.0.0.0:9910", "listen udp address, multicast groups are joined")
	flag.StringVar(&out, "out", "-", `dump file path, "-" for stdout`)
	flag.IntVar(&bufSize, "buf-size", 8096, "max datagram size")
	flag.Parse()

	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		log.Fatal(err)
	}

	var conn *net.UDPConn
	if laddr.IP != nil && laddr.IP.IsMulticast() {
		conn, err = net.ListenMulticastUDP("udp", nil, laddr)
	} else {
		conn, err = net.ListenUDP("udp", laddr)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	if err := conn.SetReadBuffer(256 * 1024); err != nil {
		log.Fatal(err)
	}

	f := os.Stdout
	if out != "-" {
		f, err = os.Create(out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}

	log.Printf("listening on %v", addr)
	buf := make([]byte, bufSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			log.Fatal(err)
		}
	}
}
