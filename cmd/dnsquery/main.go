// Command dnsquery is a small diagnostic UDP client for checkipdns.
// It sends a single query and prints the decoded reply.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ip4live/checkipdns/internal/dns"
	"github.com/ip4live/checkipdns/internal/helpers"
)

func main() {
	var (
		server   = flag.String("server", "127.0.0.1:1053", "DNS server HOST:PORT")
		name     = flag.String("name", "my.ip4.live", "Query name")
		qtype    = flag.Int("qtype", 1, "Query type (numeric, A=1, ANY=255)")
		timeout  = flag.Duration("timeout", 2*time.Second, "Timeout")
		recvSize = flag.Int("recv-size", 2048, "UDP receive buffer size")
		quiet    = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := queryUDP(*server, *name, helpers.ClampIntToUint16(*qtype), *timeout, *recvSize)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	printResponse(resp)
}

func printResponse(resp []byte) {
	off := 0
	h, err := dns.ParseHeader(resp, &off)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable)\n", len(resp))
		return
	}

	fmt.Printf("id=%d rcode=%d aa=%v qdcount=%d ancount=%d\n",
		h.ID, h.RCode, h.AA, h.QDCount, h.ANCount)

	// Replies from checkipdns never carry questions, but skip any that a
	// different server might echo back.
	for i := uint16(0); i < h.QDCount; i++ {
		if _, err := dns.ParseQuestion(resp, &off); err != nil {
			fmt.Printf("(question section unparseable: %v)\n", err)
			return
		}
	}

	for i := uint16(0); i < h.ANCount; i++ {
		rr, err := dns.ParseResourceRecord(resp, &off)
		if err != nil {
			fmt.Printf("(answer section unparseable: %v)\n", err)
			return
		}
		fmt.Println(formatRR(rr))
	}
}

func queryUDP(server, name string, qtype uint16, timeout time.Duration, recvSize int) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reqBytes, err := buildQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	if _, err := c.Write(reqBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, recvSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func buildQuery(name string, qtype uint16) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name required")
	}

	id := uint16(time.Now().UnixNano())
	if id == 0 {
		id = 0x1234
	}
	h := dns.Header{ID: id, RD: true, QDCount: 1}
	q := dns.Question{Name: name, Type: qtype, Class: dns.ClassIN}
	qb, err := q.Marshal()
	if err != nil {
		return nil, err
	}
	return append(h.Marshal(), qb...), nil
}

func formatRR(rr dns.ResourceRecord) string {
	name := rr.Name
	if name == "" {
		name = "."
	}
	if rr.Type == dns.TypeA && len(rr.RData) == 4 {
		return fmt.Sprintf("%s %d IN A %d.%d.%d.%d", name, rr.TTL, rr.RData[0], rr.RData[1], rr.RData[2], rr.RData[3])
	}
	return fmt.Sprintf("%s %d IN TYPE%d (%d bytes rdata)", name, rr.TTL, rr.Type, len(rr.RData))
}
