package export

import (
	"context"
	"fmt"
	"net"
	"time"
)

// UDPExporter sends reports as line protocol datagrams, typically to a
// telegraf socket listener.
type UDPExporter struct {
	conn *net.UDPConn
}

func NewUDPExporter(addr string) (*UDPExporter, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving telegraf address %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing telegraf address %s: %w", addr, err)
	}
	return &UDPExporter{conn: conn}, nil
}

func (u *UDPExporter) Name() string { return "udp" }

func (u *UDPExporter) Export(ctx context.Context, r Report) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = u.conn.SetWriteDeadline(deadline)
	} else {
		_ = u.conn.SetWriteDeadline(time.Time{})
	}

	payload := []byte(InfluxLine(r))
	totalWritten := 0
	for totalWritten < len(payload) {
		n, err := u.conn.Write(payload[totalWritten:])
		if err != nil {
			return err
		}
		totalWritten += n
	}
	return nil
}

func (u *UDPExporter) Close() error {
	return u.conn.Close()
}
