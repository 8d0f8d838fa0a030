package sink

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/pion/rtp"
)

type OutputState int32

const (
	OutputOk OutputState = iota
	OutputMuted
	OutputDelete
)

// PacketWriter is a local consumer of relayed RTP packets.
type PacketWriter interface {
	WriteRTP(pkt *rtp.Packet) error
}

// Output is one destination of a relay.
type Output struct {
	Writer PacketWriter
	state  atomic.Int32 // Zero by default (OutputOk)
}

func NewOutput(w PacketWriter) *Output {
	return &Output{Writer: w}
}

func (o *Output) State() OutputState {
	return OutputState(o.state.Load())
}

func (o *Output) MarkOk() {
	o.state.CompareAndSwap(int32(OutputMuted), int32(OutputOk))
}

func (o *Output) MarkMuted() {
	o.state.CompareAndSwap(int32(OutputOk), int32(OutputMuted))
}

func (o *Output) MarkDelete() {
	o.state.Store(int32(OutputDelete))
}

// UDPWriter sends marshalled RTP packets to a fixed address, e.g. for
// `ffplay rtp://...` or a GStreamer pipeline.
type UDPWriter struct {
	addr string
	conn net.Conn
}

func DialUDP(addr string) (*UDPWriter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("sink: dial %s: %w", addr, err)
	}
	return &UDPWriter{addr: addr, conn: conn}, nil
}

func (w *UDPWriter) Addr() string { return w.addr }

func (w *UDPWriter) WriteRTP(pkt *rtp.Packet) error {
	b, err := pkt.Marshal()
	if err != nil {
		return err
	}
	_, err = w.conn.Write(b)
	return err
}

func (w *UDPWriter) Close() error {
	return w.conn.Close()
}
