package session

import (
	"context"
	"net"

	"github.com/Shivanirao2000/frftp/source/iosrc"
	"github.com/Shivanirao2000/frftp/source/transport"
	"github.com/Shivanirao2000/frftp/source/wire"
)

// ReceiverHooks mirrors SenderHooks for the receive side.
type ReceiverHooks struct {
	OnStart       func(peer *net.UDPAddr, fileSize uint64, totalSegs uint32)
	OnDataWritten func(seq uint32, duplicate bool)
	OnAckSent     func(cumAck uint32, sackMask uint64)
	OnMalformed   func(err error)
	OnSocketError func(err error)
}

// Receiver implements spec.md §4.4: datagram handling, write-in-place
// assembly tolerant of out-of-order arrival, and peer locking onto the
// first valid START (spec.md §4.2, §1's "single-flow" non-goal).
type Receiver struct {
	cfg   Config
	conn  transport.Conn
	sink  iosrc.Sink
	hooks ReceiverHooks

	started       bool
	peer          *net.UDPAddr
	expectedTotal uint64
	totalSegs     uint32
	payloadMax    int
	have          []bool
	cumAck        uint32
	received      uint64
}

// NewReceiver constructs a Receiver that will accept the first valid START
// on conn and write the transferred file into sink.
func NewReceiver(cfg Config, conn transport.Conn, sink iosrc.Sink, hooks ReceiverHooks) *Receiver {
	return &Receiver{cfg: cfg, conn: conn, sink: sink, hooks: hooks, payloadMax: PayloadMax(cfg.MTU)}
}

// Run processes datagrams until it has observed END with cum_ack ==
// total_segs, then returns finish's size check (nil when every expected
// byte was received). It does not sync or close the sink; the caller owns it.
func (r *Receiver) Run(ctx context.Context) error {
	buf := make([]byte, wire.HeaderLen+int(r.payloadMax)+64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, addr, err := r.conn.Recv(buf, r.cfg.RTO)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.reportSocketError(err)
			continue
		}
		done, err := r.handleDatagram(buf[:n], addr)
		if err != nil {
			return err
		}
		if done {
			return r.finish()
		}
	}
}

func (r *Receiver) handleDatagram(data []byte, addr *net.UDPAddr) (done bool, err error) {
	h, derr := wire.DecodeHeader(data)
	if derr != nil {
		r.reportMalformed(derr)
		return false, nil
	}

	if r.started && !addrEqual(addr, r.peer) {
		return false, nil // peer locking: datagrams from other sources ignored
	}

	switch h.Type {
	case wire.TypeStart:
		return false, r.handleStart(data, addr)
	case wire.TypeData:
		r.handleData(data)
		return false, nil
	case wire.TypeEnd:
		return r.handleEnd(data)
	default:
		return false, nil // unknown type or not-yet-started: ignore silently
	}
}

func (r *Receiver) handleStart(data []byte, addr *net.UDPAddr) error {
	fileSize, derr := wire.DecodeStart(data)
	if derr != nil {
		r.reportMalformed(derr)
		return nil
	}
	if !r.started {
		r.expectedTotal = fileSize
		r.totalSegs = r.cfg.TotalSegs(fileSize)
		r.have = make([]bool, r.totalSegs+1)
		r.peer = addr
		r.started = true
		if err := r.sink.Resize(int64(fileSize)); err != nil {
			return err
		}
		if r.hooks.OnStart != nil {
			r.hooks.OnStart(addr, fileSize, r.totalSegs)
		}
	}
	// Every valid START (first or repeat) is answered, idempotently,
	// without resetting state — this is what makes the sender's
	// handshake retries safe (spec.md §4.2).
	r.sendAck()
	return nil
}

func (r *Receiver) handleData(data []byte) {
	if !r.started {
		return
	}
	seq, payload, derr := wire.DecodeData(data)
	if derr != nil {
		r.reportMalformed(derr)
		return
	}
	// Oversize or out-of-range DATA is treated as malformed and dropped,
	// not ACKed — resolving the ambiguity flagged in spec.md §9.
	if len(payload) > r.payloadMax || seq < 1 || seq > r.totalSegs {
		r.reportMalformed(wire.ErrMalformedFrame)
		return
	}

	duplicate := r.have[seq]
	if !duplicate {
		start, _ := SegmentRange(seq, r.expectedTotal, r.cfg.MTU)
		if _, err := r.sink.WriteAt(payload, int64(start)); err != nil {
			r.reportSocketError(err)
			return
		}
		r.have[seq] = true
		r.received += uint64(len(payload))
		for r.cumAck < r.totalSegs && r.have[r.cumAck+1] {
			r.cumAck++
		}
	}
	if r.hooks.OnDataWritten != nil {
		r.hooks.OnDataWritten(seq, duplicate)
	}
	// Always reply, including on duplicates: the sender may have lost an
	// earlier ACK (spec.md §4.4).
	r.sendAck()
}

func (r *Receiver) handleEnd(data []byte) (done bool, err error) {
	if !r.started {
		return false, nil
	}
	if _, derr := wire.DecodeEnd(data); derr != nil {
		r.reportMalformed(derr)
		return false, nil
	}
	r.sendAck()
	return r.cumAck == r.totalSegs, nil
}

func (r *Receiver) finish() error {
	if r.received < r.expectedTotal {
		return &SizeMismatchError{Expected: r.expectedTotal, Received: r.received}
	}
	return nil
}

// sendAck builds and transmits an ACK carrying the current cumulative ack
// and the SACK mask for the 64 slots immediately above it (spec.md §4.4).
func (r *Receiver) sendAck() {
	mask := r.buildSackMask()
	frame := wire.EncodeAck(r.cumAck, mask)
	if _, err := r.conn.Send(r.peer, frame); err != nil {
		r.reportSocketError(err)
		return
	}
	if r.hooks.OnAckSent != nil {
		r.hooks.OnAckSent(r.cumAck, mask)
	}
}

func (r *Receiver) buildSackMask() uint64 {
	var mask uint64
	for i := uint(0); i < 64; i++ {
		seq := r.cumAck + 1 + uint32(i)
		if seq <= r.totalSegs && r.have[seq] {
			mask = wire.SetSackBit(mask, i)
		}
	}
	return mask
}

func (r *Receiver) reportMalformed(err error) {
	if r.hooks.OnMalformed != nil {
		r.hooks.OnMalformed(err)
	}
}

func (r *Receiver) reportSocketError(err error) {
	if r.hooks.OnSocketError != nil {
		r.hooks.OnSocketError(err)
	}
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
