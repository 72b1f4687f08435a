package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Shivanirao2000/frftp/source/iosrc"
	"github.com/Shivanirao2000/frftp/source/transport"
	"github.com/Shivanirao2000/frftp/source/wire"
)

// SenderHooks lets callers (the CLI's progress bar, pkg/metrics) observe
// engine activity without the engine importing them — mirrors the teacher's
// separation between source/protocol (pure engine) and source/server
// (orchestration that reacts to engine events).
type SenderHooks struct {
	OnSegmentSent  func(seq uint32, retransmit bool)
	OnAck          func(cumAck uint32, sackMask uint64)
	OnWindowUpdate func(inFlight int)
	OnMalformed    func(err error)
	OnSocketError  func(err error)
}

// Sender drives the sliding-window selective-repeat engine described in
// spec.md §4.3. One Sender is created per transfer and discarded at session
// end; it owns no package-level mutable state (spec.md §9's re-architecture
// note for the teacher's process-wide Session fields).
type Sender struct {
	cfg   Config
	conn  transport.Conn
	src   iosrc.Source
	hooks SenderHooks

	fileSize   uint64
	totalSegs  uint32
	payloadMax int

	// Per-segment state, arrays indexed by seq (index 0 unused), length
	// totalSegs+1, per spec.md §3.
	acked  []bool
	sentTs []time.Time
	txCnt  []uint32

	base       uint32 // invariant 1: smallest seq>=1 with !acked[seq], or totalSegs+1
	nextToSend uint32
	inFlight   int
}

// NewSender constructs a Sender for transferring src to peer over conn. cfg
// must already have passed Validate.
func NewSender(cfg Config, conn transport.Conn, src iosrc.Source, hooks SenderHooks) *Sender {
	return &Sender{cfg: cfg, conn: conn, src: src, hooks: hooks}
}

// Run executes the full session lifecycle: START handshake, the
// transmit/ack/retransmit cycle until every segment is acknowledged, and
// the END handshake. It returns nil only on full success.
func (s *Sender) Run(ctx context.Context) error {
	s.fileSize = uint64(s.src.Size())
	s.totalSegs = s.cfg.TotalSegs(s.fileSize)
	s.payloadMax = PayloadMax(s.cfg.MTU)

	n := s.totalSegs + 1
	s.acked = make([]bool, n)
	s.sentTs = make([]time.Time, n)
	s.txCnt = make([]uint32, n)
	s.base = 1
	s.nextToSend = 1
	if s.totalSegs == 0 {
		s.base = 1 // an empty file still needs START/END but no DATA
	}

	if err := s.startHandshake(ctx); err != nil {
		return err
	}

	for s.base <= s.totalSegs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.transmitWindow()
		if err := s.drainOneAck(ctx); err != nil {
			return err
		}
		if err := s.retransmitTimeouts(); err != nil {
			return err
		}
	}

	return s.endHandshake(ctx)
}

// transmitWindow implements spec.md §4.3 step 1: send within the window,
// strictly ascending seq order.
func (s *Sender) transmitWindow() {
	for s.nextToSend <= s.totalSegs && int(s.nextToSend-s.base) < s.cfg.Win {
		seq := s.nextToSend
		s.sendSegment(seq, false)
		s.nextToSend++
	}
	s.reportWindow()
}

func (s *Sender) sendSegment(seq uint32, retransmit bool) {
	start, end := SegmentRange(seq, s.fileSize, s.cfg.MTU)
	buf := make([]byte, end-start)
	if _, err := s.src.ReadAt(buf, int64(start)); err != nil {
		s.reportSocketError(fmt.Errorf("%w: read segment %d: %v", ErrIOError, seq, err))
		return
	}
	frame := wire.EncodeData(seq, buf)
	if _, err := s.conn.Send(s.cfg.PeerAddr, frame); err != nil {
		s.reportSocketError(err)
		// Per spec.md §4.5, send errors are logged, not fatal; the next
		// tick's timeout scan will retry.
	}
	s.txCnt[seq]++
	s.sentTs[seq] = time.Now()
	if s.hooks.OnSegmentSent != nil {
		s.hooks.OnSegmentSent(seq, retransmit)
	}
}

// drainOneAck implements spec.md §4.3 step 2: one receive bounded by RTO,
// processing at most one ACK datagram per tick.
func (s *Sender) drainOneAck(ctx context.Context) error {
	buf := make([]byte, wire.HeaderLen+wire.AckPayloadLen+64)
	n, _, err := s.conn.Recv(buf, s.cfg.RTO)
	if err != nil {
		if isTimeout(err) {
			return nil // no ACK this tick, fall through to retransmit scan
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Unexpected short/failed receive: treated as "no ACK this tick".
		s.reportSocketError(err)
		return nil
	}
	cumAck, sackMask, derr := wire.DecodeAck(buf[:n])
	if derr != nil {
		s.reportMalformed(derr)
		return nil
	}
	s.applyAck(cumAck, sackMask)
	if s.hooks.OnAck != nil {
		s.hooks.OnAck(cumAck, sackMask)
	}
	return nil
}

// applyAck implements the cumulative-then-SACK update and the two-phase
// base advance spec.md §4.3/§9 describes: advance on the cumulative ack,
// then again after SACK bits are applied (a SACK bit can set acked[base]
// and let base jump past what the plain cumulative value would allow).
func (s *Sender) applyAck(cumAck uint32, sackMask uint64) {
	if cumAck > s.totalSegs {
		cumAck = s.totalSegs
	}
	for seq := s.base; seq <= cumAck; seq++ {
		s.acked[seq] = true
	}
	s.advanceBase()

	for i := uint(0); i < 64; i++ {
		if !wire.SackBit(sackMask, i) {
			continue
		}
		seq := cumAck + 1 + uint32(i)
		if seq > s.totalSegs {
			continue
		}
		s.acked[seq] = true
	}
	s.advanceBase()
	s.reportWindow()
}

func (s *Sender) reportWindow() {
	s.inFlight = int(s.nextToSend - s.base)
	if s.hooks.OnWindowUpdate != nil {
		s.hooks.OnWindowUpdate(s.inFlight)
	}
}

func (s *Sender) advanceBase() {
	for s.base <= s.totalSegs && s.acked[s.base] {
		s.base++
	}
}

// retransmitTimeouts implements spec.md §4.3 step 3.
func (s *Sender) retransmitTimeouts() error {
	now := time.Now()
	for seq := s.base; seq < s.nextToSend; seq++ {
		if s.acked[seq] {
			continue
		}
		if s.txCnt[seq] >= uint32(s.cfg.Retries) {
			return &RetriesExhaustedError{Seq: seq}
		}
		if now.Sub(s.sentTs[seq]) >= s.cfg.RTO {
			s.sendSegment(seq, true)
		}
	}
	return nil
}

// startHandshake implements spec.md §4.2 (sender side): send START, wait up
// to one RTO for any ACK, retry up to Retries times.
func (s *Sender) startHandshake(ctx context.Context) error {
	frame := wire.EncodeStart(s.fileSize)
	buf := make([]byte, wire.HeaderLen+wire.AckPayloadLen+64)
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.conn.Send(s.cfg.PeerAddr, frame); err != nil {
			s.reportSocketError(err)
		}
		n, _, err := s.conn.Recv(buf, s.cfg.RTO)
		if err != nil {
			continue // timeout or transient error: retry START
		}
		_, _, derr := wire.DecodeAck(buf[:n])
		if derr == nil {
			return nil // any ACK is sufficient to leave the START loop
		}
		s.reportMalformed(derr)
	}
	return &HandshakeFailedError{Phase: "START"}
}

// endHandshake implements spec.md §4.3's END handshake. Unlike the lenient
// reference behaviour (any ACK confirms END), this implementation requires
// cum_ack == total_segs before terminating successfully — a deliberate,
// documented resolution of the Open Question in spec.md §9 favouring
// robustness over bit-for-bit parity with the original's looser check.
func (s *Sender) endHandshake(ctx context.Context) error {
	seq := s.totalSegs + 1
	frame := wire.EncodeEnd(seq)
	buf := make([]byte, wire.HeaderLen+wire.AckPayloadLen+64)
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.conn.Send(s.cfg.PeerAddr, frame); err != nil {
			s.reportSocketError(err)
		}
		n, _, err := s.conn.Recv(buf, s.cfg.RTO)
		if err != nil {
			continue
		}
		cumAck, _, derr := wire.DecodeAck(buf[:n])
		if derr != nil {
			s.reportMalformed(derr)
			continue
		}
		if cumAck >= s.totalSegs {
			return nil
		}
		// cum_ack below total_segs: keep retrying END. The data segments
		// are driven to completion by the main loop before endHandshake
		// is ever called, so such an ACK is a stale one for earlier DATA
		// (e.g. a duplicate or delayed ACK still queued on the socket).
	}
	return &HandshakeFailedError{Phase: "END"}
}

func (s *Sender) reportMalformed(err error) {
	if s.hooks.OnMalformed != nil {
		s.hooks.OnMalformed(err)
	}
}

func (s *Sender) reportSocketError(err error) {
	if s.hooks.OnSocketError != nil {
		s.hooks.OnSocketError(err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
