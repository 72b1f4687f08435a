package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Shivanirao2000/frftp/source/iosrc"
	"github.com/Shivanirao2000/frftp/source/wire"
)

// fakeConn is a minimal transport.Conn double: Send appends to sent, Recv
// pops from a prepared inbound queue (or times out once it's empty).
type fakeConn struct {
	sent    [][]byte
	inbound [][]byte
	local   *net.UDPAddr
}

func (f *fakeConn) Send(addr *net.UDPAddr, b []byte) (int, error) {
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	return len(b), nil
}

func (f *fakeConn) Recv(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if len(f.inbound) == 0 {
		return 0, nil, timeoutErr{}
	}
	pkt := f.inbound[0]
	f.inbound = f.inbound[1:]
	n := copy(buf, pkt)
	return n, f.local, nil
}

func (f *fakeConn) LocalAddr() *net.UDPAddr { return f.local }
func (f *fakeConn) Close() error            { return nil }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "fakeConn: timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestSender(totalSegs uint32, win int) *Sender {
	cfg := Config{PeerAddr: addrReceiver, MTU: 1500, RTO: 10 * time.Millisecond, Retries: 4, Win: win}
	s := &Sender{cfg: cfg, conn: &fakeConn{}, src: &iosrc.MemSource{}, payloadMax: PayloadMax(cfg.MTU)}
	s.totalSegs = totalSegs
	n := totalSegs + 1
	s.acked = make([]bool, n)
	s.sentTs = make([]time.Time, n)
	s.txCnt = make([]uint32, n)
	s.base = 1
	s.nextToSend = 1
	return s
}

func TestApplyAckAdvancesBaseViaCumulative(t *testing.T) {
	s := newTestSender(10, 8)
	s.nextToSend = 6 // segments 1..5 considered sent
	s.applyAck(3, 0)
	if s.base != 4 {
		t.Fatalf("base = %d, want 4", s.base)
	}
	for seq := uint32(1); seq <= 3; seq++ {
		if !s.acked[seq] {
			t.Fatalf("seq %d should be acked", seq)
		}
	}
}

func TestApplyAckSackJumpsBaseBeyondCumulative(t *testing.T) {
	s := newTestSender(10, 8)
	s.nextToSend = 6
	// cum_ack=2 (seq 3 lost), but SACK bit 0 (seq=cum_ack+1=3) is NOT set,
	// bit 1 (seq=4) IS set: base should stop at 3 since 3 is still missing.
	mask := wire.SetSackBit(0, 1)
	s.applyAck(2, mask)
	if s.base != 3 {
		t.Fatalf("base = %d, want 3 (gap at seq 3 blocks advance)", s.base)
	}
	if !s.acked[4] {
		t.Fatal("seq 4 should be acked via SACK bit")
	}

	// Now the retransmitted seq 3 arrives via a fresh cumulative ack: base
	// should jump straight past the already-SACKed seq 4.
	s.applyAck(3, 0)
	if s.base != 5 {
		t.Fatalf("base = %d, want 5 (jumped past SACKed seq 4)", s.base)
	}
}

func TestAdvanceBaseStopsAtFirstGap(t *testing.T) {
	s := newTestSender(5, 8)
	s.acked[1] = true
	s.acked[2] = true
	// seq 3 missing
	s.acked[4] = true
	s.advanceBase()
	if s.base != 3 {
		t.Fatalf("base = %d, want 3", s.base)
	}
}

func TestApplyAckClampsCumAckAboveTotalSegs(t *testing.T) {
	s := newTestSender(3, 8)
	s.nextToSend = 4
	s.applyAck(99, 0)
	if s.base != 4 {
		t.Fatalf("base = %d, want 4 (transfer complete)", s.base)
	}
}

func TestTransmitWindowRespectsWindowSize(t *testing.T) {
	s := newTestSender(100, 4)
	s.src = &iosrc.MemSource{Data: make([]byte, int(PayloadMax(1500))*100)}
	s.fileSize = uint64(s.src.Size())
	fc := &fakeConn{}
	s.conn = fc
	s.transmitWindow()
	if len(fc.sent) != 4 {
		t.Fatalf("sent %d segments, want window size 4", len(fc.sent))
	}
	if s.nextToSend != 5 {
		t.Fatalf("nextToSend = %d, want 5", s.nextToSend)
	}
}

func TestRetransmitTimeoutsResendsAfterRTO(t *testing.T) {
	s := newTestSender(3, 8)
	s.src = &iosrc.MemSource{Data: make([]byte, int(PayloadMax(1500))*3)}
	fc := &fakeConn{}
	s.conn = fc
	s.nextToSend = 4
	s.sentTs[1] = time.Now().Add(-s.cfg.RTO * 2)
	s.txCnt[1] = 1
	s.sentTs[2] = time.Now() // fresh, should not resend
	s.txCnt[2] = 1
	s.sentTs[3] = time.Now() // fresh, should not resend
	s.txCnt[3] = 1

	if err := s.retransmitTimeouts(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.sent) != 1 {
		t.Fatalf("expected exactly 1 retransmit, got %d", len(fc.sent))
	}
	seq, _, _ := wire.DecodeData(fc.sent[0])
	if seq != 1 {
		t.Fatalf("retransmitted seq %d, want 1", seq)
	}
	if s.txCnt[1] != 2 {
		t.Fatalf("txCnt[1] = %d, want 2", s.txCnt[1])
	}
}

func TestRetransmitTimeoutsReturnsRetriesExhausted(t *testing.T) {
	s := newTestSender(3, 8)
	s.src = &iosrc.MemSource{Data: make([]byte, int(PayloadMax(1500))*3)}
	s.conn = &fakeConn{}
	s.nextToSend = 4
	s.txCnt[1] = uint32(s.cfg.Retries)
	s.sentTs[1] = time.Now().Add(-time.Hour)

	err := s.retransmitTimeouts()
	re, ok := err.(*RetriesExhaustedError)
	if !ok {
		t.Fatalf("want *RetriesExhaustedError, got %v (%T)", err, err)
	}
	if re.Seq != 1 {
		t.Fatalf("Seq = %d, want 1", re.Seq)
	}
}

func TestStartHandshakeSucceedsOnAnyAck(t *testing.T) {
	s := newTestSender(3, 8)
	fc := &fakeConn{inbound: [][]byte{wire.EncodeAck(0, 0)}, local: addrReceiver}
	s.conn = fc
	if err := s.startHandshake(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.sent) != 1 {
		t.Fatalf("expected exactly 1 START sent, got %d", len(fc.sent))
	}
	typ, _, _ := wire.DecodeHeader(fc.sent[0])
	if typ.Type != wire.TypeStart {
		t.Fatalf("sent frame type = %v, want START", typ.Type)
	}
}

func TestStartHandshakeFailsAfterRetries(t *testing.T) {
	s := newTestSender(3, 8)
	s.cfg.Retries = 3
	s.conn = &fakeConn{} // never responds
	err := s.startHandshake(context.Background())
	hf, ok := err.(*HandshakeFailedError)
	if !ok {
		t.Fatalf("want *HandshakeFailedError, got %v (%T)", err, err)
	}
	if hf.Phase != "START" {
		t.Fatalf("Phase = %q, want START", hf.Phase)
	}
}

func TestEndHandshakeRequiresFullCumAck(t *testing.T) {
	s := newTestSender(5, 8)
	s.cfg.Retries = 2
	// First reply under-acks (cum_ack=4 < total_segs=5): must retry. Second
	// reply fully acks: must succeed.
	fc := &fakeConn{inbound: [][]byte{wire.EncodeAck(4, 0), wire.EncodeAck(5, 0)}, local: addrReceiver}
	s.conn = fc
	if err := s.endHandshake(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.sent) != 2 {
		t.Fatalf("expected 2 END frames sent, got %d", len(fc.sent))
	}
}
