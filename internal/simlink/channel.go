// Package simlink is a test-only lossy/reordering/duplicating/rate-limited
// virtual datagram channel, used to exercise the property tests in
// spec.md §8 (duplication, reordering, bounded loss) without a real
// network. It implements source/transport.Conn on both ends so
// source/session's Sender and Receiver run unmodified against it.
//
// Grounded on spec.md §8's property list directly (this harness exists
// because the spec asks for it) and on tinyrange-cc's indirect dependency
// on golang.org/x/time for token-bucket rate limiting.
package simlink

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Options configures the impairments applied in both directions of a
// Channel. A zero value is a perfect, instant, unlimited link.
type Options struct {
	LossProb     float64       // probability a given datagram is dropped
	DupProb      float64       // probability a given datagram is duplicated
	DelayMin     time.Duration // minimum one-way delay
	DelayMax     time.Duration // maximum one-way delay (jitter upper bound)
	RateBytesSec int           // 0 = unlimited
	Rand         *rand.Rand    // nil = a source with the fixed seed 1
}

// Channel is a symmetric two-party virtual link. EndpointA and EndpointB
// each implement transport.Conn.
type Channel struct {
	opts    Options
	rngMu   sync.Mutex
	rng     *rand.Rand
	limiter *rate.Limiter

	a, b *Endpoint
}

// NewChannel builds a Channel with the given impairments and two addressed
// endpoints (addrA, addrB are purely identifying — no real socket is
// opened).
func NewChannel(opts Options, addrA, addrB *net.UDPAddr) *Channel {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	c := &Channel{opts: opts, rng: opts.Rand}
	if opts.RateBytesSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateBytesSec), opts.RateBytesSec)
	}
	c.a = newEndpoint(addrA, addrB)
	c.b = newEndpoint(addrB, addrA)
	c.a.peerChannel = c
	c.b.peerChannel = c
	return c
}

func (c *Channel) EndpointA() *Endpoint { return c.a }
func (c *Channel) EndpointB() *Endpoint { return c.b }

// deliver applies rate limiting and loss/dup/delay to a frame sent towards `to`.
func (c *Channel) deliver(to *Endpoint, frame []byte) {
	if c.limiter != nil {
		_ = c.limiter.WaitN(context.Background(), len(frame))
	}
	c.rngMu.Lock()
	drop := c.rng.Float64() < c.opts.LossProb
	dup := c.rng.Float64() < c.opts.DupProb
	delay := c.jitter()
	var delay2 time.Duration
	if dup {
		delay2 = c.jitter()
	}
	c.rngMu.Unlock()

	if drop {
		return
	}
	cp := append([]byte(nil), frame...)
	time.AfterFunc(delay, func() { to.enqueue(cp) })
	if dup {
		cp2 := append([]byte(nil), frame...)
		time.AfterFunc(delay2, func() { to.enqueue(cp2) })
	}
}

func (c *Channel) jitter() time.Duration {
	if c.opts.DelayMax <= c.opts.DelayMin {
		return c.opts.DelayMin
	}
	span := c.opts.DelayMax - c.opts.DelayMin
	return c.opts.DelayMin + time.Duration(c.rng.Int63n(int64(span)))
}

// Endpoint implements source/transport.Conn against a Channel.
type Endpoint struct {
	addr        *net.UDPAddr
	peerAddr    *net.UDPAddr
	peerChannel *Channel

	mu     sync.Mutex
	queue  [][]byte
	signal chan struct{}
	closed bool
}

func newEndpoint(self, peer *net.UDPAddr) *Endpoint {
	return &Endpoint{addr: self, peerAddr: peer, signal: make(chan struct{}, 1)}
}

func (e *Endpoint) Send(addr *net.UDPAddr, b []byte) (int, error) {
	var to *Endpoint
	if e.peerChannel.a == e {
		to = e.peerChannel.b
	} else {
		to = e.peerChannel.a
	}
	e.peerChannel.deliver(to, b)
	return len(b), nil
}

func (e *Endpoint) Recv(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			pkt := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			n := copy(buf, pkt)
			return n, e.peerAddr, nil
		}
		if e.closed {
			e.mu.Unlock()
			return 0, nil, errClosed
		}
		e.mu.Unlock()

		select {
		case <-e.signal:
			continue
		case <-deadline.C:
			return 0, nil, errTimeout
		}
	}
}

func (e *Endpoint) enqueue(b []byte) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, b)
	e.mu.Unlock()
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

func (e *Endpoint) LocalAddr() *net.UDPAddr { return e.addr }

func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	select {
	case e.signal <- struct{}{}:
	default:
	}
	return nil
}
