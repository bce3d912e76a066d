// Package loopback implements pktio.Plane as an in-process software patch
// cable: two planes, each dequeuing what the other enqueues. It stands in
// for the real NIC/mempool plane in tests and in the bundled scenario demo.
package loopback

import (
	"sync"

	"github.com/heistp/homaflow/internal/clock"
	"github.com/heistp/homaflow/internal/pktio"
)

const maxFrameLen = 2048

// Pair is two connected Planes.
type Pair struct {
	A, B *Plane
}

// New returns a connected Pair, each side with the given mempool capacity
// and per-call accept limit (simulating a NIC ring that can't always
// accept a whole burst, to exercise the TX retry path).
func New(poolCapacity, maxAcceptPerCall int) *Pair {
	qAB := newQueue()
	qBA := newQueue()
	a := &Plane{rx: qBA, tx: qAB, pool: newPool(poolCapacity), maxAccept: maxAcceptPerCall}
	b := &Plane{rx: qAB, tx: qBA, pool: newPool(poolCapacity), maxAccept: maxAcceptPerCall}
	return &Pair{A: a, B: b}
}

// Plane is one side of a Pair.
type Plane struct {
	clock.RealSource
	rx        *queue
	tx        *queue
	pool      *pool
	maxAccept int
}

var _ pktio.Plane = (*Plane)(nil)

// RxBurst implements pktio.Plane.
func (p *Plane) RxBurst(cap int) []*pktio.Packet {
	return p.rx.take(cap)
}

// TxBurst implements pktio.Plane.
func (p *Plane) TxBurst(pkts []*pktio.Packet) int {
	n := len(pkts)
	if p.maxAccept > 0 && n > p.maxAccept {
		n = p.maxAccept
	}
	p.tx.put(pkts[:n])
	return n
}

// AllocPacket implements pktio.Plane.
func (p *Plane) AllocPacket() *pktio.Packet {
	return p.pool.get()
}

// FreePacket implements pktio.Plane.
func (p *Plane) FreePacket(pkt *pktio.Packet) {
	p.pool.put(pkt)
}

// queue is an unbounded FIFO of packets, sized generously for a loopback
// test; a real NIC ring would be bounded and is out of scope here.
type queue struct {
	mu  sync.Mutex
	buf []*pktio.Packet
}

func newQueue() *queue { return &queue{} }

func (q *queue) put(pkts []*pktio.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, pkts...)
}

func (q *queue) take(cap int) []*pktio.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cap > len(q.buf) {
		cap = len(q.buf)
	}
	out := q.buf[:cap]
	q.buf = q.buf[cap:]
	return out
}

// pool is a capped free-list mempool.
type pool struct {
	free []*pktio.Packet
	cap  int
}

func newPool(capacity int) *pool {
	p := &pool{cap: capacity}
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, &pktio.Packet{Data: make([]byte, maxFrameLen)})
	}
	return p
}

func (p *pool) get() *pktio.Packet {
	if len(p.free) == 0 {
		return nil
	}
	pkt := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return pkt
}

func (p *pool) put(pkt *pktio.Packet) {
	if len(p.free) >= p.cap {
		return
	}
	pkt.Len = 0
	p.free = append(p.free, pkt)
}
