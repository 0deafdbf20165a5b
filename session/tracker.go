package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"smppgw/pdu"
)

// MaxSequence is the highest sequence number; the allocator wraps to 1.
const MaxSequence = 0x7FFFFFFF

// sequencer allocates sequence numbers. It is owned by the tracker and used
// under its lock.
type sequencer struct {
	last uint32
}

// next returns the following number, skipping 0 and numbers in use.
func (s *sequencer) next(inUse func(uint32) bool) uint32 {
	for {
		s.last++
		if s.last == 0 || s.last > MaxSequence {
			s.last = 1
		}
		if inUse == nil || !inUse(s.last) {
			return s.last
		}
	}
}

type response struct {
	pdu *pdu.PDU
	err error
}

// pending is an outstanding request awaiting its response.
type pending struct {
	seq    uint32
	id     pdu.CommandID
	issued time.Time
	slot   chan response // filled exactly once
}

// tracker correlates outbound requests with inbound responses.
type tracker struct {
	mu      sync.Mutex
	seq     sequencer
	pending map[uint32]*pending
	closed  error
}

func newTracker() *tracker {
	return &tracker{pending: make(map[uint32]*pending)}
}

func (t *tracker) inUse(seq uint32) bool {
	_, ok := t.pending[seq]
	return ok
}

// register allocates a sequence number and inserts a pending slot for it.
func (t *tracker) register(id pdu.CommandID) (*pending, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed != nil {
		return nil, t.closed
	}
	p := &pending{
		seq:    t.seq.next(t.inUse),
		id:     id,
		issued: time.Now(),
		slot:   make(chan response, 1),
	}
	t.pending[p.seq] = p
	pendingTransactions.Inc()
	return p, nil
}

// nextSequence allocates a number for a request that expects no response.
func (t *tracker) nextSequence() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq.next(t.inUse)
}

// lookup returns the pending request with the sequence number.
func (t *tracker) lookup(seq uint32) (*pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[seq]
	return p, ok
}

// remove drops the slot and reports whether it was still pending.
func (t *tracker) remove(seq uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[seq]; !ok {
		return false
	}
	delete(t.pending, seq)
	pendingTransactions.Dec()
	return true
}

// resolve hands a response to its waiter. It returns false for orphans.
func (t *tracker) resolve(p *pdu.PDU) bool {
	t.mu.Lock()
	w, ok := t.pending[p.Sequence]
	if ok {
		delete(t.pending, p.Sequence)
		pendingTransactions.Dec()
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	w.slot <- response{pdu: p}
	return true
}

// wait blocks until the response arrives, the session fails or ctx ends.
func (t *tracker) wait(ctx context.Context, p *pending) (*pdu.PDU, error) {
	select {
	case r := <-p.slot:
		return r.pdu, r.err
	case <-ctx.Done():
	}
	if !t.remove(p.seq) {
		// resolved while the deadline fired
		r := <-p.slot
		return r.pdu, r.err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var timeout time.Duration
		if d, ok := ctx.Deadline(); ok {
			timeout = d.Sub(p.issued).Round(time.Millisecond)
		}
		return nil, &ResponseTimeoutError{Command: p.id, Sequence: p.seq, Wait: timeout}
	}
	return nil, ctx.Err()
}

// failAll fails every pending transaction with err and refuses new ones.
func (t *tracker) failAll(err error) {
	t.mu.Lock()
	if t.closed == nil {
		t.closed = err
	}
	list := t.pending
	t.pending = make(map[uint32]*pending)
	pendingTransactions.Sub(float64(len(list)))
	t.mu.Unlock()
	for _, p := range list {
		p.slot <- response{err: err}
	}
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
