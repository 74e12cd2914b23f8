package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrClosed = errors.New("gate is closed")

// InFlight counts frames that were sent but not consumed yet and holds
// the sender back when there are too many of them.
type InFlight struct {
	mu   sync.Mutex
	cond *sync.Cond

	sent     atomic.Uint64
	consumed atomic.Uint64
	hwm      uint64
	closed   bool
}

// NewInFlight makes a gate that lets at most hwm frames out.
func NewInFlight(hwm int) *InFlight {
	if hwm < 1 {
		hwm = 1
	}
	f := &InFlight{hwm: uint64(hwm)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Acquire takes a slot for one more frame, waiting while the gate is full.
func (f *InFlight) Acquire(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.closed && ctx.Err() == nil && f.sent.Load()-f.consumed.Load() >= f.hwm {
		f.cond.Wait()
	}
	if f.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sent.Add(1)
	return nil
}

// Release gives back one slot.
func (f *InFlight) Release() {
	f.mu.Lock()
	if f.consumed.Load() < f.sent.Load() {
		f.consumed.Add(1)
	}
	f.mu.Unlock()
	f.cond.Signal()
}

// Outstanding is sent minus consumed.
func (f *InFlight) Outstanding() uint64 { return f.sent.Load() - f.consumed.Load() }

func (f *InFlight) Sent() uint64 { return f.sent.Load() }

func (f *InFlight) Limit() int { return int(f.hwm) }

// Close wakes up and fails all current and future Acquire calls.
func (f *InFlight) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Broadcast()
}
