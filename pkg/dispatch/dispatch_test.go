package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
)

type recorder struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (r *recorder) Send(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, data)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestBackpressure(t *testing.T) {
	const hwm = 3
	out := &recorder{}
	gate := NewInFlight(hwm)
	d := New(out, gate, wire.Codec{}, logger.Nop())
	f := frame.New(4, 4, frame.BGR)

	done := make(chan uint64)
	go func() {
		for i := 0; i < hwm+2; i++ {
			seq, err := d.Dispatch(context.Background(), f)
			if err != nil {
				t.Errorf("dispatch: %v", err)
				return
			}
			done <- seq
		}
	}()

	for i := 0; i < hwm; i++ {
		if seq := <-done; seq != uint64(i) {
			t.Fatalf("seq = %v, want %v", seq, i)
		}
	}
	select {
	case <-done:
		t.Fatalf("sent over the high-water mark")
	case <-time.After(50 * time.Millisecond):
	}
	if o := gate.Outstanding(); o != hwm {
		t.Errorf("outstanding = %v", o)
	}

	gate.Release()
	if seq := <-done; seq != hwm {
		t.Errorf("seq = %v after release", seq)
	}
	gate.Release()
	<-done
	if out.count() != hwm+2 {
		t.Errorf("sent %v", out.count())
	}

	msg, err := wire.Codec{}.Decode(out.sent[1])
	if err != nil || msg.Sequence != 1 {
		t.Errorf("second message is %v, %v", msg.Sequence, err)
	}
}

func TestEncodeFailureForfeits(t *testing.T) {
	out := &recorder{}
	d := New(out, NewInFlight(8), wire.Codec{}, logger.Nop())

	bad := frame.Frame{Width: 4, Height: 4, Channels: frame.BGR, Data: make([]byte, 3)}
	seq, err := d.Dispatch(context.Background(), bad)
	if err != nil {
		t.Fatalf("encode failure should not stop the sender: %v", err)
	}
	if got := <-d.Forfeits(); got != seq {
		t.Errorf("forfeit %v, want %v", got, seq)
	}
	next, _ := d.Dispatch(context.Background(), frame.New(4, 4, frame.BGR))
	if next != seq+1 {
		t.Errorf("sequence did not advance: %v", next)
	}
	if out.count() != 1 {
		t.Errorf("bad frame was sent")
	}
}

func TestSmallFrameForfeits(t *testing.T) {
	out := &recorder{}
	gate := NewInFlight(8)
	d := New(out, gate, wire.Codec{}, logger.Nop())

	for i, size := range [][2]int{{2, 2}, {3, 2}, {2, 3}, {1, 1}} {
		seq, err := d.Dispatch(context.Background(), frame.New(size[0], size[1], frame.BGR))
		if err != nil {
			t.Fatalf("%v: %v", size, err)
		}
		if seq != uint64(i) {
			t.Errorf("%v: seq = %v", size, seq)
		}
		if got := <-d.Forfeits(); got != seq {
			t.Errorf("%v: forfeit %v, want %v", size, got, seq)
		}
	}
	if out.count() != 0 {
		t.Errorf("%v frames smaller than the kernel were sent", out.count())
	}
	if _, err := d.Dispatch(context.Background(), frame.New(3, 3, frame.BGR)); err != nil || out.count() != 1 {
		t.Errorf("3x3 frame was not sent: %v", err)
	}
	if gate.Outstanding() != 5 {
		t.Errorf("outstanding = %v, forfeited frames keep their slot until skipped", gate.Outstanding())
	}
}

func TestTransportFailure(t *testing.T) {
	boom := errors.New("boom")
	d := New(&recorder{err: boom}, NewInFlight(8), wire.Codec{}, logger.Nop())
	seq, err := d.Dispatch(context.Background(), frame.New(4, 4, frame.Gray))
	if !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
	if got := <-d.Forfeits(); got != seq {
		t.Errorf("forfeit %v", got)
	}
}

func TestCloseReleasesSender(t *testing.T) {
	gate := NewInFlight(1)
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	errs := make(chan error)
	go func() { errs <- gate.Acquire(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	gate.Close()
	if err := <-errs; !errors.Is(err, ErrClosed) {
		t.Errorf("got %v", err)
	}
}

func TestAcquireCancel(t *testing.T) {
	gate := NewInFlight(1)
	_ = gate.Acquire(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := gate.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v", err)
	}
	if gate.Sent() != 1 {
		t.Errorf("failed acquire was counted")
	}
}

func TestReleaseNeverUnderflows(t *testing.T) {
	gate := NewInFlight(2)
	gate.Release()
	if gate.Outstanding() != 0 {
		t.Errorf("outstanding = %v", gate.Outstanding())
	}
}
