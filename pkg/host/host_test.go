package host

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/present"
	"github.com/sobelfarm/sobelfarm/pkg/source"
	"github.com/sobelfarm/sobelfarm/pkg/transport"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
)

// frames is a source of n small frames, bad ones can't be encoded and
// tiny ones are smaller than the kernel.
type frames struct {
	n, i int
	bad  map[int]bool
	tiny map[int]bool
}

func (s *frames) NextFrame() (frame.Frame, error) {
	if s.n > 0 && s.i >= s.n {
		return frame.Frame{}, io.EOF
	}
	f := frame.New(8, 6, frame.BGR)
	if s.tiny[s.i] {
		f = frame.New(2, 2, frame.BGR)
	}
	if s.bad[s.i] {
		f.Channels = 2
	}
	s.i++
	return f, nil
}

func (s *frames) Close() error { return nil }

// fakeNet answers every task with a 1x1 frame holding its seq.
type fakeNet struct {
	codec   wire.Codec
	results chan []byte
	drop    map[uint64]bool
	swap    bool
	held    []byte
}

func newFakeNet() *fakeNet { return &fakeNet{results: make(chan []byte, 64)} }

func (n *fakeNet) Send(_ context.Context, data []byte) error {
	t, err := n.codec.DecodeTask(data)
	if err != nil {
		return err
	}
	if n.drop[t.Seq] {
		return nil
	}
	edges := frame.New(1, 1, frame.Gray)
	edges.Data[0] = byte(t.Seq)
	out, err := n.codec.EncodeResult(frame.Result{Seq: t.Seq, SendTime: t.SendTime, Edges: edges})
	if err != nil {
		return err
	}
	if n.swap {
		if n.held == nil {
			n.held = out
			return nil
		}
		n.results <- out
		out, n.held = n.held, nil
	}
	n.results <- out
	return nil
}

func (n *fakeNet) Results() <-chan []byte { return n.results }

// recorder keeps the first byte of every shown frame.
type recorder struct {
	*present.Keys
	mu     sync.Mutex
	shown  []frame.Frame
	closed bool
}

func newRecorder() *recorder { return &recorder{Keys: present.NewKeys()} }

func (r *recorder) Show(f frame.Frame) {
	r.mu.Lock()
	r.shown = append(r.shown, f)
	r.mu.Unlock()
}

func (r *recorder) Close() error { r.closed = true; return nil }

func (r *recorder) seqs() []int {
	var out []int
	for _, f := range r.shown {
		out = append(out, int(f.Data[0]))
	}
	return out
}

func conf(hwm int) config.Host {
	return config.Host{HighWaterMark: hwm, StatsEvery: 4}
}

func run(t *testing.T, h *Host) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Fatal(err)
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunInOrder(t *testing.T) {
	tests := []struct {
		name   string
		hwm    int
		swap   bool
		drop   map[uint64]bool
		bad    map[int]bool
		tiny   map[int]bool
		stall  time.Duration
		expect []int
	}{
		{name: "plain", hwm: 1, expect: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "swapped", hwm: 4, swap: true, expect: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "unencodable", hwm: 4, bad: map[int]bool{2: true, 9: true}, expect: []int{0, 1, 3, 4, 5, 6, 7, 8}},
		{name: "smaller than kernel", hwm: 1, tiny: map[int]bool{0: true, 5: true}, expect: []int{1, 2, 3, 4, 6, 7, 8, 9}},
		{
			name:   "lost",
			hwm:    8,
			drop:   map[uint64]bool{3: true},
			stall:  100 * time.Millisecond,
			expect: []int{0, 1, 2, 4, 5, 6, 7, 8, 9},
		},
		{
			name:   "lost last",
			hwm:    8,
			drop:   map[uint64]bool{9: true},
			stall:  100 * time.Millisecond,
			expect: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:   "all in flight lost",
			hwm:    2,
			drop:   map[uint64]bool{0: true, 1: true},
			stall:  100 * time.Millisecond,
			expect: []int{2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			name:   "lost at hwm 1",
			hwm:    1,
			drop:   map[uint64]bool{4: true},
			stall:  100 * time.Millisecond,
			expect: []int{0, 1, 2, 3, 5, 6, 7, 8, 9},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			net := newFakeNet()
			net.swap, net.drop = test.swap, test.drop
			p := newRecorder()
			c := conf(test.hwm)
			c.StallTimeout = test.stall

			h := New(c, wire.Codec{}, &frames{n: 10, bad: test.bad, tiny: test.tiny}, p, net, logger.Nop())
			run(t, h)

			if got := p.seqs(); !equal(got, test.expect) {
				t.Errorf("shown %v, want %v", got, test.expect)
			}
			if !p.closed {
				t.Errorf("presenter is not closed")
			}
			if h.gate.Outstanding() != 0 {
				t.Errorf("%v frames are still in flight", h.gate.Outstanding())
			}
		})
	}
}

func TestRunExitKey(t *testing.T) {
	p := newRecorder()
	h := New(conf(2), wire.Codec{}, &frames{}, p, newFakeNet(), logger.Nop())
	go func() {
		time.Sleep(50 * time.Millisecond)
		p.Press(present.KeyEsc)
	}()
	run(t, h)
	if len(p.shown) == 0 {
		t.Errorf("nothing was shown before the exit key")
	}
}

func TestRunCanceled(t *testing.T) {
	p := newRecorder()
	net := newFakeNet()
	net.drop = map[uint64]bool{0: true}
	h := New(conf(2), wire.Codec{}, &frames{}, p, net, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); err == nil {
		t.Fatalf("expected the context error")
	}
	if len(p.shown) != 0 {
		t.Errorf("nothing can be shown while frame 0 is missing")
	}
}

func TestStatus(t *testing.T) {
	h := New(conf(3), wire.Codec{}, &frames{n: 5}, newRecorder(), newFakeNet(), logger.Nop())
	run(t, h)
	s := h.Status().(Status)
	if s.Dispatched != 5 || s.Next != 5 || s.InFlight != 0 || s.Buffered != 0 {
		t.Errorf("unexpected status %+v", s)
	}
	if s.Run == "" {
		t.Errorf("no run id")
	}
}

func TestLatency(t *testing.T) {
	l := latency{every: 3}
	for _, ms := range []int32{1, 2} {
		if _, ok := l.add(ms); ok {
			t.Fatalf("window is not complete yet")
		}
	}
	avg, ok := l.add(6)
	if !ok || avg != 3 {
		t.Errorf("got %v %v, want 3", avg, ok)
	}
	if _, ok = l.add(1); ok {
		t.Errorf("window should restart")
	}

	off := latency{}
	if _, ok = off.add(1); ok {
		t.Errorf("zero window should never report")
	}
}

func TestLoopback(t *testing.T) {
	net, err := transport.Bind(config.Transport{
		Address:     "127.0.0.1",
		TasksPath:   "/tasks",
		ResultsPath: "/results",
		Compress:    true,
	}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	net.Run()
	defer func() { _ = net.Shutdown(context.Background()) }()

	workers, err := LocalWorkers(2, net, config.Pipeline{Engine: "scalar", Stripes: 3, Threads: 2}, true, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range workers {
		w.Run()
	}
	defer func() {
		for _, w := range workers {
			_ = w.Shutdown(context.Background())
		}
	}()

	const n = 12
	p := newRecorder()
	h := New(conf(4), wire.Codec{Compress: true}, source.NewPattern(40, 30, n), p, net, logger.Nop())
	run(t, h)

	if len(p.shown) != n {
		t.Fatalf("shown %v frames, want %v", len(p.shown), n)
	}
	for i, f := range p.shown {
		if f.Width != 38 || f.Height != 28 || f.Channels != frame.Gray {
			t.Fatalf("frame %v is %vx%vx%v", i, f.Width, f.Height, f.Channels)
		}
	}
	// the pattern moves, so consecutive edge maps differ
	same := true
	for i := range p.shown[0].Data {
		if p.shown[0].Data[i] != p.shown[1].Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("frames look out of order")
	}
}
