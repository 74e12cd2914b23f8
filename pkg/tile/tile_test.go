package tile

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/sobelfarm/sobelfarm/pkg/convolution"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
)

func randomFrame(w, h, ch int, seed int64) frame.Frame {
	f := frame.New(w, h, ch)
	rand.New(rand.NewSource(seed)).Read(f.Data)
	return f
}

func TestSplit(t *testing.T) {
	f := frame.New(4, 10, frame.Gray)
	tests := []struct {
		n     int
		rows  [][2]int
		halos [][2]int
	}{
		{n: 1, rows: [][2]int{{0, 10}}, halos: [][2]int{{0, 0}}},
		{n: 3, rows: [][2]int{{0, 3}, {3, 6}, {6, 10}}, halos: [][2]int{{0, 1}, {1, 1}, {1, 0}}},
		{n: 0, rows: [][2]int{{0, 10}}, halos: [][2]int{{0, 0}}},
		{n: 4, rows: [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 10}}, halos: [][2]int{{0, 1}, {1, 1}, {1, 1}, {1, 0}}},
	}
	for _, test := range tests {
		stripes := Split(&f, test.n)
		if len(stripes) != len(test.rows) {
			t.Fatalf("n=%v: got %v stripes", test.n, len(stripes))
		}
		for i, s := range stripes {
			if s.Start != test.rows[i][0] || s.End != test.rows[i][1] {
				t.Errorf("n=%v stripe %v rows [%v,%v)", test.n, i, s.Start, s.End)
			}
			if s.Top != test.halos[i][0] || s.Bottom != test.halos[i][1] {
				t.Errorf("n=%v stripe %v halo %v/%v", test.n, i, s.Top, s.Bottom)
			}
		}
	}
	if got := len(Split(&f, 25)); got != 10 {
		t.Errorf("n should clamp to height, got %v", got)
	}
}

func TestTilingEquivalence(t *testing.T) {
	engines := []convolution.Engine{convolution.Scalar{}, convolution.Vector{}}
	for _, size := range [][2]int{{3, 3}, {7, 5}, {16, 16}, {33, 19}} {
		w, h := size[0], size[1]
		f := randomFrame(w, h, frame.BGR, int64(w*h))

		full, err := EdgeMap(convolution.Scalar{}, f)
		if err != nil {
			t.Fatal(err)
		}
		want := Trim(full)

		for _, e := range engines {
			for n := 1; n <= h+2; n++ {
				for _, workers := range []int{1, 3} {
					got, err := NewProcessor(e, n, workers).Process(context.Background(), f)
					if err != nil {
						t.Fatalf("%v n=%v: %v", e, n, err)
					}
					if got.Width != w-2 || got.Height != h-2 {
						t.Fatalf("%v n=%v: got %v", e, n, got)
					}
					if !bytes.Equal(got.Data, want.Data) {
						t.Errorf("%dx%d %v n=%v workers=%v: stitched map differs", w, h, e, n, workers)
					}
				}
			}
		}
	}
}

func TestProcessGrayInput(t *testing.T) {
	f := randomFrame(9, 9, frame.Gray, 5)
	full, _ := EdgeMap(convolution.Scalar{}, f)
	got, err := NewProcessor(nil, 4, 2).Process(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, Trim(full).Data) {
		t.Errorf("gray input mismatch")
	}
}

func TestProcessTooSmall(t *testing.T) {
	p := NewProcessor(nil, 2, 2)
	for _, size := range [][2]int{{2, 5}, {5, 2}, {1, 1}} {
		_, err := p.Process(context.Background(), frame.New(size[0], size[1], frame.BGR))
		if !errors.Is(err, ErrTooSmall) {
			t.Errorf("%v: expected ErrTooSmall, got %v", size, err)
		}
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessor(nil, 4, 1).Process(ctx, randomFrame(8, 8, frame.BGR, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestStitchMismatch(t *testing.T) {
	_, err := Stitch([]frame.Frame{frame.New(3, 1, frame.Gray), frame.New(4, 1, frame.Gray)})
	if !errors.Is(err, ErrStitch) {
		t.Errorf("expected ErrStitch, got %v", err)
	}
}

func BenchmarkProcess(b *testing.B) {
	f := randomFrame(1280, 720, frame.BGR, 1)
	p := NewProcessor(convolution.Scalar{}, 8, 0)
	b.SetBytes(int64(len(f.Data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Process(context.Background(), f)
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		f := frame.Frame{Width: 5, Channels: frame.Gray}
		if stripes := Split(&f, n); len(stripes) != 0 {
			t.Errorf("n=%v: got %v stripes of an empty frame", n, len(stripes))
		}
	}
}
