package frame

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		ch   int
		n    int
		err  error
	}{
		{name: "bgr", w: 4, h: 2, ch: BGR, n: 24},
		{name: "gray", w: 4, h: 2, ch: Gray, n: 8},
		{name: "short", w: 4, h: 2, ch: BGR, n: 23, err: ErrLength},
		{name: "zero", w: 0, h: 2, ch: Gray, n: 0, err: ErrShape},
		{name: "rgba", w: 1, h: 1, ch: 4, n: 4, err: ErrChannels},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Wrap(test.w, test.h, test.ch, make([]byte, test.n))
			if !errors.Is(err, test.err) {
				t.Errorf("got %v, want %v", err, test.err)
			}
		})
	}
}

func TestViewIndexing(t *testing.T) {
	f := New(3, 2, BGR)
	v := f.View()
	v.Set(1, 2, 0, 7)
	if f.Data[(1*3+2)*3] != 7 {
		t.Errorf("wrong layout")
	}
	if v.At(1, 2, 0) != 7 {
		t.Errorf("wrong read")
	}
	if len(v.Row(1)) != 9 {
		t.Errorf("wrong row size")
	}
}

func TestViewOutOfRange(t *testing.T) {
	v := New(3, 2, Gray).View()
	for _, idx := range [][3]int{{2, 0, 0}, {0, 3, 0}, {0, 0, 1}, {-1, 0, 0}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("no panic for %v", idx)
				}
			}()
			v.At(idx[0], idx[1], idx[2])
		}()
	}
}

func TestStripeFrameShares(t *testing.T) {
	f := New(2, 5, Gray)
	for i := range f.Data {
		f.Data[i] = byte(i)
	}
	s := NewStripe(&f, 1, 2, 4, 1, 1)
	sf := s.Frame()
	if sf.Height != 4 || s.Rows() != 4 {
		t.Fatalf("wrong height %v", sf.Height)
	}
	if sf.Data[0] != 2 || sf.Data[len(sf.Data)-1] != 9 {
		t.Errorf("wrong rows %v", sf.Data)
	}
	sf.Data[0] = 99
	if f.Data[2] != 99 {
		t.Errorf("stripe should share memory")
	}
}
