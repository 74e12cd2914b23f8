package reorder

import (
	"math/rand"
	"reflect"
	"testing"
)

func collect(b *Buffer[uint64, string]) (keys []uint64, skipped []uint64) {
	b.Drain(func(k uint64, _ string, ok bool) {
		if ok {
			keys = append(keys, k)
		} else {
			skipped = append(skipped, k)
		}
	})
	return
}

func TestOrderedDelivery(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for run := 0; run < 100; run++ {
		n := 1 + rnd.Intn(64)
		b := New[uint64, string](0)
		var got []uint64
		for _, k := range rnd.Perm(n) {
			if !b.Push(uint64(k), "") {
				t.Fatalf("fresh key %v dropped", k)
			}
			keys, _ := collect(b)
			got = append(got, keys...)
		}
		for i, k := range got {
			if k != uint64(i) {
				t.Fatalf("run %v: out of order %v", run, got)
			}
		}
		if len(got) != n || b.Len() != 0 || b.Next() != uint64(n) {
			t.Fatalf("run %v: delivered %v of %v", run, len(got), n)
		}
	}
}

func TestDuplicates(t *testing.T) {
	b := New[uint64, string](0)
	if !b.Push(2, "a") {
		t.Fatal("dropped")
	}
	if b.Push(2, "b") {
		t.Errorf("buffered duplicate accepted")
	}
	b.Push(0, "x")
	keys, _ := collect(b)
	if !reflect.DeepEqual(keys, []uint64{0}) {
		t.Errorf("got %v", keys)
	}
	if b.Push(0, "again") {
		t.Errorf("stale key accepted")
	}
	b.Push(1, "y")
	var vals []string
	b.Drain(func(_ uint64, v string, _ bool) { vals = append(vals, v) })
	if !reflect.DeepEqual(vals, []string{"y", "a"}) {
		t.Errorf("got %v", vals)
	}
}

func TestSkip(t *testing.T) {
	b := New[uint64, string](0)
	b.Push(1, "")
	b.Push(3, "")
	if keys, _ := collect(b); len(keys) != 0 {
		t.Fatalf("head is missing, got %v", keys)
	}
	b.Skip(0)
	keys, skipped := collect(b)
	if !reflect.DeepEqual(keys, []uint64{1}) || !reflect.DeepEqual(skipped, []uint64{0}) {
		t.Errorf("got %v / %v", keys, skipped)
	}
	if b.Push(0, "") {
		t.Errorf("skipped key accepted after drain")
	}
	b.Skip(4)
	if b.Push(4, "") {
		t.Errorf("skipped key accepted")
	}
	b.SkipTo(3)
	keys, skipped = collect(b)
	if !reflect.DeepEqual(keys, []uint64{3}) || !reflect.DeepEqual(skipped, []uint64{2, 4}) {
		t.Errorf("got %v / %v", keys, skipped)
	}
	if b.Next() != 5 {
		t.Errorf("next = %v", b.Next())
	}
}

func TestMin(t *testing.T) {
	b := New[int, int](10)
	if _, ok := b.Min(); ok {
		t.Errorf("empty buffer has min")
	}
	b.Push(15, 0)
	b.Push(12, 0)
	if m, _ := b.Min(); m != 12 {
		t.Errorf("min = %v", m)
	}
}

func BenchmarkReverse(b *testing.B) {
	buf := New[uint64, int](0)
	const window = 64
	for i := 0; i < b.N; i += window {
		for k := window - 1; k >= 0; k-- {
			buf.Push(uint64(i+k), k)
		}
		buf.Drain(func(uint64, int, bool) {})
	}
}
