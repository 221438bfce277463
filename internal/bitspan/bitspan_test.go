package bitspan

import "testing"

func bitsOf(s Span, upto int) []int {
	var out []int
	for i := 0; i < upto; i++ {
		if s.TestBit(i) {
			out = append(out, i)
		}
	}
	return out
}

func TestNarrowAndWideBit(t *testing.T) {
	for _, pos := range []int{0, 1, 5, 63} {
		n := NarrowBit(pos)
		if n.IsWide() {
			t.Fatalf("NarrowBit(%d) unexpectedly wide", pos)
		}
		if !n.TestBit(pos) || n.PopCount() != 1 {
			t.Fatalf("NarrowBit(%d): bit not set or popcount != 1", pos)
		}
	}
	for _, pos := range []int{0, 64, 100, MaxLen} {
		w := WideBit(pos)
		if !w.IsWide() {
			t.Fatalf("WideBit(%d) unexpectedly narrow", pos)
		}
		if !w.TestBit(pos) || w.PopCount() != 1 {
			t.Fatalf("WideBit(%d): bit not set or popcount != 1", pos)
		}
	}
}

func TestUnionAndIntersectEmpty(t *testing.T) {
	a := NarrowBit(1).Union(NarrowBit(3))
	b := NarrowBit(5)
	if !a.IntersectEmpty(b) {
		t.Fatal("disjoint narrow spans should not intersect")
	}
	u := a.Union(b)
	if got := bitsOf(u, 8); len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("unexpected union bits: %v", got)
	}

	overlap := NarrowBit(2).Union(NarrowBit(3))
	if overlap.IntersectEmpty(a) {
		t.Fatal("narrow spans sharing bit 3 should intersect")
	}

	wa := WideBit(1).Union(WideBit(70))
	wb := WideBit(70)
	if wa.IntersectEmpty(wb) {
		t.Fatal("wide spans sharing bit 70 should intersect")
	}
}

func TestNextSetNextUnset(t *testing.T) {
	s := NarrowBit(2).Union(NarrowBit(3)).Union(NarrowBit(7))
	if n := s.NextSet(0); n != 2 {
		t.Fatalf("NextSet(0) = %d, want 2", n)
	}
	if n := s.NextSet(3); n != 3 {
		t.Fatalf("NextSet(3) = %d, want 3", n)
	}
	if n := s.NextSet(4); n != 7 {
		t.Fatalf("NextSet(4) = %d, want 7", n)
	}
	if n := s.NextUnset(2); n != 4 {
		t.Fatalf("NextUnset(2) = %d, want 4", n)
	}

	w := WideBit(65).Union(WideBit(66))
	if n := w.NextSet(0); n != 65 {
		t.Fatalf("wide NextSet(0) = %d, want 65", n)
	}
	if n := w.NextUnset(65); n != 67 {
		t.Fatalf("wide NextUnset(65) = %d, want 67", n)
	}
}

func TestClearRange(t *testing.T) {
	s := NarrowBit(1).Union(NarrowBit(2)).Union(NarrowBit(3)).Union(NarrowBit(5))
	c := s.ClearRange(1, 4)
	if got := bitsOf(c, 8); len(got) != 1 || got[0] != 5 {
		t.Fatalf("ClearRange(1,4) left %v, want [5]", got)
	}

	w := WideBit(64).Union(WideBit(65)).Union(WideBit(100))
	wc := w.ClearRange(64, 66)
	if wc.TestBit(64) || wc.TestBit(65) || !wc.TestBit(100) {
		t.Fatalf("wide ClearRange(64,66) did not clear exactly [64,66)")
	}
}

func TestIsEmptyAndBitLength(t *testing.T) {
	if !EmptyNarrow().IsEmpty() {
		t.Fatal("EmptyNarrow should be empty")
	}
	s := NarrowBit(4)
	if s.IsEmpty() {
		t.Fatal("single-bit span should not be empty")
	}
	if bl := s.BitLength(); bl != 5 {
		t.Fatalf("BitLength(bit 4) = %d, want 5", bl)
	}

	w := WideBit(80)
	if w.IsEmpty() {
		t.Fatal("single wide bit span should not be empty")
	}
	if bl := w.BitLength(); bl != 81 {
		t.Fatalf("wide BitLength(bit 80) = %d, want 81", bl)
	}
}
