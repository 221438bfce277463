package agenda

import "testing"

func TestPushPopOrdering(t *testing.T) {
	a := New[string, int]()
	a.Push("c", 3, 30)
	a.Push("a", 1, 10)
	a.Push("b", 2, 20)

	want := []struct {
		key   string
		score float64
	}{{"a", 1}, {"b", 2}, {"c", 3}}
	for _, w := range want {
		e, ok := a.Pop()
		if !ok {
			t.Fatalf("expected an entry for %s", w.key)
		}
		if e.Key != w.key || e.Score != w.score {
			t.Fatalf("got %+v, want key=%s score=%v", e, w.key, w.score)
		}
	}
	if _, ok := a.Pop(); ok {
		t.Fatal("expected the agenda to be empty")
	}
}

func TestContainsAndGet(t *testing.T) {
	a := New[string, int]()
	if a.Contains("x") {
		t.Fatal("empty agenda should not contain x")
	}
	a.Push("x", 5, 50)
	if !a.Contains("x") {
		t.Fatal("expected x to be present")
	}
	e, ok := a.Get("x")
	if !ok || e.Score != 5 || e.Payload != 50 {
		t.Fatalf("unexpected Get result: %+v, %v", e, ok)
	}
}

func TestSetIfBetter(t *testing.T) {
	a := New[string, int]()
	a.Push("x", 5, 50)

	if a.SetIfBetter("x", 10, 100) {
		t.Fatal("a higher score should not replace the entry")
	}
	e, _ := a.Get("x")
	if e.Score != 5 || e.Payload != 50 {
		t.Fatalf("entry was mutated despite a worse candidate: %+v", e)
	}

	if !a.SetIfBetter("x", 2, 20) {
		t.Fatal("a lower score should replace the entry")
	}
	e, _ = a.Get("x")
	if e.Score != 2 || e.Payload != 20 {
		t.Fatalf("entry not updated: %+v", e)
	}
}

func TestReplaceRestoresHeapOrder(t *testing.T) {
	a := New[string, int]()
	a.Push("a", 1, 10)
	a.Push("b", 5, 50)
	a.Push("c", 9, 90)

	a.Replace("b", 0, 500)

	e, ok := a.Pop()
	if !ok || e.Key != "b" || e.Payload != 500 {
		t.Fatalf("expected b to pop first after Replace, got %+v", e)
	}
}

func TestLen(t *testing.T) {
	a := New[string, int]()
	if a.Len() != 0 {
		t.Fatalf("expected empty agenda to have Len 0, got %d", a.Len())
	}
	a.Push("a", 1, 1)
	a.Push("b", 2, 2)
	if a.Len() != 2 {
		t.Fatalf("expected Len 2, got %d", a.Len())
	}
	a.Pop()
	if a.Len() != 1 {
		t.Fatalf("expected Len 1 after one Pop, got %d", a.Len())
	}
}
