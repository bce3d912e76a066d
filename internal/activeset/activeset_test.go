package activeset

import "testing"

func TestAddRemoveContains(t *testing.T) {
	s := New(3)
	if !s.Add(5) || !s.Add(7) {
		t.Fatal("add failed under capacity")
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
	if !s.Contains(5) || !s.Contains(7) {
		t.Error("expected both ids present")
	}
	if !s.Add(9) {
		t.Fatal("add at capacity boundary failed")
	}
	if s.Add(11) {
		t.Error("add beyond capacity should fail")
	}
	if !s.Remove(7) {
		t.Error("remove of present id failed")
	}
	if s.Contains(7) {
		t.Error("id still present after remove")
	}
	if s.Remove(7) {
		t.Error("remove of absent id should fail")
	}
}

func TestNextIndex(t *testing.T) {
	s := New(5)
	s.slots = []int{Empty, 1, Empty, 2, 3}
	s.count = 3
	if i := s.NextIndex(-1); i != 1 {
		t.Errorf("NextIndex(-1) = %d, want 1", i)
	}
	if i := s.NextIndex(1); i != 3 {
		t.Errorf("NextIndex(1) = %d, want 3", i)
	}
	if i := s.NextIndex(4); i != -1 {
		t.Errorf("NextIndex(4) = %d, want -1", i)
	}
}

func TestCompactSortBy(t *testing.T) {
	s := New(6)
	s.slots = []int{Empty, 3, Empty, 1, Empty, 2}
	s.count = 3
	remain := map[int]int{1: 100, 2: 10, 3: 50}
	s.CompactSortBy(func(a, b int) bool { return remain[a] < remain[b] })
	want := []int{2, 3, 1, Empty, Empty, Empty}
	for i, w := range want {
		if s.At(i) != w {
			t.Errorf("slot %d = %d, want %d (full: %v)", i, s.At(i), w, s.slots)
		}
	}
}
