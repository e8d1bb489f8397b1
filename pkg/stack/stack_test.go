package stack_test

import (
	"testing"

	"bytevm/pkg/stack"
)

func TestPopEmpty(t *testing.T) {
	s := stack.NewStack[int]()
	v, ok := s.Pop()
	if ok || v != 0 {
		t.Errorf("expected zero value and false from empty stack, got %d, %v", v, ok)
	}
	if s.Size() != 0 {
		t.Errorf("expected size 0, got %d", s.Size())
	}
}

func TestPopN(t *testing.T) {
	tests := []struct {
		n        int
		expected []int
		left     int
	}{
		{0, []int{}, 4},
		{1, []int{4}, 3},
		{3, []int{2, 3, 4}, 1},
		{4, []int{1, 2, 3, 4}, 0},
	}

	for _, test := range tests {
		s := stack.NewStack(1, 2, 3, 4)
		got := s.PopN(test.n)
		if len(got) != len(test.expected) {
			t.Fatalf("PopN(%d): expected %v, got %v", test.n, test.expected, got)
		}
		for i := range got {
			if got[i] != test.expected[i] {
				t.Errorf("PopN(%d): expected %v, got %v", test.n, test.expected, got)
			}
		}
		if s.Size() != test.left {
			t.Errorf("PopN(%d): expected %d left, got %d", test.n, test.left, s.Size())
		}
	}
}

func TestPopNUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on underflow")
		}
	}()
	stack.NewStack(1).PopN(2)
}

func TestPeekAndSwap(t *testing.T) {
	s := stack.NewStack("a", "b", "c")
	if s.Peek(1) != "c" || s.Peek(3) != "a" {
		t.Errorf("unexpected peek results: %q %q", s.Peek(1), s.Peek(3))
	}
	s.Swap(3)
	if got := s.Array(); got[0] != "c" || got[2] != "a" {
		t.Errorf("expected [c b a], got %v", got)
	}
	s.Push("d", "e")
	if s.Size() != 5 || s.Peek(1) != "e" {
		t.Errorf("expected e on top of 5 elements, got %q of %d", s.Peek(1), s.Size())
	}
}
