package stack

type Stack[T any] struct {
	a []T
	l int
}

// NewStack creates a new stack instance
func NewStack[T any](elm ...T) *Stack[T] {
	stack := Stack[T]{
		a: make([]T, 0, len(elm)),
		l: 0,
	}

	for _, e := range elm {
		stack.l++
		stack.a = append(stack.a, e)
	}

	return &stack
}

// Push adds elements to the top of the stack, leftmost first
func (s *Stack[T]) Push(elm ...T) {
	s.l += len(elm)
	s.a = append(s.a, elm...)
}

// Pop removes and returns the top element of the stack.
// An empty stack yields the zero value and false.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.l < 1 {
		return zero, false
	}

	s.l--
	elm := s.a[s.l]
	s.a[s.l] = zero
	s.a = s.a[:s.l]

	return elm, true
}

// PopN removes the top n elements and returns them deepest first.
// It panics when fewer than n elements are present.
func (s *Stack[T]) PopN(n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > s.l {
		panic("stack underflow")
	}

	out := make([]T, n)
	copy(out, s.a[s.l-n:])
	clear(s.a[s.l-n:])
	s.l -= n
	s.a = s.a[:s.l]

	return out
}

// Peek returns the i-th element from the top (1 is the top) without removing it.
// It panics when the stack is not that deep.
func (s *Stack[T]) Peek(i int) T {
	if i < 1 || i > s.l {
		panic("stack underflow")
	}

	return s.a[s.l-i]
}

// Swap exchanges the top element with the i-th element from the top.
func (s *Stack[T]) Swap(i int) {
	if i < 1 || i > s.l {
		panic("stack underflow")
	}

	s.a[s.l-1], s.a[s.l-i] = s.a[s.l-i], s.a[s.l-1]
}

// Size returns the number of elements on the stack
func (s *Stack[T]) Size() int {
	return s.l
}

// Array returns the underlying array of the stack, bottom first
func (s *Stack[T]) Array() []T {
	return s.a
}
