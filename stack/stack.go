// Package stack implements the EVM's operand stack: a bounded LIFO of
// 256-bit words with indexed access for DUP/SWAP, grounded on the
// teacher's vm.Stack/newstack() shape (github.com/Gealber/evm-simulator
// vendored go-ethereum's core/vm.Stack; this is our own, pool-free
// reimplementation of the same contract).
package stack

import (
	"errors"
	"fmt"

	"github.com/evmlab/evmsim/word"
)

// Limit is the maximum number of elements the stack may hold at once.
const Limit = 1024

// ErrOverflow is returned by Push when the stack is already at Limit.
var ErrOverflow = errors.New("stack overflow")

// ErrUnderflow is returned when an operation needs more elements than are
// present.
type ErrUnderflow struct {
	Have, Want int
}

func (e *ErrUnderflow) Error() string {
	return fmt.Sprintf("stack underflow: have %d, want %d", e.Have, e.Want)
}

// Stack is a LIFO of word.Word, index 0 from the top.
type Stack struct {
	data []word.Word
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{data: make([]word.Word, 0, 16)}
}

// Len returns the current number of elements.
func (s *Stack) Len() int { return len(s.data) }

// Push appends w to the top of the stack.
func (s *Stack) Push(w word.Word) error {
	if len(s.data) >= Limit {
		return ErrOverflow
	}
	s.data = append(s.data, w)
	return nil
}

// Pop removes and returns the top element.
func (s *Stack) Pop() (word.Word, error) {
	if len(s.data) < 1 {
		return word.Word{}, &ErrUnderflow{Have: 0, Want: 1}
	}
	n := len(s.data) - 1
	w := s.data[n]
	s.data = s.data[:n]
	return w, nil
}

// Peek returns the element at depth n (0 is the top) without removing it.
func (s *Stack) Peek(n int) (word.Word, error) {
	if n < 0 || n >= len(s.data) {
		return word.Word{}, &ErrUnderflow{Have: len(s.data), Want: n + 1}
	}
	return s.data[len(s.data)-1-n], nil
}

// Dup pushes a copy of the element at depth n-1 (DUP1 duplicates the top,
// so callers pass the opcode's own n, i.e. DUPn -> Dup(n)).
func (s *Stack) Dup(n int) error {
	v, err := s.Peek(n - 1)
	if err != nil {
		return err
	}
	return s.Push(v)
}

// Swap exchanges the top element with the element at depth n (n>=1).
func (s *Stack) Swap(n int) error {
	if n < 1 || n >= len(s.data) {
		return &ErrUnderflow{Have: len(s.data), Want: n + 1}
	}
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
	return nil
}

// Data returns the underlying slice, bottom first. Callers must not
// mutate it; it is exposed for tracers and tests.
func (s *Stack) Data() []word.Word {
	return s.data
}
