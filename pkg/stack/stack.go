// Package stack implements a LIFO stack on top of the doubly linked list; the top of the stack is the list head.
package stack

import "github.com/nobletooth/dlist/pkg/list"

// Stack is a last-in-first-out container. The zero value is an empty stack ready to use.
// Like the list underneath it, a Stack is not safe for concurrent use.
type Stack[V any] struct {
	storage list.List[V]
}

// New returns an empty stack.
func New[V any]() *Stack[V] {
	return new(Stack[V])
}

// Push puts `v` on top of the stack.
func (s *Stack[V]) Push(v V) {
	s.storage.AddToHead(v)
}

// Pop removes and returns the value on top of the stack. It returns false if the stack is empty.
func (s *Stack[V]) Pop() (V, bool /*found*/) {
	return s.storage.RemoveFromHead()
}

// Peek returns the value on top of the stack without removing it. It returns false if the stack is empty.
func (s *Stack[V]) Peek() (V, bool /*found*/) {
	if top := s.storage.Front(); top != nil {
		return top.Value, true
	}
	return *new(V), false
}

// Len returns the number of values held by the stack.
func (s *Stack[V]) Len() int {
	return s.storage.Len()
}
