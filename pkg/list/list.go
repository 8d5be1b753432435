// Package list implements a generic doubly linked list.
//
// The list owns its nodes through the forward chain starting at head and keeps head, tail and length in sync on
// every mutation. Nodes only know how to splice themselves locally; every operation here calls one of those
// primitives and then fixes up the list bookkeeping, branching explicitly on the list regime:
//   - empty     (length 0): head and tail are nil.
//   - singleton (length 1): head == tail, both links nil.
//   - general   (length 2+): head.prev and tail.next are nil, interior links are mutually consistent.
//
// A List is not safe for concurrent use; callers must serialize access.
package list

import (
	"cmp"
	"iter"
	"slices"

	"github.com/nobletooth/dlist/pkg/utils"
)

// List represents a doubly linked list. The zero value is an empty list ready to use.
type List[V any] struct {
	head   *Node[V]
	tail   *Node[V] // Non-owning; always the last node reachable from head.
	length int
}

// New returns an empty list.
func New[V any]() *List[V] {
	return new(List[V])
}

// Len returns the number of nodes in the list.
func (l *List[V]) Len() int {
	return l.length
}

// Front returns the first node of the list or nil if the list is empty.
func (l *List[V]) Front() *Node[V] {
	return l.head
}

// Back returns the last node of the list or nil if the list is empty.
func (l *List[V]) Back() *Node[V] {
	return l.tail
}

// AddToHead wraps `v` in a new node, makes it the head of the list and returns it.
func (l *List[V]) AddToHead(v V) *Node[V] {
	if l.length == 0 {
		n := &Node[V]{Value: v}
		l.head, l.tail = n, n
	} else {
		l.head = l.head.insertBefore(v)
	}
	l.length++
	return l.head
}

// AddToTail wraps `v` in a new node, makes it the tail of the list and returns it.
func (l *List[V]) AddToTail(v V) *Node[V] {
	if l.length == 0 {
		n := &Node[V]{Value: v}
		l.head, l.tail = n, n
	} else {
		l.tail = l.tail.insertAfter(v)
	}
	l.length++
	return l.tail
}

// RemoveFromHead removes the head node and returns its value.
// It returns false if the list is empty.
func (l *List[V]) RemoveFromHead() (V, bool /*found*/) {
	switch {
	case l.length == 0:
		return *new(V), false
	case l.length == 1:
		removed := l.head
		l.head, l.tail, l.length = nil, nil, 0
		return removed.Value, true
	default:
		removed := l.head
		l.head = removed.next
		removed.detach() // The new head's prev becomes nil here.
		l.length--
		return removed.Value, true
	}
}

// RemoveFromTail removes the tail node and returns its value.
// It returns false if the list is empty.
func (l *List[V]) RemoveFromTail() (V, bool /*found*/) {
	switch {
	case l.length == 0:
		return *new(V), false
	case l.length == 1:
		removed := l.tail
		l.head, l.tail, l.length = nil, nil, 0
		return removed.Value, true
	default:
		removed := l.tail
		l.tail = removed.prev
		removed.detach()
		l.length--
		return removed.Value, true
	}
}

// MoveToFront moves `n` to the head of the list. It's a no-op on lists shorter than two nodes.
// `n` must be a node of this list.
func (l *List[V]) MoveToFront(n *Node[V]) {
	if !l.checkNode("move_to_front", n) || l.length < 2 || n == l.head {
		return
	}
	if n == l.tail {
		l.tail = n.prev
	}
	n.detach()
	l.head.spliceBefore(n)
	l.head = n
}

// MoveToEnd moves `n` to the tail of the list. It's a no-op on lists shorter than two nodes.
// `n` must be a node of this list.
func (l *List[V]) MoveToEnd(n *Node[V]) {
	if !l.checkNode("move_to_end", n) || l.length < 2 || n == l.tail {
		return
	}
	if n == l.head {
		l.head = n.next
	}
	n.detach()
	l.tail.spliceAfter(n)
	l.tail = n
}

// Delete removes `n` from the list. It's a no-op on an empty list.
// `n` must be a node of this list; deleting a node of another list corrupts both lists.
func (l *List[V]) Delete(n *Node[V]) {
	if !l.checkNode("delete", n) {
		return
	}
	switch {
	case l.length == 1:
		l.head, l.tail = nil, nil
	case l.length == 2:
		if n == l.head {
			l.head = l.tail
		} else {
			l.tail = l.head
		}
	default:
		if n == l.head {
			l.head = n.next
		} else if n == l.tail {
			l.tail = n.prev
		}
	}
	n.detach()
	l.length--
}

// checkNode reports whether an operation should go ahead on `n`. Nil nodes are always reported; any other node is
// accepted as a no-op on an empty list, where there is nothing to move or delete.
func (l *List[V]) checkNode(operation string, n *Node[V]) bool {
	if n != nil && l.length == 0 {
		return false
	}
	return l.isLinked(operation, n)
}

// isLinked catches the detectable subset of foreign nodes: nil nodes and nodes with no links that aren't the head
// of a singleton list. Nodes don't point back to their owner, so a node linked into another list isn't detected.
func (l *List[V]) isLinked(operation string, n *Node[V]) bool {
	if n == nil {
		utils.RaiseInvariant("list", "nil_node", "Got a nil node.", "operation", operation)
		return false
	}
	if n.prev == nil && n.next == nil && n != l.head {
		utils.RaiseInvariant("list", "foreign_node", "Got a node that isn't linked into the list.",
			"operation", operation, "length", l.length)
		return false
	}
	return true
}

// MaxFunc returns the greatest value in the list according to `compare`. It scans the whole list and seeds the
// running maximum with the head value. It returns false if the list is empty.
func (l *List[V]) MaxFunc(compare utils.CompareFn[V]) (V, bool /*found*/) {
	if l.head == nil {
		return *new(V), false
	}
	maxValue := l.head.Value
	for n := l.head.next; n != nil; n = n.next {
		if compare(n.Value, maxValue) > 0 {
			maxValue = n.Value
		}
	}
	return maxValue, true
}

// Max returns the greatest value in `l` using natural ordering. It returns false if the list is empty.
func Max[V cmp.Ordered](l *List[V]) (V, bool /*found*/) {
	return l.MaxFunc(cmp.Compare[V])
}

// All yields the list values from head to tail.
func (l *List[V]) All() iter.Seq[V] {
	return func(yield func(V) bool) {
		for n := l.head; n != nil; n = n.next {
			if !yield(n.Value) {
				return
			}
		}
	}
}

// Backward yields the list values from tail to head.
func (l *List[V]) Backward() iter.Seq[V] {
	return func(yield func(V) bool) {
		for n := l.tail; n != nil; n = n.prev {
			if !yield(n.Value) {
				return
			}
		}
	}
}

// Values returns a snapshot of the list values from head to tail.
func (l *List[V]) Values() []V {
	return slices.Collect(l.All())
}
