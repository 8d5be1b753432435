package list

// Node is a single element of a List. It holds a value and non-owning links to its neighbours.
// The forward chain starting at the list head is the only ownership path.
type Node[V any] struct {
	next  *Node[V]
	prev  *Node[V]
	Value V
}

// Next returns the next node in the list or nil if this node is the tail.
func (n *Node[V]) Next() *Node[V] {
	return n.next
}

// Prev returns the previous node in the list or nil if this node is the head.
func (n *Node[V]) Prev() *Node[V] {
	return n.prev
}

// The methods below only edit links local to `n`. They know nothing about the owning List, so
// List is responsible for fixing its head, tail and length right after calling any of them.

// spliceAfter links the detached node `m` between `n` and its current next node.
func (n *Node[V]) spliceAfter(m *Node[V]) {
	m.prev = n
	m.next = n.next
	if n.next != nil {
		n.next.prev = m
	}
	n.next = m
}

// spliceBefore links the detached node `m` between `n` and its current previous node.
func (n *Node[V]) spliceBefore(m *Node[V]) {
	m.next = n
	m.prev = n.prev
	if n.prev != nil {
		n.prev.next = m
	}
	n.prev = m
}

// insertAfter wraps `v` in a new node placed right after `n` and returns it.
func (n *Node[V]) insertAfter(v V) *Node[V] {
	inserted := &Node[V]{Value: v}
	n.spliceAfter(inserted)
	return inserted
}

// insertBefore wraps `v` in a new node placed right before `n` and returns it.
func (n *Node[V]) insertBefore(v V) *Node[V] {
	inserted := &Node[V]{Value: v}
	n.spliceBefore(inserted)
	return inserted
}

// detach bridges the neighbours of `n` so they point to each other, then clears the links of `n`.
func (n *Node[V]) detach() {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	// Clean up the detached node's pointers.
	n.next = nil
	n.prev = nil
}
