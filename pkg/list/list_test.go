package list

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/nobletooth/dlist/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertListEqualsSlice makes sure the list elements match the expected slice in both directions and that the
// list bookkeeping (head, tail, length, neighbour links) is consistent.
func assertListEqualsSlice[V comparable](t *testing.T, expected []V, list *List[V]) {
	t.Helper()

	assert.Equal(t, len(expected), list.Len(), "List length mismatch")

	if len(expected) == 0 {
		assert.Nil(t, list.Front(), "Empty list should have nil Front()")
		assert.Nil(t, list.Back(), "Empty list should have nil Back()")
		return
	}

	// Check head and tail.
	require.NotNil(t, list.Front())
	require.NotNil(t, list.Back())
	assert.Nil(t, list.Front().Prev(), "Head should have no previous node")
	assert.Nil(t, list.Back().Next(), "Tail should have no next node")
	assert.Equal(t, expected[0], list.Front().Value, "Front() value mismatch")
	assert.Equal(t, expected[len(expected)-1], list.Back().Value, "Back() value mismatch")

	// Forward iteration; also checks the bidirectional link invariant on every node.
	var forwardResult []V
	var last *Node[V]
	for node := list.Front(); node != nil; node = node.Next() {
		if node.Next() != nil {
			assert.Same(t, node, node.Next().Prev(), "node.next.prev should point back to node")
		}
		if node.Prev() != nil {
			assert.Same(t, node, node.Prev().Next(), "node.prev.next should point back to node")
		}
		forwardResult = append(forwardResult, node.Value)
		last = node
	}
	assert.Equal(t, expected, forwardResult, "Forward iteration mismatch")
	assert.Same(t, list.Back(), last, "Tail should be the last node reachable from head")

	// Backward iteration.
	var backwardResult []V
	for node := list.Back(); node != nil; node = node.Prev() {
		backwardResult = append(backwardResult, node.Value)
	}
	// Reverse the backward result to compare with expected.
	slices.Reverse(backwardResult)
	assert.Equal(t, expected, backwardResult, "Backward iteration mismatch")
}

// newListWithNodes builds a list of 1..nodeCount and returns it along with its nodes in order.
func newListWithNodes(nodeCount int) (*List[int], []*Node[int]) {
	list := New[int]()
	nodes := make([]*Node[int], nodeCount)
	for i := 1; i <= nodeCount; i++ {
		nodes[i-1] = list.AddToTail(i)
	}
	return list, nodes
}

// expectInvariant runs `fn` and checks it raised the list invariant `invariantType` exactly once.
func expectInvariant(t *testing.T, invariantType string, fn func()) {
	t.Helper()
	if utils.IsTestMode {
		assert.Panics(t, fn)
		return
	}
	before := utils.GetMetricValue("list", invariantType)
	fn()
	assert.Equal(t, before+1, utils.GetMetricValue("list", invariantType))
}

func TestList_ZeroValue(t *testing.T) {
	var list List[string]
	assertListEqualsSlice(t, []string{}, &list)
	list.AddToHead("a")
	assertListEqualsSlice(t, []string{"a"}, &list)
}

func TestList_Add(t *testing.T) {
	t.Run("AddToTail", func(t *testing.T) {
		list := New[int]()
		list.AddToTail(1)
		assertListEqualsSlice(t, []int{1}, list)
		list.AddToTail(2)
		assertListEqualsSlice(t, []int{1, 2}, list)
		list.AddToTail(3)
		assertListEqualsSlice(t, []int{1, 2, 3}, list)
	})

	t.Run("AddToHead", func(t *testing.T) {
		list := New[int]()
		list.AddToHead(1)
		assertListEqualsSlice(t, []int{1}, list)
		list.AddToHead(2)
		assertListEqualsSlice(t, []int{2, 1}, list)
		list.AddToHead(3)
		assertListEqualsSlice(t, []int{3, 2, 1}, list)
	})

	t.Run("Mixed", func(t *testing.T) {
		list := New[int]()
		list.AddToTail(2)
		list.AddToHead(1)
		list.AddToTail(3)
		assertListEqualsSlice(t, []int{1, 2, 3}, list)
	})

	t.Run("Returns the new node", func(t *testing.T) {
		list := New[int]()
		head := list.AddToHead(1)
		tail := list.AddToTail(2)
		assert.Same(t, head, list.Front())
		assert.Same(t, tail, list.Back())
	})
}

func TestList_RemoveFromEnds(t *testing.T) {
	t.Run("Empty list", func(t *testing.T) {
		list := New[int]()
		value, found := list.RemoveFromHead()
		assert.False(t, found)
		assert.Zero(t, value)
		assert.Equal(t, 0, list.Len())

		value, found = list.RemoveFromTail()
		assert.False(t, found)
		assert.Zero(t, value)
		assertListEqualsSlice(t, []int{}, list)
	})

	t.Run("Singleton", func(t *testing.T) {
		list, _ := newListWithNodes(1)
		value, found := list.RemoveFromHead()
		assert.True(t, found)
		assert.Equal(t, 1, value)
		assertListEqualsSlice(t, []int{}, list)

		list, _ = newListWithNodes(1)
		value, found = list.RemoveFromTail()
		assert.True(t, found)
		assert.Equal(t, 1, value)
		assertListEqualsSlice(t, []int{}, list)
	})

	t.Run("Removed nodes are unlinked", func(t *testing.T) {
		list, nodes := newListWithNodes(3)
		list.RemoveFromHead()
		list.RemoveFromTail()
		assertListEqualsSlice(t, []int{2}, list)
		for _, removed := range []*Node[int]{nodes[0], nodes[2]} {
			assert.Nil(t, removed.Next())
			assert.Nil(t, removed.Prev())
		}
	})

	t.Run("FIFO from the opposite end", func(t *testing.T) {
		list := New[int]()
		for i := 1; i <= 5; i++ {
			list.AddToTail(i)
		}
		var drained []int
		for value, found := list.RemoveFromHead(); found; value, found = list.RemoveFromHead() {
			drained = append(drained, value)
			assertListEqualsSlice(t, []int{1, 2, 3, 4, 5}[len(drained):], list)
		}
		assert.Equal(t, []int{1, 2, 3, 4, 5}, drained)
	})

	t.Run("LIFO from the insertion end", func(t *testing.T) {
		list := New[int]()
		for i := 1; i <= 5; i++ {
			list.AddToHead(i)
		}
		var drained []int
		for value, found := list.RemoveFromHead(); found; value, found = list.RemoveFromHead() {
			drained = append(drained, value)
		}
		assert.Equal(t, []int{5, 4, 3, 2, 1}, drained)

		for i := 1; i <= 5; i++ {
			list.AddToTail(i)
		}
		drained = nil
		for value, found := list.RemoveFromTail(); found; value, found = list.RemoveFromTail() {
			drained = append(drained, value)
		}
		assert.Equal(t, []int{5, 4, 3, 2, 1}, drained)
		assertListEqualsSlice(t, []int{}, list)
	})
}

func TestList_MoveToFront(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		nodeCount int
		moveIdx   int
		expected  []int
	}{
		{name: "singleton", nodeCount: 1, moveIdx: 0, expected: []int{1}},
		{name: "already head", nodeCount: 3, moveIdx: 0, expected: []int{1, 2, 3}},
		{name: "tail of two", nodeCount: 2, moveIdx: 1, expected: []int{2, 1}},
		{name: "middle", nodeCount: 5, moveIdx: 2, expected: []int{3, 1, 2, 4, 5}},
		{name: "tail", nodeCount: 5, moveIdx: 4, expected: []int{5, 1, 2, 3, 4}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			list, nodes := newListWithNodes(testCase.nodeCount)
			list.MoveToFront(nodes[testCase.moveIdx])
			assertListEqualsSlice(t, testCase.expected, list)
			assert.Same(t, nodes[testCase.moveIdx], list.Front())

			// Moving the head again is idempotent.
			list.MoveToFront(nodes[testCase.moveIdx])
			assertListEqualsSlice(t, testCase.expected, list)
		})
	}

	t.Run("tail is updated", func(t *testing.T) {
		list, nodes := newListWithNodes(3)
		list.MoveToFront(nodes[2])
		assert.Same(t, nodes[1], list.Back())
	})
}

func TestList_MoveToEnd(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		nodeCount int
		moveIdx   int
		expected  []int
	}{
		{name: "singleton", nodeCount: 1, moveIdx: 0, expected: []int{1}},
		{name: "already tail", nodeCount: 3, moveIdx: 2, expected: []int{1, 2, 3}},
		{name: "head of two", nodeCount: 2, moveIdx: 0, expected: []int{2, 1}},
		{name: "middle", nodeCount: 5, moveIdx: 2, expected: []int{1, 2, 4, 5, 3}},
		{name: "head", nodeCount: 5, moveIdx: 0, expected: []int{2, 3, 4, 5, 1}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			list, nodes := newListWithNodes(testCase.nodeCount)
			list.MoveToEnd(nodes[testCase.moveIdx])
			assertListEqualsSlice(t, testCase.expected, list)
			assert.Same(t, nodes[testCase.moveIdx], list.Back())

			list.MoveToEnd(nodes[testCase.moveIdx])
			assertListEqualsSlice(t, testCase.expected, list)
		})
	}

	t.Run("head is updated", func(t *testing.T) {
		list, nodes := newListWithNodes(3)
		list.MoveToEnd(nodes[0])
		assert.Same(t, nodes[1], list.Front())
	})
}

func TestList_Delete(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		nodeCount int
		deleteIdx int
		expected  []int
	}{
		{name: "singleton", nodeCount: 1, deleteIdx: 0, expected: []int{}},
		{name: "head of two", nodeCount: 2, deleteIdx: 0, expected: []int{2}},
		{name: "tail of two", nodeCount: 2, deleteIdx: 1, expected: []int{1}},
		{name: "head", nodeCount: 5, deleteIdx: 0, expected: []int{2, 3, 4, 5}},
		{name: "middle", nodeCount: 5, deleteIdx: 2, expected: []int{1, 2, 4, 5}},
		{name: "tail", nodeCount: 5, deleteIdx: 4, expected: []int{1, 2, 3, 4}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			list, nodes := newListWithNodes(testCase.nodeCount)
			deleted := nodes[testCase.deleteIdx]
			list.Delete(deleted)
			assertListEqualsSlice(t, testCase.expected, list)
			assert.Nil(t, deleted.Next(), "Deleted node should be unlinked")
			assert.Nil(t, deleted.Prev(), "Deleted node should be unlinked")
		})
	}

	t.Run("neighbours are bridged", func(t *testing.T) {
		list, nodes := newListWithNodes(5)
		list.Delete(nodes[2])
		assert.Same(t, nodes[3], nodes[1].Next(), "Node 2's next should be node 4")
		assert.Same(t, nodes[1], nodes[3].Prev(), "Node 4's prev should be node 2")
	})

	t.Run("until empty", func(t *testing.T) {
		list, nodes := newListWithNodes(5)
		for i, node := range nodes {
			list.Delete(node)
			assertListEqualsSlice(t, []int{1, 2, 3, 4, 5}[i+1:], list)
		}
	})

	t.Run("identity decides which duplicate goes", func(t *testing.T) {
		list := New[string]()
		list.AddToTail("x")
		second := list.AddToTail("x")
		list.AddToTail("y")
		list.Delete(second)
		assertListEqualsSlice(t, []string{"x", "y"}, list)
	})

	t.Run("empty list", func(t *testing.T) {
		list := New[int]()
		list.Delete(&Node[int]{Value: 1})
		assertListEqualsSlice(t, []int{}, list)
	})
}

func TestList_ForeignNodes(t *testing.T) {
	t.Run("nil node", func(t *testing.T) {
		list, _ := newListWithNodes(3)
		expectInvariant(t, "nil_node", func() { list.Delete(nil) })
		expectInvariant(t, "nil_node", func() { list.MoveToFront(nil) })
		expectInvariant(t, "nil_node", func() { list.MoveToEnd(nil) })
		assertListEqualsSlice(t, []int{1, 2, 3}, list)
	})

	t.Run("detached node", func(t *testing.T) {
		list, nodes := newListWithNodes(3)
		list.Delete(nodes[1])
		expectInvariant(t, "foreign_node", func() { list.Delete(nodes[1]) })
		expectInvariant(t, "foreign_node", func() { list.MoveToFront(nodes[1]) })
		expectInvariant(t, "foreign_node", func() { list.MoveToEnd(nodes[1]) })
		assertListEqualsSlice(t, []int{1, 3}, list)
	})

	t.Run("detached node on a singleton", func(t *testing.T) {
		list, _ := newListWithNodes(1)
		expectInvariant(t, "foreign_node", func() { list.Delete(&Node[int]{Value: 1}) })
		expectInvariant(t, "foreign_node", func() { list.MoveToFront(&Node[int]{Value: 1}) })
		expectInvariant(t, "foreign_node", func() { list.MoveToEnd(&Node[int]{Value: 1}) })
		assertListEqualsSlice(t, []int{1}, list)
	})

	t.Run("nil node on short lists", func(t *testing.T) {
		for nodeCount := range 2 {
			list, _ := newListWithNodes(nodeCount)
			expectInvariant(t, "nil_node", func() { list.Delete(nil) })
			expectInvariant(t, "nil_node", func() { list.MoveToFront(nil) })
			expectInvariant(t, "nil_node", func() { list.MoveToEnd(nil) })
			assertListEqualsSlice(t, []int{1}[:nodeCount], list)
		}
	})

	t.Run("any node on an empty list", func(t *testing.T) {
		list := New[int]()
		list.MoveToFront(&Node[int]{Value: 1})
		list.MoveToEnd(&Node[int]{Value: 1})
		assertListEqualsSlice(t, []int{}, list)
	})
}

func TestList_Max(t *testing.T) {
	for _, testCase := range []struct {
		name     string
		values   []int
		expected int
		found    bool
	}{
		{name: "empty", values: nil, expected: 0, found: false},
		{name: "singleton", values: []int{7}, expected: 7, found: true},
		{name: "mixed", values: []int{3, 1, 4, 1, 5}, expected: 5, found: true},
		{name: "all negative", values: []int{-5, -2, -9}, expected: -2, found: true},
		{name: "max at head", values: []int{9, 1, 2}, expected: 9, found: true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			list := New[int]()
			for _, value := range testCase.values {
				list.AddToTail(value)
			}
			got, found := Max(list)
			assert.Equal(t, testCase.found, found)
			assert.Equal(t, testCase.expected, got)
		})
	}

	t.Run("strings", func(t *testing.T) {
		list := New[string]()
		for _, value := range []string{"pear", "apple", "zucchini", "fig"} {
			list.AddToTail(value)
		}
		got, found := Max(list)
		assert.True(t, found)
		assert.Equal(t, "zucchini", got)
	})

	t.Run("custom compare", func(t *testing.T) {
		list := New[string]()
		for _, value := range []string{"bb", "a", "cccc", "ddd"} {
			list.AddToTail(value)
		}
		byLength := func(x, y string) int { return len(x) - len(y) }
		got, found := list.MaxFunc(byLength)
		assert.True(t, found)
		assert.Equal(t, "cccc", got)

		got, found = list.MaxFunc(func(x, y string) int { return strings.Compare(y, x) })
		assert.True(t, found)
		assert.Equal(t, "a", got, "Reversed comparison should yield the minimum")
	})
}

func TestList_Iterate(t *testing.T) {
	list, _ := newListWithNodes(4)
	assert.Equal(t, []int{1, 2, 3, 4}, slices.Collect(list.All()))
	assert.Equal(t, []int{4, 3, 2, 1}, slices.Collect(list.Backward()))
	assert.Equal(t, []int{1, 2, 3, 4}, list.Values())

	{ // Stopping early is respected.
		var seen []int
		for value := range list.All() {
			if value == 3 {
				break
			}
			seen = append(seen, value)
		}
		assert.Equal(t, []int{1, 2}, seen)
	}

	assert.Empty(t, New[int]().Values())
}

// TestList_RandomOperations applies random operations to a list and to a slice model, checking that both agree
// and that the list bookkeeping stays consistent after every step.
func TestList_RandomOperations(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	list := New[int]()
	var model []int
	var nodes []*Node[int] // Nodes in the same order as `model`.

	for step := range 2000 {
		switch op := rnd.IntN(7); {
		case op == 0:
			nodes = slices.Insert(nodes, 0, list.AddToHead(step))
			model = slices.Insert(model, 0, step)
		case op == 1:
			nodes = append(nodes, list.AddToTail(step))
			model = append(model, step)
		case op == 2:
			value, found := list.RemoveFromHead()
			require.Equal(t, len(model) > 0, found)
			if found {
				require.Equal(t, model[0], value)
				model, nodes = model[1:], nodes[1:]
			}
		case op == 3:
			value, found := list.RemoveFromTail()
			require.Equal(t, len(model) > 0, found)
			if found {
				require.Equal(t, model[len(model)-1], value)
				model, nodes = model[:len(model)-1], nodes[:len(nodes)-1]
			}
		case len(nodes) == 0:
			continue
		case op == 4:
			idx := rnd.IntN(len(nodes))
			list.Delete(nodes[idx])
			model, nodes = slices.Delete(model, idx, idx+1), slices.Delete(nodes, idx, idx+1)
		case op == 5:
			idx := rnd.IntN(len(nodes))
			node, value := nodes[idx], model[idx]
			list.MoveToFront(node)
			model, nodes = slices.Delete(model, idx, idx+1), slices.Delete(nodes, idx, idx+1)
			model, nodes = slices.Insert(model, 0, value), slices.Insert(nodes, 0, node)
			require.Same(t, node, list.Front())
		case op == 6:
			idx := rnd.IntN(len(nodes))
			node, value := nodes[idx], model[idx]
			list.MoveToEnd(node)
			model, nodes = slices.Delete(model, idx, idx+1), slices.Delete(nodes, idx, idx+1)
			model, nodes = append(model, value), append(nodes, node)
			require.Same(t, node, list.Back())
		}
		assertListEqualsSlice(t, model, list)
	}
}
