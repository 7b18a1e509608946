// Package bptree implements a disk-resident B+ tree index.
//
// Every node is a fixed-size record paged through a byte-addressed store
// (the buffer manager in production): node i lives at
// baseAddress + i*nodeSize, so the tree never sees blocks or frames, only
// byte ranges. Internal nodes route by upper bound — descent to child i
// where i is the smallest index with keys[i] > searchKey, so the
// separator stored in an internal equals the smallest key of its right
// child's leftmost leaf. Leaves chain through nextLeaf in ascending key
// order, which gives range search and iteration a linear walk after one
// descent.
//
// The tree owns no node memory across operations: every load decodes a
// fresh node, every mutation saves it back whole. Destroyed nodes push
// their id onto a free list and are reused before the storage range
// grows.
package bptree

import (
	"cmp"
	"fmt"
	"io"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// New creates an empty tree over the given store and address range.
func New[K cmp.Ordered, V any](config *Config[K, V]) (*Tree[K, V], error) {
	if config == nil || config.Store == nil || config.KeyCodec == nil || config.ValueCodec == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}
	if config.Order < 3 {
		return nil, errors.NewFieldRangeError("order", config.Order, 3, nil)
	}

	t := &Tree[K, V]{
		store:            config.Store,
		order:            config.Order,
		base:             config.BaseAddress,
		keyCodec:         config.KeyCodec,
		valueCodec:       config.ValueCodec,
		rejectDuplicates: config.RejectDuplicates,
		root:             NilNode,
		nodeSize:         computeNodeSize(config.Order, config.KeyCodec.Size(), config.ValueCodec.Size()),
		log:              config.Logger,
	}

	t.log.Infow(
		"Initializing B+ tree index",
		"order", config.Order,
		"baseAddress", config.BaseAddress,
		"nodeSize", t.nodeSize,
	)
	return t, nil
}

// AddressRange returns the half-open byte range [start, end) the tree has
// grown into. Callers placing further structures in the address space
// reserve from end upward.
func (t *Tree[K, V]) AddressRange() (storage.Address, storage.Address) {
	return t.base, t.base + storage.Address(uint64(t.lastID)*t.nodeSize)
}

// Order returns the maximum number of children of an internal node.
func (t *Tree[K, V]) Order() int { return t.order }

// findLeaf descends from the root to the leaf that would hold key.
// Returns NilNode on an empty tree.
func (t *Tree[K, V]) findLeaf(key K) (NodeID, error) {
	if t.root == NilNode {
		return NilNode, nil
	}
	currID := t.root
	curr, err := t.loadNode(currID)
	if err != nil {
		return NilNode, err
	}
	for !curr.isLeaf() {
		currID = curr.children[upperBound(curr.keys, key)]
		if curr, err = t.loadNode(currID); err != nil {
			return NilNode, err
		}
	}
	return currID, nil
}

// Search returns the value stored under key, reporting presence with the
// second return.
func (t *Tree[K, V]) Search(key K) (V, bool, error) {
	var zero V

	leafID, err := t.findLeaf(key)
	if err != nil || leafID == NilNode {
		return zero, false, err
	}
	leaf, err := t.loadNode(leafID)
	if err != nil {
		return zero, false, err
	}

	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		return leaf.values[i], true, nil
	}
	return zero, false, nil
}

// RangeSearch returns every entry with start <= key <= end in ascending
// key order: one descent for start, then a walk along the leaf chain that
// stops when a leaf opens beyond end or the chain runs out.
func (t *Tree[K, V]) RangeSearch(start, end K) ([]Entry[K, V], error) {
	var result []Entry[K, V]

	currID, err := t.findLeaf(start)
	if err != nil || currID == NilNode {
		return result, err
	}
	curr, err := t.loadNode(currID)
	if err != nil {
		return nil, err
	}

	for len(curr.keys) > 0 && curr.keys[0] <= end {
		for i, k := range curr.keys {
			if k >= start && k <= end {
				result = append(result, Entry[K, V]{Key: k, Value: curr.values[i]})
			}
		}
		if curr.nextLeaf == NilNode {
			break
		}
		if curr, err = t.loadNode(curr.nextLeaf); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Insert places the key/value pair in the tree. An existing key has its
// value replaced in place unless the tree was configured with
// RejectDuplicates, in which case the insert fails with a duplicate-key
// error. Leaf and internal overflows split bottom-up; a root overflow
// installs a new internal root.
func (t *Tree[K, V]) Insert(key K, value V) error {
	if t.root == NilNode {
		rootID, root := t.allocate(kindLeaf)
		root.keys = append(root.keys, key)
		root.values = append(root.values, value)
		if err := t.saveNode(rootID, root); err != nil {
			return err
		}
		t.root = rootID
		return nil
	}

	leafID, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	leaf, err := t.loadNode(leafID)
	if err != nil {
		return err
	}

	i := lowerBound(leaf.keys, key)
	if i < len(leaf.keys) && leaf.keys[i] == key {
		if t.rejectDuplicates {
			return errors.NewDuplicateKeyError(fmt.Sprint(key)).WithSlot(int64(leafID))
		}
		leaf.values[i] = value
		return t.saveNode(leafID, leaf)
	}

	leaf.keys = insertAt(leaf.keys, i, key)
	leaf.values = insertAt(leaf.values, i, value)

	if len(leaf.keys) < t.order {
		return t.saveNode(leafID, leaf)
	}

	// The leaf is full: split at order/2, second half to a fresh leaf that
	// takes over the chain link, separator is the new leaf's first key.
	newLeafID, newLeaf := t.allocate(kindLeaf)
	mid := t.order / 2

	newLeaf.nextLeaf = leaf.nextLeaf
	leaf.nextLeaf = newLeafID
	newLeaf.parent = leaf.parent
	newLeaf.keys = append(newLeaf.keys, leaf.keys[mid:]...)
	newLeaf.values = append(newLeaf.values, leaf.values[mid:]...)
	leaf.keys = leaf.keys[:mid]
	leaf.values = leaf.values[:mid]

	separator := newLeaf.keys[0]
	if err := t.saveNode(newLeafID, newLeaf); err != nil {
		return err
	}
	if err := t.saveNode(leafID, leaf); err != nil {
		return err
	}
	return t.insertInternal(leafID, separator, newLeafID)
}

// insertInternal records that right became left's sibling under the given
// separator, splitting parents as overflow propagates up.
func (t *Tree[K, V]) insertInternal(leftID NodeID, key K, rightID NodeID) error {
	left, err := t.loadNode(leftID)
	if err != nil {
		return err
	}
	right, err := t.loadNode(rightID)
	if err != nil {
		return err
	}

	if leftID == t.root {
		newRootID, newRoot := t.allocate(kindInternal)
		newRoot.keys = append(newRoot.keys, key)
		newRoot.children = append(newRoot.children, leftID, rightID)
		left.parent = newRootID
		right.parent = newRootID
		t.root = newRootID

		if err := t.saveNode(newRootID, newRoot); err != nil {
			return err
		}
		if err := t.saveNode(leftID, left); err != nil {
			return err
		}
		return t.saveNode(rightID, right)
	}

	parentID := left.parent
	parent, err := t.loadNode(parentID)
	if err != nil {
		return err
	}

	i := upperBound(parent.keys, key)
	parent.keys = insertAt(parent.keys, i, key)
	parent.children = insertAt(parent.children, i+1, rightID)
	right.parent = parentID
	if err := t.saveNode(rightID, right); err != nil {
		return err
	}

	if len(parent.keys) < t.order {
		return t.saveNode(parentID, parent)
	}

	// Internal overflow: keys right of the midpoint and their children
	// migrate to a fresh internal, the midpoint key is promoted, and every
	// migrated child learns its new parent.
	newInternalID, newInternal := t.allocate(kindInternal)
	mid := t.order / 2

	newInternal.parent = parent.parent
	newInternal.keys = append(newInternal.keys, parent.keys[mid+1:]...)
	newInternal.children = append(newInternal.children, parent.children[mid+1:]...)
	promoted := parent.keys[mid]
	parent.keys = parent.keys[:mid]
	parent.children = parent.children[:mid+1]

	for _, childID := range newInternal.children {
		child, err := t.loadNode(childID)
		if err != nil {
			return err
		}
		child.parent = newInternalID
		if err := t.saveNode(childID, child); err != nil {
			return err
		}
	}

	if err := t.saveNode(parentID, parent); err != nil {
		return err
	}
	if err := t.saveNode(newInternalID, newInternal); err != nil {
		return err
	}
	return t.insertInternal(parentID, promoted, newInternalID)
}

// Remove deletes key from the tree, reporting whether it was present.
// Nodes falling below minimum occupancy rebalance against a sibling:
// merge when the union fits in one node, redistribute one element across
// the separator otherwise.
func (t *Tree[K, V]) Remove(key K) (bool, error) {
	_, found, err := t.Search(key)
	if err != nil || !found {
		return false, err
	}
	leafID, err := t.findLeaf(key)
	if err != nil {
		return false, err
	}
	if err := t.removeEntry(leafID, key, NilNode); err != nil {
		return false, err
	}
	return true, nil
}

// removeEntry removes key from the given node: an entry when ptr is
// NilNode (leaf deletion), otherwise the separator and the child to its
// right (the destroyed node after a merge). Underflow rebalances with the
// right sibling when one exists, else the left.
func (t *Tree[K, V]) removeEntry(nodeID NodeID, key K, ptr NodeID) error {
	n, err := t.loadNode(nodeID)
	if err != nil {
		return err
	}

	i := lowerBound(n.keys, key)
	if i >= len(n.keys) || n.keys[i] != key {
		return errors.NewIndexCorruptionError("Remove", int64(nodeID), nil).
			WithKey(fmt.Sprint(key)).
			WithDetail("reason", "expected key missing from node")
	}
	n.keys = removeAt(n.keys, i)
	if ptr == NilNode {
		n.values = removeAt(n.values, i)
	} else {
		n.children = removeAt(n.children, i+1)
	}
	if err := t.saveNode(nodeID, n); err != nil {
		return err
	}

	if nodeID == t.root {
		return t.shrinkRoot(nodeID, n)
	}

	if !t.underflowed(n) {
		return nil
	}
	return t.rebalance(nodeID, n)
}

// underflowed reports whether a non-root node needs rebalancing: an
// internal with order/2 children or fewer, a leaf with fewer than order/2
// values.
func (t *Tree[K, V]) underflowed(n *node[K, V]) bool {
	if n.isLeaf() {
		return len(n.values) < t.order/2
	}
	return len(n.children) <= t.order/2
}

// shrinkRoot collapses the root after a removal: an emptied leaf root
// empties the tree, an internal root left with a single child hands the
// root over to that child.
func (t *Tree[K, V]) shrinkRoot(rootID NodeID, root *node[K, V]) error {
	if root.isLeaf() && len(root.keys) == 0 {
		t.destroyNode(rootID)
		t.root = NilNode
		return nil
	}
	if !root.isLeaf() && len(root.children) == 1 {
		childID := root.children[0]
		child, err := t.loadNode(childID)
		if err != nil {
			return err
		}
		child.parent = NilNode
		if err := t.saveNode(childID, child); err != nil {
			return err
		}
		t.destroyNode(rootID)
		t.root = childID
	}
	return nil
}

// rebalance restores minimum occupancy of an underflowed node by merging
// with or borrowing from a sibling across their separator.
func (t *Tree[K, V]) rebalance(nodeID NodeID, n *node[K, V]) error {
	parentID := n.parent
	parent, err := t.loadNode(parentID)
	if err != nil {
		return err
	}

	pos := -1
	for idx, childID := range parent.children {
		if childID == nodeID {
			pos = idx
			break
		}
	}
	if pos < 0 {
		return errors.NewIndexCorruptionError("Rebalance", int64(nodeID), nil).
			WithDetail("reason", "node missing from parent's children")
	}

	// Prefer the right sibling; fall back to the left.
	var siblingID NodeID
	var separator K
	sibRight := false
	switch {
	case pos+1 < len(parent.children):
		siblingID = parent.children[pos+1]
		separator = parent.keys[pos]
		sibRight = true
	case pos-1 >= 0:
		siblingID = parent.children[pos-1]
		separator = parent.keys[pos-1]
	default:
		return nil
	}

	sibling, err := t.loadNode(siblingID)
	if err != nil {
		return err
	}

	fits := (!n.isLeaf() && len(n.children)+len(sibling.children) <= t.order) ||
		(n.isLeaf() && len(n.keys)+len(sibling.keys) < t.order)
	if fits {
		return t.merge(nodeID, n, siblingID, sibling, parentID, separator, sibRight)
	}
	return t.redistribute(nodeID, n, siblingID, sibling, parentID, parent, pos, separator, sibRight)
}

// merge folds the right node of the pair into the left, pulls the
// separator down for internal merges, relinks the leaf chain for leaf
// merges, then removes the separator (and the emptied node) from the
// parent.
func (t *Tree[K, V]) merge(nodeID NodeID, n *node[K, V], siblingID NodeID, sibling *node[K, V], parentID NodeID, separator K, sibRight bool) error {
	left, leftID := n, nodeID
	right, rightID := sibling, siblingID
	if !sibRight {
		left, leftID = sibling, siblingID
		right, rightID = n, nodeID
	}

	if !left.isLeaf() {
		left.keys = append(left.keys, separator)
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
		for _, childID := range right.children {
			child, err := t.loadNode(childID)
			if err != nil {
				return err
			}
			child.parent = leftID
			if err := t.saveNode(childID, child); err != nil {
				return err
			}
		}
	} else {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)
		left.nextLeaf = right.nextLeaf
	}

	if err := t.saveNode(leftID, left); err != nil {
		return err
	}
	if err := t.removeEntry(parentID, separator, rightID); err != nil {
		return err
	}
	t.destroyNode(rightID)
	return nil
}

// redistribute moves one element from the sibling across the separator
// into the underflowed node, updating the separator to the new minimum of
// the right side of the pair.
func (t *Tree[K, V]) redistribute(nodeID NodeID, n *node[K, V], siblingID NodeID, sibling *node[K, V], parentID NodeID, parent *node[K, V], pos int, separator K, sibRight bool) error {
	if sibRight {
		// Borrow the sibling's first element.
		if !n.isLeaf() {
			// The separator rotates down into n, the sibling's first key
			// rotates up, and the sibling's first child changes sides.
			n.keys = append(n.keys, separator)
			n.children = append(n.children, sibling.children[0])
			parent.keys[pos] = sibling.keys[0]
			sibling.keys = removeAt(sibling.keys, 0)
			sibling.children = removeAt(sibling.children, 0)

			moved := n.children[len(n.children)-1]
			child, err := t.loadNode(moved)
			if err != nil {
				return err
			}
			child.parent = nodeID
			if err := t.saveNode(moved, child); err != nil {
				return err
			}
		} else {
			n.keys = append(n.keys, sibling.keys[0])
			n.values = append(n.values, sibling.values[0])
			sibling.keys = removeAt(sibling.keys, 0)
			sibling.values = removeAt(sibling.values, 0)
			parent.keys[pos] = sibling.keys[0]
		}
	} else {
		// Borrow the sibling's last element.
		if !n.isLeaf() {
			n.keys = insertAt(n.keys, 0, separator)
			n.children = insertAt(n.children, 0, sibling.children[len(sibling.children)-1])
			parent.keys[pos-1] = sibling.keys[len(sibling.keys)-1]
			sibling.keys = sibling.keys[:len(sibling.keys)-1]
			sibling.children = sibling.children[:len(sibling.children)-1]

			child, err := t.loadNode(n.children[0])
			if err != nil {
				return err
			}
			child.parent = nodeID
			if err := t.saveNode(n.children[0], child); err != nil {
				return err
			}
		} else {
			borrowed := sibling.keys[len(sibling.keys)-1]
			n.keys = insertAt(n.keys, 0, borrowed)
			n.values = insertAt(n.values, 0, sibling.values[len(sibling.values)-1])
			sibling.keys = sibling.keys[:len(sibling.keys)-1]
			sibling.values = sibling.values[:len(sibling.values)-1]
			parent.keys[pos-1] = borrowed
		}
	}

	if err := t.saveNode(parentID, parent); err != nil {
		return err
	}
	if err := t.saveNode(nodeID, n); err != nil {
		return err
	}
	return t.saveNode(siblingID, sibling)
}

// Display writes an indented rendering of the tree, one node per line.
func (t *Tree[K, V]) Display(w io.Writer) error {
	if t.root == NilNode {
		_, err := fmt.Fprintln(w, "Empty B+ Tree")
		return err
	}
	return t.display(w, t.root, "", true)
}

func (t *Tree[K, V]) display(w io.Writer, nodeID NodeID, prefix string, last bool) error {
	n, err := t.loadNode(nodeID)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s├─ %v\n", prefix, n.keys); err != nil {
		return err
	}
	if last {
		prefix += "   "
	} else {
		prefix += "│  "
	}

	if !n.isLeaf() {
		for i, childID := range n.children {
			if err := t.display(w, childID, prefix, i == len(n.children)-1); err != nil {
				return err
			}
		}
		return nil
	}
	_, err = fmt.Fprintf(w, "%s└─ %v\n", prefix, n.values)
	return err
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
