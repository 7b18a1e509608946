package bptree

import (
	"cmp"
	"encoding/binary"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// Serialized node layout. Every node occupies the same fixed footprint
// regardless of fill:
//
//	kind       1 byte
//	parent     8 bytes
//	nextLeaf   8 bytes
//	keyCount   4 bytes
//	childCount 4 bytes
//	valueCount 4 bytes
//	keys       order slots of keyCodec.Size()
//	children   (order+1) slots of 8 bytes
//	values     order slots of valueCodec.Size()
const nodeHeaderSize = 1 + 8 + 8 + 4 + 4 + 4

func computeNodeSize(order int, keySize, valueSize uint64) uint64 {
	return nodeHeaderSize +
		uint64(order)*keySize +
		uint64(order+1)*8 +
		uint64(order)*valueSize
}

// address returns where node id lives in the store.
func (t *Tree[K, V]) address(id NodeID) storage.Address {
	return t.base + storage.Address(uint64(id)*t.nodeSize)
}

// allocate hands out a node id, preferring destroyed ids from the free
// list over growing the storage range, and returns a fresh in-memory node
// of the given kind. The node is not persisted until saveNode.
func (t *Tree[K, V]) allocate(kind nodeKind) (NodeID, *node[K, V]) {
	var id NodeID
	if n := len(t.freeIDs); n > 0 {
		id = t.freeIDs[n-1]
		t.freeIDs = t.freeIDs[:n-1]
	} else {
		id = t.lastID
		t.lastID++
	}
	return id, &node[K, V]{kind: kind, parent: NilNode, nextLeaf: NilNode}
}

// destroyNode reclaims a node id for reuse. The bytes on disk are left as
// they are; the id simply becomes allocatable again.
func (t *Tree[K, V]) destroyNode(id NodeID) {
	t.freeIDs = append(t.freeIDs, id)
}

// loadNode reads and decodes node id from the store. Counts that cannot
// fit the fixed layout surface as corruption.
func (t *Tree[K, V]) loadNode(id NodeID) (*node[K, V], error) {
	data, err := t.store.ReadAddress(t.address(id), t.nodeSize)
	if err != nil {
		return nil, err
	}

	n := &node[K, V]{}
	switch data[0] {
	case byte(kindInternal):
		n.kind = kindInternal
	case byte(kindLeaf):
		n.kind = kindLeaf
	default:
		return nil, errors.NewIndexCorruptionError("LoadNode", int64(id), nil).
			WithDetail("kind", data[0])
	}
	n.parent = NodeID(binary.LittleEndian.Uint64(data[1:]))
	n.nextLeaf = NodeID(binary.LittleEndian.Uint64(data[9:]))

	keyCount := binary.LittleEndian.Uint32(data[17:])
	childCount := binary.LittleEndian.Uint32(data[21:])
	valueCount := binary.LittleEndian.Uint32(data[25:])
	if keyCount > uint32(t.order) || childCount > uint32(t.order+1) || valueCount > uint32(t.order) {
		return nil, errors.NewIndexCorruptionError("LoadNode", int64(id), nil).
			WithDetail("keyCount", keyCount).
			WithDetail("childCount", childCount).
			WithDetail("valueCount", valueCount)
	}

	keySize, valueSize := t.keyCodec.Size(), t.valueCodec.Size()
	keysOff := uint64(nodeHeaderSize)
	childrenOff := keysOff + uint64(t.order)*keySize
	valuesOff := childrenOff + uint64(t.order+1)*8

	n.keys = make([]K, keyCount)
	for i := uint32(0); i < keyCount; i++ {
		n.keys[i] = t.keyCodec.Decode(data[keysOff+uint64(i)*keySize:])
	}
	n.children = make([]NodeID, childCount)
	for i := uint32(0); i < childCount; i++ {
		n.children[i] = NodeID(binary.LittleEndian.Uint64(data[childrenOff+uint64(i)*8:]))
	}
	n.values = make([]V, valueCount)
	for i := uint32(0); i < valueCount; i++ {
		n.values[i] = t.valueCodec.Decode(data[valuesOff+uint64(i)*valueSize:])
	}
	return n, nil
}

// saveNode encodes the node into its fixed footprint and writes it back.
func (t *Tree[K, V]) saveNode(id NodeID, n *node[K, V]) error {
	data := make([]byte, t.nodeSize)

	data[0] = byte(n.kind)
	binary.LittleEndian.PutUint64(data[1:], uint64(n.parent))
	binary.LittleEndian.PutUint64(data[9:], uint64(n.nextLeaf))
	binary.LittleEndian.PutUint32(data[17:], uint32(len(n.keys)))
	binary.LittleEndian.PutUint32(data[21:], uint32(len(n.children)))
	binary.LittleEndian.PutUint32(data[25:], uint32(len(n.values)))

	keySize, valueSize := t.keyCodec.Size(), t.valueCodec.Size()
	keysOff := uint64(nodeHeaderSize)
	childrenOff := keysOff + uint64(t.order)*keySize
	valuesOff := childrenOff + uint64(t.order+1)*8

	for i, k := range n.keys {
		t.keyCodec.Encode(data[keysOff+uint64(i)*keySize:], k)
	}
	for i, c := range n.children {
		binary.LittleEndian.PutUint64(data[childrenOff+uint64(i)*8:], uint64(c))
	}
	for i, v := range n.values {
		t.valueCodec.Encode(data[valuesOff+uint64(i)*valueSize:], v)
	}

	return t.store.WriteAddress(t.address(id), data)
}

// lowerBound returns the index of the first key >= k.
func lowerBound[K cmp.Ordered](keys []K, k K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid] < k {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound returns the index of the first key > k.
func upperBound[K cmp.Ordered](keys []K, k K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid] <= k {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
