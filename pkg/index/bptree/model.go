package bptree

import (
	"cmp"

	"github.com/iamNilotpal/ember/pkg/codec"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/zap"
)

// NodeID identifies a node within a tree's address range. Node i is
// serialized at base_address + i*nodeSize. The sentinel -1 means "no
// node": an absent root, the parent of the root, the end of the leaf
// chain.
type NodeID int64

// NilNode is the null node id.
const NilNode NodeID = -1

type nodeKind uint8

const (
	kindInternal nodeKind = iota
	kindLeaf
)

// node is the in-memory image of one serialized tree node. A node is
// either internal (keys + children, one more child than keys) or a leaf
// (keys + values in lockstep, plus the next-leaf link). Every load
// produces a fresh value; every save writes it back whole. Nodes are
// never aliased across operations.
type node[K cmp.Ordered, V any] struct {
	kind     nodeKind
	parent   NodeID // NilNode for the root.
	nextLeaf NodeID // Meaningful only for leaves; NilNode terminates the chain.
	keys     []K
	children []NodeID // Internal only; len(children) == len(keys)+1.
	values   []V      // Leaf only; len(values) == len(keys).
}

func (n *node[K, V]) isLeaf() bool { return n.kind == kindLeaf }

// Entry is one key/value pair surfaced by range searches and iteration.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Config encapsulates all the parameters required to initialize a Tree.
type Config[K cmp.Ordered, V any] struct {
	// Store is the byte-addressed surface the tree pages its nodes
	// through; in production it is the buffer manager.
	Store storage.ByteStore

	// Order is the maximum number of children of an internal node; a node
	// holds at most Order-1 keys at rest. Must be at least 3.
	Order int

	// BaseAddress is where node 0 lives. The caller reserves the address
	// space; AddressRange reports how far the tree has grown into it.
	BaseAddress storage.Address

	// KeyCodec and ValueCodec fix the serialized slot widths.
	KeyCodec   codec.Codec[K]
	ValueCodec codec.Codec[V]

	// RejectDuplicates makes Insert fail on an existing key instead of
	// overwriting its value in place.
	RejectDuplicates bool

	Logger *zap.SugaredLogger
}

// Tree is a disk-resident B+ tree of the given order. All node state
// lives behind the ByteStore; the struct itself only carries the root id,
// the id allocator, and the free list.
type Tree[K cmp.Ordered, V any] struct {
	store            storage.ByteStore
	order            int
	base             storage.Address
	keyCodec         codec.Codec[K]
	valueCodec       codec.Codec[V]
	rejectDuplicates bool

	root     NodeID
	lastID   NodeID   // Next never-used node id.
	freeIDs  []NodeID // Destroyed ids, reused before lastID grows.
	nodeSize uint64

	log *zap.SugaredLogger
}
