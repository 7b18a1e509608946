package exthash

import (
	"github.com/iamNilotpal/ember/pkg/codec"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/zap"
)

// BucketID identifies a bucket within an index's address range. Bucket i
// is serialized at base_address + i*bucketSize.
type BucketID int64

// entry is one key/value pair held by a bucket.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// bucket is the in-memory image of one serialized bucket: its capacity,
// its discriminator depth, its id, and up to maxCount entries. Like tree
// nodes, every load decodes a fresh value and every save writes it back
// whole.
type bucket[K comparable, V any] struct {
	maxCount   uint32
	localDepth uint32
	id         BucketID
	entries    []entry[K, V]
}

func (b *bucket[K, V]) full() bool { return len(b.entries) >= int(b.maxCount) }

// Hasher maps keys onto the u64 space the directory discriminates on.
type Hasher[K comparable] func(K) uint64

// Config encapsulates all the parameters required to initialize an Index.
type Config[K comparable, V any] struct {
	// Store is the byte-addressed surface buckets are paged through.
	Store storage.ByteStore

	// Order is the maximum number of entries a bucket holds.
	Order int

	// GlobalDepth is the initial directory depth; the directory starts
	// with 2^GlobalDepth slots, each its own bucket.
	GlobalDepth uint32

	// BaseAddress is where bucket 0 lives.
	BaseAddress storage.Address

	// KeyCodec and ValueCodec fix the serialized slot widths.
	KeyCodec   codec.Codec[K]
	ValueCodec codec.Codec[V]

	// Hash buckets keys; IntHasher and StringHasher cover the common key
	// types.
	Hash Hasher[K]

	// MergeOnDelete folds an emptied bucket back into its buddy when their
	// depths agree and the union fits, shrinking the directory when every
	// bucket's depth drops below the global depth. Off by default: the
	// classic teaching behavior never shrinks.
	MergeOnDelete bool

	Logger *zap.SugaredLogger
}

// Index is a disk-resident extendible hash index. The directory lives in
// memory (it is small: 2^globalDepth ids); every bucket lives behind the
// store.
type Index[K comparable, V any] struct {
	store      storage.ByteStore
	order      int
	base       storage.Address
	keyCodec   codec.Codec[K]
	valueCodec codec.Codec[V]
	hash       Hasher[K]

	globalDepth   uint32
	directory     []BucketID
	lastID        BucketID
	freeIDs       []BucketID
	bucketSize    uint64
	mergeOnDelete bool

	log *zap.SugaredLogger
}
