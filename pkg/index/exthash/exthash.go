// Package exthash implements a disk-resident extendible hash index.
//
// A directory of 2^globalDepth slots maps the low bits of a key's hash to
// bucket ids; several slots may share one bucket as long as they agree on
// the bucket's low localDepth bits. Buckets are fixed-size records paged
// through a byte-addressed store, exactly like B+ tree nodes: bucket i
// lives at baseAddress + i*bucketSize.
//
// Overflow is handled structurally rather than with chains: a full bucket
// raises its local depth, doubling the directory if the global depth
// falls behind, acquires a buddy at the slot differing in the new
// discriminator bit, and redistributes its entries between the pair.
// Deletion can optionally run the inverse: an emptied bucket folds back
// into its buddy and the directory halves once no bucket needs the top
// bit.
package exthash

import (
	"fmt"
	"io"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// maxDepth bounds the directory: discriminating on more than 32 bits of
// hash means the insert workload defeated the hash function.
const maxDepth = 32

// New creates an index whose directory starts at 2^GlobalDepth slots,
// each pointing at its own freshly persisted empty bucket.
func New[K comparable, V any](config *Config[K, V]) (*Index[K, V], error) {
	if config == nil || config.Store == nil || config.KeyCodec == nil || config.ValueCodec == nil ||
		config.Hash == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}
	if config.Order < 1 {
		return nil, errors.NewFieldRangeError("order", config.Order, 1, nil)
	}
	if config.GlobalDepth > maxDepth {
		return nil, errors.NewFieldRangeError("globalDepth", config.GlobalDepth, 0, maxDepth)
	}

	x := &Index[K, V]{
		store:         config.Store,
		order:         config.Order,
		base:          config.BaseAddress,
		keyCodec:      config.KeyCodec,
		valueCodec:    config.ValueCodec,
		hash:          config.Hash,
		globalDepth:   config.GlobalDepth,
		mergeOnDelete: config.MergeOnDelete,
		bucketSize:    computeBucketSize(config.Order, config.KeyCodec.Size(), config.ValueCodec.Size()),
		log:           config.Logger,
	}

	slots := 1 << config.GlobalDepth
	x.directory = make([]BucketID, 0, slots)
	for i := 0; i < slots; i++ {
		id, err := x.createBucket(config.GlobalDepth)
		if err != nil {
			return nil, err
		}
		x.directory = append(x.directory, id)
	}

	x.log.Infow(
		"Initializing extendible hash index",
		"order", config.Order,
		"globalDepth", config.GlobalDepth,
		"baseAddress", config.BaseAddress,
		"bucketSize", x.bucketSize,
	)
	return x, nil
}

// AddressRange returns the half-open byte range [start, end) the index
// has grown into.
func (x *Index[K, V]) AddressRange() (storage.Address, storage.Address) {
	return x.base, x.base + storage.Address(uint64(x.lastID)*x.bucketSize)
}

// GlobalDepth returns the directory's current discriminator width.
func (x *Index[K, V]) GlobalDepth() uint32 { return x.globalDepth }

// DirectorySize returns the number of directory slots, 2^globalDepth.
func (x *Index[K, V]) DirectorySize() int { return len(x.directory) }

// slotOf returns the directory slot addressing key.
func (x *Index[K, V]) slotOf(key K) uint64 {
	return x.hash(key) & ((1 << x.globalDepth) - 1)
}

// Search returns the value stored under key, reporting presence with the
// second return.
func (x *Index[K, V]) Search(key K) (V, bool, error) {
	var zero V

	b, err := x.loadBucket(x.directory[x.slotOf(key)])
	if err != nil {
		return zero, false, err
	}
	for _, e := range b.entries {
		if e.key == key {
			return e.value, true, nil
		}
	}
	return zero, false, nil
}

// Insert places the key/value pair in the addressed bucket, updating in
// place when the key exists and splitting the bucket as often as needed
// when it is full.
func (x *Index[K, V]) Insert(key K, value V) error {
	for {
		slot := x.slotOf(key)
		b, err := x.loadBucket(x.directory[slot])
		if err != nil {
			return err
		}

		for i, e := range b.entries {
			if e.key == key {
				b.entries[i].value = value
				return x.saveBucket(b)
			}
		}

		if !b.full() {
			b.entries = append(b.entries, entry[K, V]{key: key, value: value})
			return x.saveBucket(b)
		}

		if err := x.split(slot); err != nil {
			return err
		}
	}
}

// split raises the addressed bucket's local depth by one (growing the
// directory when the new depth exceeds the global depth), creates a buddy
// at the slot differing in the new discriminator bit, redirects every
// congruent slot to the buddy, and redistributes the bucket's entries
// between the pair.
func (x *Index[K, V]) split(slot uint64) error {
	b, err := x.loadBucket(x.directory[slot])
	if err != nil {
		return err
	}
	if b.localDepth >= maxDepth {
		return errors.NewIndexError(nil, errors.ErrorCodeInternal, "bucket split exceeded maximum depth").
			WithOperation("Split").
			WithSlot(int64(b.id)).
			WithDetail("localDepth", b.localDepth)
	}

	if b.localDepth++; b.localDepth > x.globalDepth {
		x.grow()
	}

	buddyID, err := x.createBucket(b.localDepth)
	if err != nil {
		return err
	}

	// Every slot agreeing with the buddy on the low localDepth bits points
	// at the buddy now.
	mask := uint64(1<<b.localDepth) - 1
	buddyLow := (slot ^ (1 << (b.localDepth - 1))) & mask
	for i := range x.directory {
		if uint64(i)&mask == buddyLow {
			x.directory[i] = buddyID
		}
	}

	// Re-home the entries: each lands in the original or the buddy
	// depending on its new discriminator bit.
	entries := b.entries
	b.entries = nil
	if err := x.saveBucket(b); err != nil {
		return err
	}

	for _, e := range entries {
		target, err := x.loadBucket(x.directory[x.slotOf(e.key)])
		if err != nil {
			return err
		}
		target.entries = append(target.entries, e)
		if err := x.saveBucket(target); err != nil {
			return err
		}
	}
	return nil
}

// grow doubles the directory by duplicating every slot; the new top half
// mirrors the bottom half until splits redirect individual slots.
func (x *Index[K, V]) grow() {
	x.directory = append(x.directory, x.directory...)
	x.globalDepth++
	x.log.Infow("Directory grown", "globalDepth", x.globalDepth, "slots", len(x.directory))
}

// Delete removes key from the addressed bucket, reporting whether it was
// present. With MergeOnDelete set, an emptied bucket is folded back into
// its buddy where the invariants allow, and the directory shrinks while
// no bucket uses its top discriminator bit.
func (x *Index[K, V]) Delete(key K) (bool, error) {
	slot := x.slotOf(key)
	b, err := x.loadBucket(x.directory[slot])
	if err != nil {
		return false, err
	}

	found := false
	for i, e := range b.entries {
		if e.key == key {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	if err := x.saveBucket(b); err != nil {
		return false, err
	}

	if x.mergeOnDelete {
		if err := x.mergeBucket(slot); err != nil {
			return false, err
		}
		if err := x.shrink(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// mergeBucket folds the bucket addressed by slot into its buddy when both
// share a local depth and their combined occupancy fits in one bucket.
// The survivor's local depth decreases and every slot that pointed at the
// victim follows it.
func (x *Index[K, V]) mergeBucket(slot uint64) error {
	b, err := x.loadBucket(x.directory[slot])
	if err != nil {
		return err
	}
	if b.localDepth == 0 {
		return nil
	}

	mask := uint64(1<<b.localDepth) - 1
	buddySlot := (slot & mask) ^ (1 << (b.localDepth - 1))
	buddy, err := x.loadBucket(x.directory[buddySlot])
	if err != nil {
		return err
	}
	if buddy.id == b.id || buddy.localDepth != b.localDepth {
		return nil
	}
	if len(b.entries)+len(buddy.entries) > x.order {
		return nil
	}

	// Fold the buddy into b, lower the depth, and redirect the buddy's
	// slots.
	b.entries = append(b.entries, buddy.entries...)
	b.localDepth--
	if err := x.saveBucket(b); err != nil {
		return err
	}
	for i, id := range x.directory {
		if id == buddy.id {
			x.directory[i] = b.id
		}
	}
	x.destroyBucket(buddy.id)
	return nil
}

// shrink halves the directory while every bucket's local depth sits below
// the global depth, i.e. while the top half exactly mirrors the bottom
// half.
func (x *Index[K, V]) shrink() error {
	for x.globalDepth > 0 {
		half := len(x.directory) / 2
		for i := 0; i < half; i++ {
			if x.directory[i] != x.directory[i+half] {
				return nil
			}
		}
		x.directory = x.directory[:half]
		x.globalDepth--
		x.log.Infow("Directory shrunk", "globalDepth", x.globalDepth, "slots", len(x.directory))
	}
	return nil
}

// Display writes the directory with one representative bucket per
// localDepth-prefix equivalence class.
func (x *Index[K, V]) Display(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Directory (globalDepth=%d, slots=%d)\n", x.globalDepth, len(x.directory)); err != nil {
		return err
	}
	for i, id := range x.directory {
		b, err := x.loadBucket(id)
		if err != nil {
			return err
		}
		// Only the canonical (lowest) slot of each class prints its bucket.
		if uint64(i) != uint64(i)&((1<<b.localDepth)-1) {
			continue
		}
		if _, err := fmt.Fprintf(w, "%0*b -> bucket %d (localDepth=%d):", int(x.globalDepth), i, id, b.localDepth); err != nil {
			return err
		}
		for _, e := range b.entries {
			if _, err := fmt.Fprintf(w, " (%v, %v)", e.key, e.value); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
