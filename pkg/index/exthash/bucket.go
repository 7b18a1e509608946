package exthash

import (
	"encoding/binary"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// Serialized bucket layout, fixed footprint regardless of fill:
//
//	maxCount   4 bytes
//	localDepth 4 bytes
//	size       4 bytes
//	id         8 bytes
//	entries    maxCount slots of keyCodec.Size() + valueCodec.Size()
const bucketHeaderSize = 4 + 4 + 4 + 8

func computeBucketSize(order int, keySize, valueSize uint64) uint64 {
	return bucketHeaderSize + uint64(order)*(keySize+valueSize)
}

// address returns where bucket id lives in the store.
func (x *Index[K, V]) address(id BucketID) storage.Address {
	return x.base + storage.Address(uint64(id)*x.bucketSize)
}

// createBucket allocates an id, persists a fresh empty bucket of the
// given depth under it, and returns the id.
func (x *Index[K, V]) createBucket(localDepth uint32) (BucketID, error) {
	var id BucketID
	if n := len(x.freeIDs); n > 0 {
		id = x.freeIDs[n-1]
		x.freeIDs = x.freeIDs[:n-1]
	} else {
		id = x.lastID
		x.lastID++
	}

	b := &bucket[K, V]{maxCount: uint32(x.order), localDepth: localDepth, id: id}
	if err := x.saveBucket(b); err != nil {
		return 0, err
	}
	return id, nil
}

// destroyBucket reclaims a bucket id for reuse.
func (x *Index[K, V]) destroyBucket(id BucketID) {
	x.freeIDs = append(x.freeIDs, id)
}

// loadBucket reads and decodes bucket id from the store.
func (x *Index[K, V]) loadBucket(id BucketID) (*bucket[K, V], error) {
	data, err := x.store.ReadAddress(x.address(id), x.bucketSize)
	if err != nil {
		return nil, err
	}

	b := &bucket[K, V]{
		maxCount:   binary.LittleEndian.Uint32(data[0:]),
		localDepth: binary.LittleEndian.Uint32(data[4:]),
		id:         BucketID(binary.LittleEndian.Uint64(data[12:])),
	}
	size := binary.LittleEndian.Uint32(data[8:])
	if b.maxCount != uint32(x.order) || size > b.maxCount || b.localDepth > x.globalDepth {
		return nil, errors.NewIndexCorruptionError("LoadBucket", int64(id), nil).
			WithDetail("maxCount", b.maxCount).
			WithDetail("size", size).
			WithDetail("localDepth", b.localDepth)
	}

	keySize, valueSize := x.keyCodec.Size(), x.valueCodec.Size()
	slot := keySize + valueSize
	b.entries = make([]entry[K, V], size)
	for i := uint32(0); i < size; i++ {
		off := bucketHeaderSize + uint64(i)*slot
		b.entries[i] = entry[K, V]{
			key:   x.keyCodec.Decode(data[off:]),
			value: x.valueCodec.Decode(data[off+keySize:]),
		}
	}
	return b, nil
}

// saveBucket encodes the bucket into its fixed footprint and writes it
// back under its own id.
func (x *Index[K, V]) saveBucket(b *bucket[K, V]) error {
	data := make([]byte, x.bucketSize)

	binary.LittleEndian.PutUint32(data[0:], b.maxCount)
	binary.LittleEndian.PutUint32(data[4:], b.localDepth)
	binary.LittleEndian.PutUint32(data[8:], uint32(len(b.entries)))
	binary.LittleEndian.PutUint64(data[12:], uint64(b.id))

	keySize, valueSize := x.keyCodec.Size(), x.valueCodec.Size()
	slot := keySize + valueSize
	for i, e := range b.entries {
		off := bucketHeaderSize + uint64(i)*slot
		x.keyCodec.Encode(data[off:], e.key)
		x.valueCodec.Encode(data[off+keySize:], e.value)
	}

	return x.store.WriteAddress(x.address(b.id), data)
}
