// Package codec provides the fixed-width serialization primitives the
// disk-resident indexes are generic over.
//
// Index nodes and buckets occupy a fixed byte footprint regardless of
// fill, so every key and value type must encode into a slot of constant
// size. Integers encode little-endian at their natural width. Strings
// encode into a bounded slot: a 4-byte length followed by MaxLen reserved
// bytes, with longer inputs truncated to MaxLen. The truncation is the
// documented behavior, not an accident; callers needing longer strings
// configure a larger bound.
package codec

import "encoding/binary"

// Codec converts values of one fixed-width type to and from their on-disk
// slots. Size is constant for a given codec; Encode must write exactly
// Size bytes and Decode must read them back.
type Codec[T any] interface {
	Size() uint64
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

// Int32 encodes int32 values little-endian in 4 bytes.
type Int32 struct{}

func (Int32) Size() uint64 { return 4 }

func (Int32) Encode(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func (Int32) Decode(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

// Int64 encodes int64 values little-endian in 8 bytes.
type Int64 struct{}

func (Int64) Size() uint64 { return 8 }

func (Int64) Encode(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}

func (Int64) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// Uint64 encodes uint64 values little-endian in 8 bytes.
type Uint64 struct{}

func (Uint64) Size() uint64 { return 8 }

func (Uint64) Encode(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}

func (Uint64) Decode(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// String encodes strings into a slot of 4 + MaxLen bytes: the encoded
// length followed by the bytes, zero-padded. Inputs longer than MaxLen are
// truncated to MaxLen.
type String struct {
	MaxLen uint64
}

func (s String) Size() uint64 { return 4 + s.MaxLen }

func (s String) Encode(dst []byte, v string) {
	if uint64(len(v)) > s.MaxLen {
		v = v[:s.MaxLen]
	}
	binary.LittleEndian.PutUint32(dst, uint32(len(v)))
	n := copy(dst[4:4+s.MaxLen], v)
	for i := 4 + n; i < int(4+s.MaxLen); i++ {
		dst[i] = 0
	}
}

func (s String) Decode(src []byte) string {
	n := uint64(binary.LittleEndian.Uint32(src))
	if n > s.MaxLen {
		n = s.MaxLen
	}
	return string(src[4 : 4+n])
}
