package storage

import (
	"fmt"
	"strings"
)

// Stats is a point-in-time snapshot of the storage stack's instrumentation:
// how many page requests the buffer pool served, how many of those reached
// the disk, and what the disk's cost model charged for them.
type Stats struct {
	BufferIO   uint64              // Page requests served by the buffer pool.
	DiskIO     uint64              // Block operations that reached the disk.
	DiskCost   uint64              // Weighted cost of those block operations.
	BlockSize  uint64              // Bytes per block.
	FrameCount uint32              // Frames in the buffer pool.
	Strategy   ReplacementStrategy // Eviction policy in effect.
	Access     AccessType          // Disk cost model in effect.
}

// String renders the statistics report block recognized by the external
// drivers.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Buffer IO operations: %d\n", s.BufferIO)
	fmt.Fprintf(&b, "Disk IO operations: %d\n", s.DiskIO)
	fmt.Fprintf(&b, "Disk IO cost: %d\n", s.DiskCost)
	fmt.Fprintf(&b, "(FrameSize: %d, FrameCount: %d)\n", s.BlockSize, s.FrameCount)
	fmt.Fprintf(&b, "(ReplacementStrategy: %s, DiskAccessStrategy: %s)\n", s.Strategy, s.Access)
	return b.String()
}
