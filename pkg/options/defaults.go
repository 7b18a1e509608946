package options

import "github.com/iamNilotpal/ember/pkg/storage"

const (
	// KB and MB are the binary size units the size knobs are expressed in.
	KB uint64 = 1024
	MB uint64 = 1024 * KB

	// DefaultBlockSize is the atomic unit of disk I/O (4 KiB).
	DefaultBlockSize = 4 * KB

	// DefaultDiskSize is the total capacity of the simulated device (4 MiB),
	// i.e. 1024 blocks at the default block size.
	DefaultDiskSize = 4 * MB

	// DefaultBufferSize bounds the buffer pool (64 KiB), i.e. 16 frames at
	// the default block size.
	DefaultBufferSize = 64 * KB

	// DefaultDiskFile is the backing file name used when none is given.
	DefaultDiskFile = "disk.dat"

	// MinBlockSize keeps the block-aligned arithmetic meaningful; a block
	// must at least hold one fixed-width record slot.
	MinBlockSize = 16
)

// NewDefaultOptions returns the default configuration settings for an
// ember instance. Every call builds fresh sub-option structs so one
// instance's overrides never leak into another's.
func NewDefaultOptions() Options {
	return Options{
		DiskFile: DefaultDiskFile,
		Access:   storage.Random,
		Strategy: storage.LRU,
		DiskOptions: &diskOptions{
			BlockSize: DefaultBlockSize,
			DiskSize:  DefaultDiskSize,
		},
		BufferOptions: &bufferOptions{
			Size: DefaultBufferSize,
		},
	}
}
