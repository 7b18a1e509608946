// Package options provides data structures and functions for configuring
// the ember storage engine. It defines the parameters that control the
// simulated disk's geometry and cost model, the buffer pool's capacity and
// replacement strategy, and the backing file location.
package options

import (
	"strings"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// Defines configurable parameters for the simulated disk.
type diskOptions struct {
	// Size of a block in bytes; the atomic unit of I/O.
	//
	//  - Default: 4 KiB
	//  - Minimum: 16 bytes
	BlockSize uint64 `json:"blockSize"`

	// Total capacity of the device in bytes. Must be a multiple of
	// BlockSize; the block count is DiskSize / BlockSize.
	//
	// Default: 4 MiB
	DiskSize uint64 `json:"diskSize"`
}

// Defines configurable parameters for the buffer pool.
type bufferOptions struct {
	// Total buffer capacity in bytes. Must be a multiple of the disk's
	// BlockSize; the frame count is Size / BlockSize.
	//
	// Default: 64 KiB
	Size uint64 `json:"bufferSize"`
}

// Defines the configuration parameters for an ember instance.
type Options struct {
	// Path of the file backing the simulated disk.
	//
	// Default: "disk.dat"
	DiskFile string `json:"diskFile"`

	// Cost model charged by the disk: Random or Sequential.
	//
	// Default: Random
	Access storage.AccessType `json:"accessType"`

	// Eviction policy of the buffer pool: LRU or MRU.
	//
	// Default: LRU
	Strategy storage.ReplacementStrategy `json:"replacementStrategy"`

	// Configures the disk geometry.
	DiskOptions *diskOptions `json:"diskOptions"`

	// Configures the buffer pool capacity.
	BufferOptions *bufferOptions `json:"bufferOptions"`
}

// BlockSize returns the configured block size in bytes.
func (o *Options) BlockSize() uint64 { return o.DiskOptions.BlockSize }

// BlockCount returns the number of blocks on the configured disk.
func (o *Options) BlockCount() uint64 { return o.DiskOptions.DiskSize / o.DiskOptions.BlockSize }

// FrameCount returns the number of frames in the configured buffer pool.
func (o *Options) FrameCount() uint64 { return o.BufferOptions.Size / o.DiskOptions.BlockSize }

// Validate checks the cross-field constraints that the individual setters
// cannot: divisibility of the disk and buffer sizes by the block size and
// the presence of at least one block and one frame.
func (o *Options) Validate() error {
	if o.DiskFile == "" {
		return errors.NewRequiredFieldError("diskFile")
	}
	if o.DiskOptions.BlockSize < MinBlockSize {
		return errors.NewFieldRangeError("blockSize", o.DiskOptions.BlockSize, MinBlockSize, nil)
	}
	if o.DiskOptions.DiskSize == 0 || o.DiskOptions.DiskSize%o.DiskOptions.BlockSize != 0 {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Disk size must be a positive multiple of the block size",
		).WithField("diskSize").WithRule("multiple_of").WithProvided(o.DiskOptions.DiskSize).WithExpected(o.DiskOptions.BlockSize)
	}
	if o.BufferOptions.Size == 0 || o.BufferOptions.Size%o.DiskOptions.BlockSize != 0 {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Buffer size must be a positive multiple of the block size",
		).WithField("bufferSize").WithRule("multiple_of").WithProvided(o.BufferOptions.Size).WithExpected(o.DiskOptions.BlockSize)
	}
	return nil
}

// OptionFunc is a function type that modifies the engine's configuration.
type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DiskFile = opts.DiskFile
		o.Access = opts.Access
		o.Strategy = opts.Strategy
		o.DiskOptions = opts.DiskOptions
		o.BufferOptions = opts.BufferOptions
	}
}

// Sets the path of the file backing the simulated disk.
func WithDiskFile(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.DiskFile = path
		}
	}
}

// Sets the disk's cost model.
func WithAccessType(access storage.AccessType) OptionFunc {
	return func(o *Options) {
		if access == storage.Random || access == storage.Sequential {
			o.Access = access
		}
	}
}

// Sets the buffer pool's eviction policy.
func WithReplacementStrategy(strategy storage.ReplacementStrategy) OptionFunc {
	return func(o *Options) {
		if strategy == storage.LRU || strategy == storage.MRU {
			o.Strategy = strategy
		}
	}
}

// Sets the block size in bytes.
func WithBlockSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinBlockSize {
			o.DiskOptions.BlockSize = size
		}
	}
}

// Sets the total disk capacity in bytes.
func WithDiskSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.DiskOptions.DiskSize = size
		}
	}
}

// Sets the total buffer pool capacity in bytes.
func WithBufferSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.BufferOptions.Size = size
		}
	}
}
