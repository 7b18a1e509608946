// Package disk implements the block device at the bottom of the ember
// storage stack.
//
// A Disk is deliberately dumb: it knows nothing about pages, frames, or
// byte addresses. It reads and writes whole blocks against its backing
// file and keeps two monotonically non-decreasing counters, one for the
// number of block operations and one for their weighted cost. The cost
// model is the interesting part for teaching purposes: a Sequential disk
// charges rotational-latency-style seek cost proportional to how far
// forward the head must travel (modulo the device size), while a Random
// disk charges one unit per access the way flash does.
//
// Only the buffer manager is expected to call ReadBlock and WriteBlock;
// everything else in the system goes through the buffer manager's
// byte-addressed surface.
package disk

import (
	stdErrors "errors"
	"fmt"
	"path/filepath"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/filesys"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/multierr"
)

var (
	ErrDiskClosed = stdErrors.New("operation failed: cannot access closed disk")
)

// New opens or creates the backing file at config.Path, ensuring exactly
// BlockSize * BlockCount bytes of zero-initialized capacity. An existing
// file of the right size keeps its content; a file of the wrong size is
// resized (extension zero-fills).
func New(config *Config) (*Disk, error) {
	if config == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}
	if config.BlockSize == 0 || config.BlockCount == 0 {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Disk geometry must be non-zero",
		).WithField("blockSize/blockCount").WithRule("min").
			WithProvided(fmt.Sprintf("%d x %d", config.BlockSize, config.BlockCount))
	}

	capacity := config.BlockSize * config.BlockCount

	config.Logger.Infow(
		"Provisioning disk",
		"path", config.Path,
		"blockSize", config.BlockSize,
		"blockCount", config.BlockCount,
		"accessType", config.Access.String(),
	)

	// The backing file may live in a directory that doesn't exist yet.
	if dir := filepath.Dir(config.Path); dir != "." && dir != "" {
		if err := filesys.CreateDir(dir, 0755, true); err != nil {
			return nil, errors.NewStorageError(
				err, errors.ErrorCodeIO, "Failed to create disk directory",
			).WithPath(dir)
		}
	}

	file, err := filesys.OpenOrCreate(config.Path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, config.Path, filepath.Base(config.Path))
	}

	stat, err := file.Stat()
	if err != nil {
		err = multierr.Append(err, file.Close())
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to stat disk file").
			WithPath(config.Path)
	}

	if uint64(stat.Size()) != capacity {
		if stat.Size() != 0 {
			config.Logger.Warnw(
				"Disk file size does not match configured capacity, resizing",
				"path", config.Path,
				"fileSize", stat.Size(),
				"capacity", capacity,
			)
		}
		if err := file.Truncate(int64(capacity)); err != nil {
			err = multierr.Append(err, file.Close())
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to size disk file").
				WithPath(config.Path).
				WithDetail("capacity", capacity)
		}
	}

	return &Disk{
		access:     config.Access,
		blockSize:  config.BlockSize,
		blockCount: config.BlockCount,
		path:       config.Path,
		file:       file,
		log:        config.Logger,
	}, nil
}

// ReadBlock returns the current bytes of block b.
func (d *Disk) ReadBlock(b storage.BlockID) ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrDiskClosed
	}
	if uint64(b) >= d.blockCount {
		return nil, errors.NewStorageError(
			nil, errors.ErrorCodeOutOfRange, "Block number out of range",
		).WithBlock(int64(b)).WithDetail("blockCount", d.blockCount)
	}

	d.account(b)

	data := make([]byte, d.blockSize)
	if _, err := d.file.ReadAt(data, int64(uint64(b)*d.blockSize)); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read block").
			WithBlock(int64(b)).WithPath(d.path)
	}
	return data, nil
}

// WriteBlock persists the given bytes as the new content of block b.
// len(data) must equal the block size.
func (d *Disk) WriteBlock(b storage.BlockID, data []byte) error {
	if d.closed.Load() {
		return ErrDiskClosed
	}
	if uint64(b) >= d.blockCount {
		return errors.NewStorageError(
			nil, errors.ErrorCodeOutOfRange, "Block number out of range",
		).WithBlock(int64(b)).WithDetail("blockCount", d.blockCount)
	}
	if uint64(len(data)) != d.blockSize {
		return errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Block write must cover exactly one block",
		).WithField("data").WithRule("length").
			WithProvided(len(data)).WithExpected(d.blockSize)
	}

	d.account(b)

	if _, err := d.file.WriteAt(data, int64(uint64(b)*d.blockSize)); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to write block").
			WithBlock(int64(b)).WithPath(d.path)
	}
	return nil
}

// account charges the cost model for an access to block b and moves the
// head there. Sequential access pays the forward modular distance from the
// current head position plus one; random access pays one.
func (d *Disk) account(b storage.BlockID) {
	if d.access == storage.Sequential {
		d.costIO += (uint64(b) - uint64(d.head) + d.blockCount) % d.blockCount
	}
	d.costIO++
	d.numIO++
	d.head = b
}

// NumIO returns the number of block operations performed so far.
func (d *Disk) NumIO() uint64 { return d.numIO }

// CostIO returns the accumulated weighted cost of block operations.
func (d *Disk) CostIO() uint64 { return d.costIO }

// BlockSize returns the size of a block in bytes.
func (d *Disk) BlockSize() uint64 { return d.blockSize }

// BlockCount returns the number of blocks on the device.
func (d *Disk) BlockCount() uint64 { return d.blockCount }

// Access returns the cost model in effect.
func (d *Disk) Access() storage.AccessType { return d.access }

// Close flushes the backing file and releases the handle. The disk cannot
// be used afterwards.
func (d *Disk) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDiskClosed
	}

	d.log.Infow("Closing disk", "path", d.path, "numIO", d.numIO, "costIO", d.costIO)

	var err error
	if syncErr := d.file.Sync(); syncErr != nil {
		err = errors.ClassifySyncError(syncErr, filepath.Base(d.path), d.path)
	}
	return multierr.Append(err, d.file.Close())
}
