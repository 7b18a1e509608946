// Package engine provides the core coordinator of the ember storage
// stack.
//
// The engine owns exactly one Disk and the one BufferManager mediating
// access to it, wires them together at startup, and tears them down in
// the right order at shutdown (buffer first, so its final flush still has
// a device to write to). It also hands out address space: a simple bump
// allocator lets callers reserve disjoint byte ranges for record areas
// and index structures without a catalog.
package engine

import (
	"context"
	stdErrors "errors"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/buffer"
	"github.com/iamNilotpal/ember/internal/disk"
	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")
)

// Engine coordinates the disk and the buffer pool and manages their
// lifecycle. It is the single owner of both: nothing else closes them.
type Engine struct {
	options  *options.Options   // Configuration parameters for the engine and its subsystems.
	log      *zap.SugaredLogger // Structured logger used throughout the engine.
	closed   atomic.Bool        // Tracks the engine's lifecycle state.
	disk     *disk.Disk         // The simulated block device.
	buffer   *buffer.Manager    // The frame pool mediating all access to the disk.
	nextFree storage.Address    // Bump allocator over the byte address space.
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine instance with the provided
// configuration: the disk is provisioned first, then the buffer pool over
// it.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewRequiredFieldError("config")
	}
	if err := config.Options.Validate(); err != nil {
		return nil, err
	}

	d, err := disk.New(&disk.Config{
		Access:     config.Options.Access,
		BlockSize:  config.Options.BlockSize(),
		BlockCount: config.Options.BlockCount(),
		Path:       config.Options.DiskFile,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}

	b, err := buffer.New(&buffer.Config{
		Disk:       d,
		Strategy:   config.Options.Strategy,
		BufferSize: config.Options.BufferOptions.Size,
		Logger:     config.Logger,
	})
	if err != nil {
		// The disk opened but the pool did not; release the file handle
		// before reporting.
		return nil, multierr.Append(err, d.Close())
	}

	return &Engine{
		options: config.Options,
		log:     config.Logger,
		disk:    d,
		buffer:  b,
	}, nil
}

// Buffer returns the frame pool; the facade exposes it to index
// constructors as their ByteStore.
func (e *Engine) Buffer() *buffer.Manager {
	return e.buffer
}

// Reserve hands out n fresh bytes of address space and returns their
// starting address. Reservations never overlap and never come back.
func (e *Engine) Reserve(n uint64) (storage.Address, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	capacity := e.options.BlockSize() * e.options.BlockCount()
	if uint64(e.nextFree)+n > capacity {
		return 0, errors.NewStorageError(
			nil, errors.ErrorCodeOutOfRange, "Address space exhausted",
		).WithAddress(uint64(e.nextFree)).
			WithDetail("requested", n).
			WithDetail("capacity", capacity)
	}
	addr := e.nextFree
	e.nextFree += storage.Address(n)
	return addr, nil
}

// ReserveAt moves the allocator past the given address if it is ahead of
// it. Callers that placed an index by its reported address range use this
// to keep later reservations clear of it.
func (e *Engine) ReserveAt(end storage.Address) {
	if end > e.nextFree {
		e.nextFree = end
	}
}

// Stats returns a point-in-time snapshot of the stack's instrumentation.
func (e *Engine) Stats() storage.Stats {
	return storage.Stats{
		BufferIO:   e.buffer.NumIO(),
		DiskIO:     e.disk.NumIO(),
		DiskCost:   e.disk.CostIO(),
		BlockSize:  e.disk.BlockSize(),
		FrameCount: e.buffer.NumFrames(),
		Strategy:   e.buffer.Strategy(),
		Access:     e.disk.Access(),
	}
}

// Close gracefully shuts down the engine: the buffer pool flushes and
// closes first, then the disk releases its file handle.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	return multierr.Append(e.buffer.Close(), e.disk.Close())
}
