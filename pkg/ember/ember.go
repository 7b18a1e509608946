// Package ember provides a teaching database storage engine: a simulated
// block device with instrumented access costs, a bounded buffer pool with
// pluggable replacement, and the byte-addressed surface that disk-resident
// index structures (B+ tree, extendible hash) and relational drivers are
// built on.
//
// An Instance is the primary entry point. It owns the disk and the buffer
// pool for its lifetime, exposes byte-granular reads and writes over
// block-granular media, hands out address space for record areas and
// indexes, and reports the IO statistics the whole exercise is about.
package ember

import (
	"context"

	"github.com/iamNilotpal/ember/internal/engine"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/storage"
)

// Instance represents one ember storage engine: one disk, one buffer
// pool, one linear address space.
type Instance struct {
	engine  *engine.Engine   // The underlying coordinator of disk and buffer pool.
	options *options.Options // Configuration options applied to this instance.
}

// NewInstance creates and initializes an ember instance. The service name
// tags all log output; functional options override the defaults (4 KiB
// blocks, 4 MiB disk, 64 KiB buffer, LRU replacement, random access
// cost).
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Buffer returns the byte-addressed surface index constructors take.
func (i *Instance) Buffer() storage.ByteStore {
	return i.engine.Buffer()
}

// ReadAddress returns the size contiguous bytes starting at addr.
func (i *Instance) ReadAddress(addr storage.Address, size uint64) ([]byte, error) {
	return i.engine.Buffer().ReadAddress(addr, size)
}

// WriteAddress writes the given bytes starting at addr.
func (i *Instance) WriteAddress(addr storage.Address, data []byte) error {
	return i.engine.Buffer().WriteAddress(addr, data)
}

// Pin makes the frames backing [addr, addr+size) non-evictable until the
// matching Unpin.
func (i *Instance) Pin(addr storage.Address, size uint64) error {
	return i.engine.Buffer().Pin(addr, size)
}

// Unpin releases one pin on the frames backing [addr, addr+size).
func (i *Instance) Unpin(addr storage.Address, size uint64) error {
	return i.engine.Buffer().Unpin(addr, size)
}

// ClearCache flushes every dirty frame and empties the pool.
func (i *Instance) ClearCache() error {
	return i.engine.Buffer().ClearCache()
}

// Reserve hands out n fresh bytes of address space, never overlapping an
// earlier reservation.
func (i *Instance) Reserve(n uint64) (storage.Address, error) {
	return i.engine.Reserve(n)
}

// ReserveThrough moves the allocator past end. Callers that grew an index
// report its address range here so later reservations stay clear of it.
func (i *Instance) ReserveThrough(end storage.Address) {
	i.engine.ReserveAt(end)
}

// Stats returns a snapshot of buffer and disk instrumentation.
func (i *Instance) Stats() storage.Stats {
	return i.engine.Stats()
}

// Close gracefully shuts down the instance, flushing the buffer pool and
// releasing the disk file.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
