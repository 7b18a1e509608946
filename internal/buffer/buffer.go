// Package buffer implements the frame pool between the byte-addressed
// world above it and the block-addressed disk below it.
//
// Callers hand the manager byte ranges; the manager translates each range
// into block-aligned page acquisitions, servicing every page from cache
// when it can and from disk when it must. A page miss always faults the
// block in with a disk read, even when the caller's write fully covers the
// page. That policy costs one read per fresh page but keeps every frame an
// exact image of its block, which is the property all the dirty-tracking
// logic leans on.
//
// Writes reach the disk on three occasions only: when a dirty frame is
// evicted, on ClearCache, and on Close.
package buffer

import (
	"container/list"
	stdErrors "errors"
	"fmt"

	"github.com/iamNilotpal/ember/internal/disk"
	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/multierr"
)

var (
	ErrBufferClosed = stdErrors.New("operation failed: cannot access closed buffer manager")
)

// New allocates a manager with BufferSize / disk.BlockSize() frames, all
// initially free, dirty bits and pin counts zero.
func New(config *Config) (*Manager, error) {
	if config == nil || config.Disk == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}

	blockSize := config.Disk.BlockSize()
	if config.BufferSize == 0 || config.BufferSize%blockSize != 0 {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Buffer size must be a positive multiple of the block size",
		).WithField("bufferSize").WithRule("multiple_of").
			WithProvided(config.BufferSize).WithExpected(blockSize)
	}

	numFrames := uint32(config.BufferSize / blockSize)

	config.Logger.Infow(
		"Initializing buffer pool",
		"frames", numFrames,
		"blockSize", blockSize,
		"strategy", config.Strategy.String(),
	)

	m := &Manager{
		disk:         config.Disk,
		strategy:     config.Strategy,
		blockSize:    blockSize,
		numFrames:    numFrames,
		frames:       make([][]byte, numFrames),
		pinCount:     make([]uint32, numFrames),
		isDirty:      make([]bool, numFrames),
		pageTable:    make(map[storage.PageID]storage.FrameID, numFrames),
		invPageTable: make(map[storage.FrameID]storage.PageID, numFrames),
		freeFrames:   make([]storage.FrameID, 0, numFrames),
		busyFrames:   list.New(),
		framePos:     make(map[storage.FrameID]*list.Element, numFrames),
		log:          config.Logger,
	}
	for i := uint32(0); i < numFrames; i++ {
		m.frames[i] = make([]byte, blockSize)
		m.freeFrames = append(m.freeFrames, storage.FrameID(i))
	}
	return m, nil
}

// findVictim scans the busy list for the first unpinned frame — front to
// back under LRU, back to front under MRU — flushes it if dirty, drops its
// page mapping, and hands the frame to the caller. The frame does not pass
// through the free stack.
func (m *Manager) findVictim() (storage.FrameID, error) {
	var elem *list.Element
	next := func(e *list.Element) *list.Element { return e.Next() }
	if m.strategy == storage.MRU {
		elem = m.busyFrames.Back()
		next = func(e *list.Element) *list.Element { return e.Prev() }
	} else {
		elem = m.busyFrames.Front()
	}

	for ; elem != nil; elem = next(elem) {
		frame := elem.Value.(storage.FrameID)
		if m.pinCount[frame] != 0 {
			continue
		}

		page := m.invPageTable[frame]
		if m.isDirty[frame] {
			if err := m.disk.WriteBlock(storage.BlockID(page), m.frames[frame]); err != nil {
				return 0, err
			}
			m.isDirty[frame] = false
		}

		m.busyFrames.Remove(elem)
		delete(m.framePos, frame)
		delete(m.pageTable, page)
		delete(m.invPageTable, frame)
		return frame, nil
	}

	return 0, errors.NewStorageError(
		nil, errors.ErrorCodeBufferFull, "Buffer space full",
	).WithDetail("frames", m.numFrames).WithDetail("strategy", m.strategy.String())
}

// findFreeFrame pops the free stack, falling back to eviction when the
// stack is empty.
func (m *Manager) findFreeFrame() (storage.FrameID, error) {
	if n := len(m.freeFrames); n > 0 {
		frame := m.freeFrames[n-1]
		m.freeFrames = m.freeFrames[:n-1]
		return frame, nil
	}
	return m.findVictim()
}

// acquire returns the frame holding the given page, faulting it in on a
// miss. Hits and misses both move the frame to the MRU end of the busy
// list and count one buffer-level IO.
func (m *Manager) acquire(page storage.PageID) (storage.FrameID, error) {
	if uint64(page) >= m.disk.BlockCount() {
		return 0, errors.NewStorageError(
			nil, errors.ErrorCodeOutOfRange, "Page number out of range",
		).WithBlock(int64(page)).WithDetail("blockCount", m.disk.BlockCount())
	}

	m.numIO++

	if frame, ok := m.pageTable[page]; ok {
		m.busyFrames.MoveToBack(m.framePos[frame])
		return frame, nil
	}

	frame, err := m.findFreeFrame()
	if err != nil {
		return 0, err
	}

	data, err := m.disk.ReadBlock(storage.BlockID(page))
	if err != nil {
		// The frame never became occupied; put it back where it came from.
		m.freeFrames = append(m.freeFrames, frame)
		return 0, err
	}
	copy(m.frames[frame], data)
	m.isDirty[frame] = false
	m.pageTable[page] = frame
	m.invPageTable[frame] = page
	m.framePos[frame] = m.busyFrames.PushBack(frame)
	return frame, nil
}

// ReadAddress returns the size contiguous bytes starting at addr, spanning
// consecutive pages as needed.
func (m *Manager) ReadAddress(addr storage.Address, size uint64) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrBufferClosed
	}

	data := make([]byte, size)
	page := storage.PageID(uint64(addr) / m.blockSize)
	offset := uint64(addr) % m.blockSize

	for copied := uint64(0); copied < size; page++ {
		frame, err := m.acquire(page)
		if err != nil {
			return nil, err
		}
		copied += uint64(copy(data[copied:], m.frames[frame][offset:]))
		offset = 0
	}
	return data, nil
}

// WriteAddress writes the given bytes starting at addr, spanning
// consecutive pages as needed and marking every touched frame dirty.
// A failed multi-page write leaves the address range in an undefined
// state; there is no rollback.
func (m *Manager) WriteAddress(addr storage.Address, data []byte) error {
	if m.closed.Load() {
		return ErrBufferClosed
	}

	page := storage.PageID(uint64(addr) / m.blockSize)
	offset := uint64(addr) % m.blockSize

	for remaining := data; len(remaining) > 0; page++ {
		frame, err := m.acquire(page)
		if err != nil {
			return err
		}
		n := copy(m.frames[frame][offset:], remaining)
		m.isDirty[frame] = true
		remaining = remaining[n:]
		offset = 0
	}
	return nil
}

// Pin makes every frame whose page overlaps [addr, addr+size) non-evictable,
// faulting pages in as needed. Each Pin must be balanced by an Unpin over
// the same range.
func (m *Manager) Pin(addr storage.Address, size uint64) error {
	if m.closed.Load() {
		return ErrBufferClosed
	}
	if size == 0 {
		return nil
	}

	first := uint64(addr) / m.blockSize
	last := (uint64(addr) + size - 1) / m.blockSize
	for page := first; page <= last; page++ {
		frame, err := m.acquire(storage.PageID(page))
		if err != nil {
			return err
		}
		m.pinCount[frame]++
	}
	return nil
}

// Unpin releases one pin on every frame whose page overlaps [addr,
// addr+size). Pages that already left the pool are skipped.
func (m *Manager) Unpin(addr storage.Address, size uint64) error {
	if m.closed.Load() {
		return ErrBufferClosed
	}
	if size == 0 {
		return nil
	}

	first := uint64(addr) / m.blockSize
	last := (uint64(addr) + size - 1) / m.blockSize
	for page := first; page <= last; page++ {
		frame, ok := m.pageTable[storage.PageID(page)]
		if !ok {
			m.log.Warnw("Unpin of non-resident page", "page", page)
			continue
		}
		if m.pinCount[frame] > 0 {
			m.pinCount[frame]--
		}
	}
	return nil
}

// ClearCache flushes every dirty frame to disk and returns every frame to
// the free stack, emptying the page maps and the busy list. Pin counts are
// reset; callers must not hold pins across a ClearCache.
func (m *Manager) ClearCache() error {
	if m.closed.Load() {
		return ErrBufferClosed
	}

	if err := m.flush(); err != nil {
		return err
	}

	m.busyFrames.Init()
	clear(m.pageTable)
	clear(m.invPageTable)
	clear(m.framePos)
	m.freeFrames = m.freeFrames[:0]
	for i := uint32(0); i < m.numFrames; i++ {
		m.pinCount[i] = 0
		m.freeFrames = append(m.freeFrames, storage.FrameID(i))
	}
	return nil
}

// flush writes every dirty frame back to its block and clears the dirty
// bits. Occupancy is untouched.
func (m *Manager) flush() error {
	var err error
	for frame, page := range m.invPageTable {
		if !m.isDirty[frame] {
			continue
		}
		if writeErr := m.disk.WriteBlock(storage.BlockID(page), m.frames[frame]); writeErr != nil {
			err = multierr.Append(err, writeErr)
			continue
		}
		m.isDirty[frame] = false
	}
	return err
}

// NumIO returns the number of page requests served by the pool, counting
// hits and misses alike.
func (m *Manager) NumIO() uint64 { return m.numIO }

// DiskNumIO returns the underlying disk's block operation count.
func (m *Manager) DiskNumIO() uint64 { return m.disk.NumIO() }

// DiskCostIO returns the underlying disk's accumulated IO cost.
func (m *Manager) DiskCostIO() uint64 { return m.disk.CostIO() }

// NumFrames returns the fixed pool capacity.
func (m *Manager) NumFrames() uint32 { return m.numFrames }

// Strategy returns the eviction policy in effect.
func (m *Manager) Strategy() storage.ReplacementStrategy { return m.strategy }

// BlockSize returns the page size of the pool in bytes.
func (m *Manager) BlockSize() uint64 { return m.blockSize }

// Disk exposes the underlying device. The engine uses this for statistics
// and shutdown ordering; nothing else should.
func (m *Manager) Disk() *disk.Disk { return m.disk }

// Close flushes every dirty frame and makes the manager unusable. The
// underlying disk stays open; its owner closes it.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrBufferClosed
	}
	m.log.Infow("Closing buffer pool", "bufferIO", m.numIO, "diskIO", m.disk.NumIO())
	return m.flush()
}

// Interface conformance for the surfaces handed to indexes and drivers.
var (
	_ storage.ByteStore = (*Manager)(nil)
	_ storage.Pinner    = (*Manager)(nil)
)
