package buffer

import (
	"container/list"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/disk"
	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/zap"
)

// Manager mediates all block I/O through a fixed pool of frames, exposing
// a byte-addressed read/write surface over the disk's block-addressed one.
//
// Every frame is in exactly one of two states: free (on the free stack,
// absent from both page maps and the busy list) or occupied (exactly one
// entry in each map and one node in the busy list). The busy list orders
// occupied frames from least recently referenced at the front to most
// recently referenced at the back, which is all LRU and MRU eviction need.
type Manager struct {
	disk      *disk.Disk                  // The device every miss and write-back goes to.
	strategy  storage.ReplacementStrategy // Eviction policy: LRU or MRU.
	blockSize uint64                      // Bytes per block, mirrored from the disk.
	numFrames uint32                      // Fixed pool capacity.

	frames   [][]byte // Per-frame byte buffers, each sized to one block.
	pinCount []uint32 // Per-frame pin counts; nonzero frames are not evictable.
	isDirty  []bool   // Per-frame dirty bits; set frames are flushed before reuse.

	pageTable    map[storage.PageID]storage.FrameID // Page currently held -> frame holding it.
	invPageTable map[storage.FrameID]storage.PageID // Frame -> page it holds.
	freeFrames   []storage.FrameID                  // Stack of unoccupied frames.
	busyFrames   *list.List                         // Occupied frames, LRU front to MRU back.
	framePos     map[storage.FrameID]*list.Element  // Frame -> its busy list node.

	numIO  uint64             // Page requests served (hits and misses alike).
	closed atomic.Bool        // Flag indicating whether the manager has been closed.
	log    *zap.SugaredLogger // Structured logger for operational visibility.
}

// Config encapsulates all the parameters required to initialize a Manager.
type Config struct {
	Disk       *disk.Disk
	Strategy   storage.ReplacementStrategy
	BufferSize uint64
	Logger     *zap.SugaredLogger
}
