package disk

import (
	"os"
	"sync/atomic"

	"github.com/iamNilotpal/ember/pkg/storage"
	"go.uber.org/zap"
)

// Disk simulates a fixed-capacity block device over a single backing file.
// The file holds blockSize * blockCount bytes laid out as consecutive
// fixed-size blocks starting at offset 0, with no header, zero-filled on
// first create.
//
// Every successful block operation is instrumented: numIO counts block
// operations, costIO accumulates the weighted cost charged by the access
// model. Under Sequential access the cost includes the forward modular
// distance the head travels between consecutive block positions; under
// Random every access is unit cost. numIO <= costIO always holds.
type Disk struct {
	access     storage.AccessType // Cost model charged per block operation.
	blockSize  uint64             // Bytes per block; the atomic unit of I/O.
	blockCount uint64             // Number of blocks on the device.
	path       string             // Location of the backing file.
	file       *os.File           // The backing file itself.
	head       storage.BlockID    // Block position of the last seek.
	numIO      uint64             // Monotonic count of block operations.
	costIO     uint64             // Monotonic weighted cost of block operations.
	closed     atomic.Bool        // Flag indicating whether the disk has been closed.
	log        *zap.SugaredLogger // Structured logger for operational visibility.
}

// Config encapsulates all the parameters required to initialize a Disk.
type Config struct {
	Access     storage.AccessType
	BlockSize  uint64
	BlockCount uint64
	Path       string
	Logger     *zap.SugaredLogger
}
