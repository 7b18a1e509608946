package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary: reading or writing the disk's backing file, or the
	// file not being creatable in the first place.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents caller-side errors where the provided
	// data doesn't meet the system's requirements or constraints, such as a
	// buffer size that isn't a multiple of the block size or an index order
	// below the minimum.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These indicate bugs or broken invariants that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes cover the failure modes of the paged storage
// stack: the disk simulator and the buffer pool above it.
const (
	// ErrorCodeOutOfRange indicates a block or page id beyond the disk's
	// capacity. Reads and writes never wrap; an address past the last block
	// is a caller error, not an allocation request.
	ErrorCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrorCodeBufferFull indicates that no frame could be acquired for a
	// page: the free stack is empty and every occupied frame is pinned.
	ErrorCodeBufferFull ErrorCode = "BUFFER_FULL"

	// ErrorCodeCorruption indicates that node or bucket deserialization
	// could not recover a consistent structure from the bytes on disk.
	ErrorCodeCorruption ErrorCode = "CORRUPTION"

	// ErrorCodePermissionDenied indicates insufficient permissions to access
	// the backing file. This is distinct from generic IO errors because it
	// has a specific resolution path: adjust permissions or run with
	// elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the host filesystem ran out of space
	// while provisioning or flushing the backing file.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"
)

// Index-specific error codes cover the disk-resident index structures built
// on top of the buffer pool.
const (
	// ErrorCodeIndexDuplicateKey indicates an insert of a key that already
	// exists while the index was configured to reject duplicates.
	ErrorCodeIndexDuplicateKey ErrorCode = "INDEX_DUPLICATE_KEY"

	// ErrorCodeIndexCorrupted indicates a structural integrity violation
	// discovered while walking the index: a child count that doesn't match
	// the key count, a directory slot pointing at a destroyed bucket.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"
)
