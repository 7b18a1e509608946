package errors

// StorageError is a specialized error type for the paged storage stack.
// It embeds baseError to inherit all the standard error functionality, then
// adds storage-specific fields that help pinpoint exactly where in the
// address space a problem occurred.
type StorageError struct {
	*baseError
	block    int64  // Which block was being accessed when the error occurred (-1 if not applicable).
	address  uint64 // Byte address the caller handed in, when the failure came through the byte surface.
	fileName string // Name of the backing file that caused the issue.
	path     string // Path of the backing file that caused the issue.
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg), block: -1}
}

// WithBlock sets which disk block was involved in the error.
func (se *StorageError) WithBlock(block int64) *StorageError {
	se.block = block
	return se
}

// WithAddress records the byte address where the error occurred.
func (se *StorageError) WithAddress(address uint64) *StorageError {
	se.address = address
	return se
}

// WithFileName captures which file was being processed when the error occurred.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath captures which path was being processed when the error occurred.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// WithDetail adds contextual information while maintaining the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// Block returns the block identifier where the error occurred, or -1.
func (se *StorageError) Block() int64 {
	return se.block
}

// Address returns the byte address where the error happened.
func (se *StorageError) Address() uint64 {
	return se.address
}

// FileName returns the name of the file that was being processed.
func (se *StorageError) FileName() string {
	return se.fileName
}

// Path returns the path of the file that was being processed.
func (se *StorageError) Path() string {
	return se.path
}
