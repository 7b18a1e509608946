package errors

// IndexError provides specialized error handling for the disk-resident
// index structures. It extends the base error system with index-specific
// context while properly supporting method chaining through all base error
// methods.
type IndexError struct {
	*baseError

	// Identifies which key was being processed when the error occurred,
	// rendered to a string by the index. This tells you exactly which piece
	// of data was involved in the failed operation.
	key string

	// Describes what index operation was being performed when the error
	// occurred (e.g., "Insert", "Search", "Remove", "Split").
	operation string

	// Identifies the node or bucket involved, if applicable (-1 otherwise).
	slot int64
}

// NewIndexError creates a new index-specific error with the provided context.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{baseError: NewBaseError(err, code, msg), slot: -1}
}

// WithMessage updates the error message while maintaining the IndexError type.
func (ie *IndexError) WithMessage(msg string) *IndexError {
	ie.baseError.WithMessage(msg)
	return ie
}

// WithCode sets the error code while preserving the IndexError type.
func (ie *IndexError) WithCode(code ErrorCode) *IndexError {
	ie.baseError.WithCode(code)
	return ie
}

// WithDetail adds contextual information while maintaining the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// WithKey records which key was being processed when the error occurred.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithOperation records what index operation was being performed.
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// WithSlot captures which node or bucket was involved in the error.
func (ie *IndexError) WithSlot(slot int64) *IndexError {
	ie.slot = slot
	return ie
}

// Key returns the key that was being processed when the error occurred.
func (ie *IndexError) Key() string {
	return ie.key
}

// Operation returns the name of the operation that was being performed.
func (ie *IndexError) Operation() string {
	return ie.operation
}

// Slot returns the node or bucket identifier associated with the error.
func (ie *IndexError) Slot() int64 {
	return ie.slot
}

// NewDuplicateKeyError creates a specialized error for inserts of an
// existing key into an index configured to reject duplicates.
func NewDuplicateKeyError(key string) *IndexError {
	return NewIndexError(nil, ErrorCodeIndexDuplicateKey, "key already present in index").
		WithKey(key).
		WithOperation("Insert")
}

// NewIndexCorruptionError creates an error for index corruption scenarios.
func NewIndexCorruptionError(operation string, slot int64, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexCorrupted, "index structure corrupted").
		WithOperation(operation).
		WithSlot(slot)
}
