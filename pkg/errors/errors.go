// Package errors provides the structured error hierarchy used throughout
// the ember storage stack.
//
// The system is built around a foundational baseError extended by
// domain-specific types: StorageError for the disk and buffer pool,
// IndexError for the disk-resident indexes, and ValidationError for
// configuration problems caught at construction. Every error carries a
// standardized ErrorCode so callers can branch on failure classes
// programmatically instead of parsing messages, plus a details map for
// structured logging.
//
// Absent keys are not errors in this system: search and delete on a
// missing key return a zero value and false at the operation boundary.
// Errors are reserved for broken I/O, exhausted buffers, out-of-range
// addresses, and corrupted on-disk structures.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError checks if the given error is a ValidationError or
// contains one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsStorageError determines if an error is related to storage operations,
// such as backing-file I/O, out-of-range block access, or an exhausted
// buffer pool.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsIndexError identifies errors that occurred during index operations such
// as inserts, splits, or node loading.
func IsIndexError(err error) bool {
	var ie *IndexError
	return stdErrors.As(err, &ie)
}

// AsValidationError safely extracts a ValidationError from an error chain,
// providing access to validation-specific context such as which field
// failed and what rule was violated.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsStorageError extracts StorageError context from an error chain,
// providing access to storage-specific information such as block ids, byte
// addresses, and backing-file paths.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsIndexError extracts IndexError context, providing access to
// index-specific information such as the key being processed and the
// operation being performed.
func AsIndexError(err error) (*IndexError, bool) {
	var ie *IndexError
	if stdErrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't have specific codes.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}
	if ie, ok := AsIndexError(err); ok {
		return ie.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	if se, ok := AsStorageError(err); ok {
		if details := se.Details(); details != nil {
			return details
		}
	}
	if ie, ok := AsIndexError(err); ok {
		if details := ie.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyFileOpenError analyzes backing-file opening failures and returns
// appropriate error codes based on the underlying system error. This
// provides much more specific information than a generic I/O error.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"Insufficient permissions to open disk file",
		).WithPath(filePath).
			WithFileName(fileName).
			WithDetail("operation", "file_open").
			WithDetail("required_permission", "read_write")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"Insufficient space to create disk file",
				).WithPath(filePath).
					WithFileName(fileName).
					WithDetail("operation", "file_open")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeIO,
					"Cannot create disk file on read-only filesystem",
				).WithPath(filePath).
					WithFileName(fileName).
					WithDetail("operation", "file_open")
			}
		}
	}

	return NewStorageError(err, ErrorCodeIO, "Failed to open disk file").
		WithPath(filePath).
		WithFileName(fileName).
		WithDetail("operation", "file_open")
}

// ClassifySyncError analyzes flush failures against the backing file.
// Sync failures can indicate anything from exhausted space to hardware
// trouble, so the errno is worth distinguishing.
func ClassifySyncError(err error, fileName, filePath string) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"Cannot sync disk file: insufficient space",
				).WithFileName(fileName).
					WithPath(filePath).
					WithDetail("operation", "file_sync")
			case syscall.EIO:
				return NewStorageError(
					err, ErrorCodeIO,
					"I/O error during disk file sync",
				).WithFileName(fileName).
					WithPath(filePath).
					WithDetail("operation", "file_sync").
					WithDetail("severity", "high")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "Failed to sync disk file",
	).WithFileName(fileName).WithPath(filePath).
		WithDetail("operation", "file_sync")
}
