package importer

import "errors"

// Boundary failure taxonomy. Classification and formatting defects never
// surface as errors; they degrade into a less-structured but valid
// preview. Only type, size, decode, and persistence failures reach the
// caller.
var (
	// ErrUnsupportedType marks a file whose extension is outside the
	// accepted set. Not retryable without changing the file.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrTooLarge marks a payload above its format-specific ceiling.
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrDecodeFailure marks failed or empty upstream text extraction.
	ErrDecodeFailure = errors.New("document decode failed")
	// ErrPersistence marks any store write failure during commit; the
	// whole transaction has been rolled back.
	ErrPersistence = errors.New("persistence failed")
	// ErrTimeout marks a decode or store deadline overrun. Mid-commit it
	// behaves as ErrPersistence: full rollback, nothing visible.
	ErrTimeout = errors.New("operation timed out")
)
