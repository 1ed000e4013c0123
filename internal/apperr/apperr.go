package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure for the caller.
type Kind int

const (
	// NotFound means the referenced entity id is unknown.
	NotFound Kind = iota
	// InvalidRequest means the input was malformed (empty line items,
	// non-positive quantity, missing required field, bad date).
	InvalidRequest
	// InsufficientStock means a reservation exceeds current availability.
	InsufficientStock
	// InvariantViolation is an internal consistency failure. It is always a
	// defect, never user-caused.
	InvariantViolation
	// DuplicateIdentity means an active person with the same natural key
	// already exists.
	DuplicateIdentity
	// ConflictState means the operation conflicts with current entity state,
	// e.g. returning an already-returned loan or deleting an in-use article.
	ConflictState
	// StorageFailure is an I/O or persistence failure.
	StorageFailure
	// CorruptArchive means a restore was attempted from a malformed snapshot.
	CorruptArchive
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case InvalidRequest:
		return "INVALID_REQUEST"
	case InsufficientStock:
		return "INSUFFICIENT_STOCK"
	case InvariantViolation:
		return "INVARIANT_VIOLATION"
	case DuplicateIdentity:
		return "DUPLICATE_IDENTITY"
	case ConflictState:
		return "CONFLICT_STATE"
	case StorageFailure:
		return "STORAGE_FAILURE"
	case CorruptArchive:
		return "CORRUPT_ARCHIVE"
	default:
		return "UNKNOWN"
	}
}

// Error carries a failure kind plus a human-readable detail.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted detail message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, keeping it available for errors.Is/As.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the classification from err. Unclassified errors are
// reported as StorageFailure since they can only originate below the service.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageFailure
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
