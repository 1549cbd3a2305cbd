// Package errs defines the typed error taxonomy shared by every mbon
// package. Errors are plain sentinels checkable with errors.Is; call sites
// add context with fmt.Errorf("%w: ...", errs.ErrXxx) rather than minting
// ad hoc string errors.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the wire codec, the paged file buffer, the
// lazy engine and the concurrent wrapper.
var (
	// ErrEndOfFile is returned when a read or seek runs past the end of
	// the underlying stream.
	ErrEndOfFile = errors.New("mbon: end of file")

	// ErrDataError covers malformed data that fails a structural
	// invariant (wrong UTF-8, a list/map window that over- or
	// under-runs, composite counts that don't reconcile).
	ErrDataError = errors.New("mbon: data error")

	// ErrExpected is returned when a caller asked to decode a specific
	// kind but the mark on the wire names a different one.
	ErrExpected = errors.New("mbon: unexpected mark kind")

	// ErrInvalidMark is returned for an unknown tag, an impossible
	// width, a size field that overflows, or a composite whose stored
	// size is inconsistent with its contents.
	ErrInvalidMark = errors.New("mbon: invalid mark")

	// ErrInvalidSignature is returned by VerifySignature when the first
	// eight bytes of a file do not match the fixed mbon signature.
	ErrInvalidSignature = errors.New("mbon: invalid signature")

	// ErrInvalidData names a structurally valid but semantically
	// rejected payload (e.g. an Enum whose inner mark disagrees with
	// its value's mark).
	ErrInvalidData = errors.New("mbon: invalid data")

	// ErrIO wraps an I/O failure from the backing stream.
	ErrIO = errors.New("mbon: i/o error")

	// ErrInternal marks a condition that should be unreachable given
	// the package's own invariants.
	ErrInternal = errors.New("mbon: internal error")

	// ErrConnectionReset is returned to clients of the concurrent
	// engine wrapper once the actor has terminated or the request
	// channel has been torn down.
	ErrConnectionReset = errors.New("mbon: connection reset")

	// ErrSizeOverflow is returned by the dumper when a length exceeds
	// the wire format's size field.
	ErrSizeOverflow = errors.New("mbon: size overflow")

	// ErrInvalidState names a buffer operation that disagrees with the
	// in-progress operation recorded on the instance. No buffer in this
	// module returns it: StepBuffer's Start* methods replace any
	// in-progress operation instead.
	ErrInvalidState = errors.New("mbon: invalid buffer state")

	// ErrWouldBlock is returned by a stream.SuspendableReadWriteSeeker's
	// Read or Write that could not make progress without blocking.
	ErrWouldBlock = errors.New("mbon: would block")

	// ErrUnsupported is returned by the rich-dialect primitives that
	// the sources this format was distilled from left unimplemented
	// (Padding, Pointer, Rc, Heap data materialization).
	ErrUnsupported = errors.New("mbon: unsupported in this version")
)

// Expected wraps ErrExpected, naming the mark kind the caller asked for.
func Expected(kind string) error {
	return fmt.Errorf("%w: expected %s", ErrExpected, kind)
}

// DataError wraps ErrDataError with a free-form description.
func DataError(msg string) error {
	return fmt.Errorf("%w: %s", ErrDataError, msg)
}

// InvalidData wraps ErrInvalidData with a free-form description.
func InvalidData(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, detail)
}

// IO wraps an underlying I/O error as ErrIO.
func IO(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrIO, err)
}

// Internal wraps ErrInternal with a free-form description.
func Internal(msg string) error {
	return fmt.Errorf("%w: %s", ErrInternal, msg)
}

// Unsupported wraps ErrUnsupported, naming the unimplemented primitive.
func Unsupported(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, what)
}
