package engine

import (
	"io"

	"github.com/ttocsneb/mbon/errs"
)

// Signature is the fixed 8-byte marker every engine-managed file begins
// with.
var Signature = [8]byte{0xEE, 'm', 'b', 'o', 'n', 0x0D, 0x0A, 0x00}

// VerifySignature seeks to the start of the engine's stream, reads exactly
// 8 bytes, and compares them against Signature.
func (e *Engine) VerifySignature() error {
	if _, err := e.buf.Seek(0, io.SeekStart); err != nil {
		return errs.IO(err)
	}

	var got [8]byte
	if _, err := io.ReadFull(e.buf, got[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errs.ErrInvalidSignature
		}
		return errs.IO(err)
	}
	if got != Signature {
		return errs.ErrInvalidSignature
	}
	return nil
}

// WriteSignature seeks to the start of the engine's stream and writes the
// fixed signature there, for use immediately after OpenWrite creates a
// fresh file.
func (e *Engine) WriteSignature() error {
	if _, err := e.buf.Seek(0, io.SeekStart); err != nil {
		return errs.IO(err)
	}
	if _, err := e.buf.Write(Signature[:]); err != nil {
		return errs.IO(err)
	}
	return nil
}
