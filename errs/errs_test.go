package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ttocsneb/mbon/errs"
)

func TestWrappersUnwrapToSentinel(t *testing.T) {
	require.ErrorIs(t, errs.Expected("int32"), errs.ErrExpected)
	require.ErrorIs(t, errs.DataError("bad length"), errs.ErrDataError)
	require.ErrorIs(t, errs.InvalidData("enum mismatch"), errs.ErrInvalidData)
	require.ErrorIs(t, errs.Internal("unreachable"), errs.ErrInternal)
	require.ErrorIs(t, errs.Unsupported("heap"), errs.ErrUnsupported)
}

func TestIOWrapsUnderlyingError(t *testing.T) {
	base := errors.New("disk on fire")
	wrapped := errs.IO(base)

	require.ErrorIs(t, wrapped, errs.ErrIO)
	require.ErrorIs(t, wrapped, base)
}

func TestIONilPassthrough(t *testing.T) {
	require.NoError(t, errs.IO(nil))
}
