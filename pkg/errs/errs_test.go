package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	err := New(InputShape, "distance.Transform", "expected 2 or 3 dimensions, got %d", 4)
	assert.ErrorIs(t, err, ErrInputShape)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Equal(t, "distance.Transform: input shape error: expected 2 or 3 dimensions, got 4", err.Error())

	wrapped := fmt.Errorf("loading: %w", err)
	assert.ErrorIs(t, wrapped, ErrInputShape)
	assert.Equal(t, InputShape, KindOf(wrapped))

	var e *Error
	require.ErrorAs(t, wrapped, &e)
	assert.Equal(t, "distance.Transform", e.Op)
}

func TestWrapKeepsCause(t *testing.T) {
	assert.NoError(t, Wrap(Parse, "maxball.parse", nil))

	err := Wrap(Parse, "maxball.parse", os.ErrNotExist)
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Parse, KindOf(err))
}

func TestSpecificTargetsMatchOnlyThemselves(t *testing.T) {
	a := New(Integration, "maxball.Extract", "exit status 1")
	b := New(Integration, "maxball.Extract", "exit status 1")
	assert.ErrorIs(t, a, a)
	assert.False(t, errors.Is(a, b))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "value count mismatch", ValueCountMismatch.String())
	assert.Equal(t, "degenerate geometry", DegenerateGeometry.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
