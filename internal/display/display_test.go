package display

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreGone(t *testing.T) {
	assert.NoError(t, IgnoreGone(nil))
	assert.NoError(t, IgnoreGone(ErrWindowGone))
	assert.NoError(t, IgnoreGone(fmt.Errorf("map 0x10: %w", ErrWindowGone)))

	other := errors.New("connection closed")
	assert.Equal(t, other, IgnoreGone(other))
	assert.ErrorIs(t, IgnoreGone(fmt.Errorf("grab: %w", ErrGrabFailed)), ErrGrabFailed)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	assert.True(t, r.Contains(10, 20))
	assert.True(t, r.Contains(39, 59))
	assert.False(t, r.Contains(40, 20))
	assert.False(t, r.Contains(10, 60))
	assert.False(t, r.Empty())
	assert.True(t, Rect{Width: 0, Height: 5}.Empty())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "iconic", StateIconic.String())
	assert.Equal(t, "withdrawn", StateWithdrawn.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestSizeHints(t *testing.T) {
	h := SizeHints{Flags: HintPMinSize | HintPResizeInc}
	assert.True(t, h.Has(HintPMinSize))
	assert.False(t, h.Has(HintPMinSize|HintPMaxSize))
	assert.True(t, h.Any(HintPMaxSize|HintPResizeInc))
	assert.False(t, h.Any(HintUSSize|HintPSize))
}

func TestWindowString(t *testing.T) {
	assert.Equal(t, "0x1c00003", Window(0x1c00003).String())
}
