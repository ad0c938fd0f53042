package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestKindText(t *testing.T) {
	for kind, name := range kindNames {
		text, err := kind.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, kind, back)
	}

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("teleport")))
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestEventYAML(t *testing.T) {
	src := `
kind: button-release
window: 0x400001
time: 1250
x: 215
y: 140
button: 3
state: 1024
`
	var ev Event
	require.NoError(t, yaml.Unmarshal([]byte(src), &ev))
	assert.Equal(t, KindButtonRelease, ev.Kind)
	assert.EqualValues(t, 0x400001, ev.Window)
	assert.Equal(t, uint32(1250), ev.Time)
	assert.Equal(t, 215, ev.X)
	assert.Equal(t, Button3, ev.Button)
	assert.False(t, ev.ButtonsHeld())
}

func TestButtonsHeld(t *testing.T) {
	release := Event{Kind: KindButtonRelease, Button: Button3, State: Button3Mask}
	assert.False(t, release.ButtonsHeld())

	release.State |= Button1Mask
	assert.True(t, release.ButtonsHeld())

	motion := Event{Kind: KindMotion, State: Button3Mask}
	assert.True(t, motion.ButtonsHeld())

	assert.Equal(t, uint16(0), ButtonMask(0))
	assert.Equal(t, Button2Mask, ButtonMask(2))
}

func TestEventRect(t *testing.T) {
	ev := Event{X: 1, Y: 2, Width: 3, Height: 4}
	assert.Equal(t, 3, ev.Rect().Width)
	assert.True(t, KindMotion.IsPointer())
	assert.False(t, KindDestroy.IsPointer())
}
