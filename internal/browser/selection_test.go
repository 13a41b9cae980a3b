package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_ZeroValue(t *testing.T) {
	var s Selection

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
	assert.Empty(t, s.Names())
}

func TestSelection_Toggle(t *testing.T) {
	var s Selection

	assert.True(t, s.Toggle("b"))
	assert.True(t, s.Toggle("a"))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	assert.False(t, s.Toggle("b"))
	assert.False(t, s.Has("b"))
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Toggle("a"))
}

func TestSelectedLabel(t *testing.T) {
	assert.Equal(t, "Selected: 0 items", (&View{}).SelectedLabel())
	assert.Equal(t, "Selected: 1 item", (&View{Selected: 1}).SelectedLabel())
	assert.Equal(t, "Selected: 7 items", (&View{Selected: 7}).SelectedLabel())
}
