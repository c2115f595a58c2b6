package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogAndWindow(t *testing.T) {
	l := New()
	l.Log("first")
	l.Log("second")
	l.Logf("third %d", 3)

	window := l.Window(10)
	assert.Equal(t, []string{"first", "second", "third 3"}, window)
}

func TestScrollClampsAtBounds(t *testing.T) {
	l := New()
	l.Log("a")
	l.Log("b")

	l.ScrollUp()
	l.ScrollUp()
	l.ScrollUp()
	assert.Equal(t, []string{"a", "b"}, l.Window(10))

	l.End()
	l.ScrollDown()
	l.ScrollDown()
	assert.Equal(t, 2, l.pos, "scrolling past the end clamps to len(buf)")

	l.Home()
	assert.Equal(t, 0, l.pos)
}
