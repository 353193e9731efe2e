package window

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsystemLifecycle(t *testing.T) {
	var inits, terminates int
	s := NewSubsystem(func() error {
		inits++
		return nil
	}, func() {
		terminates++
	})

	require.NoError(t, s.acquire())
	require.NoError(t, s.acquire())
	assert.Equal(t, 1, inits)
	assert.Equal(t, 2, s.Windows())

	s.release()
	assert.Zero(t, terminates)
	s.release()
	assert.Equal(t, 1, terminates)
	assert.Zero(t, s.Windows())

	// Releasing more than acquired is ignored.
	s.release()
	assert.Equal(t, 1, terminates)

	require.NoError(t, s.acquire())
	assert.Equal(t, 2, inits)
}

func TestSubsystemInitFailure(t *testing.T) {
	s := NewSubsystem(func() error {
		return errors.New("no display")
	}, func() {
		t.Fatal("terminate without init")
	})

	assert.Error(t, s.acquire())
	assert.Zero(t, s.Windows())
}

func TestResizeIgnoredWhileIconified(t *testing.T) {
	var got []Event
	w := &Window{}
	w.SetHandler(func(e Event) {
		got = append(got, e)
	})

	w.resized(640, 480)
	w.iconified = true
	w.resized(0, 0)
	w.iconified = false
	w.resized(800, 600)

	assert.Equal(t, []Event{
		ResizeEvent{Width: 640, Height: 480},
		ResizeEvent{Width: 800, Height: 600},
	}, got)
}

func TestEmitWithoutHandler(t *testing.T) {
	w := &Window{}
	assert.NotPanics(t, func() {
		w.emit(CloseEvent{})
	})
}

func TestKeyEvent(t *testing.T) {
	assert.Equal(t, KeyPressedEvent{Key: glfw.KeyA}, keyEvent(glfw.KeyA, glfw.Press))
	assert.Equal(t, KeyPressedEvent{Key: glfw.KeyA, Repeat: true}, keyEvent(glfw.KeyA, glfw.Repeat))
	assert.Equal(t, KeyReleasedEvent{Key: glfw.KeyEscape}, keyEvent(glfw.KeyEscape, glfw.Release))
}

func TestMouseButtonEvent(t *testing.T) {
	assert.Equal(t, MouseButtonPressedEvent{Button: glfw.MouseButtonLeft}, mouseButtonEvent(glfw.MouseButtonLeft, glfw.Press))
	assert.Equal(t, MouseButtonReleasedEvent{Button: glfw.MouseButtonRight}, mouseButtonEvent(glfw.MouseButtonRight, glfw.Release))
	assert.Nil(t, mouseButtonEvent(glfw.MouseButtonLeft, glfw.Repeat))
}

func TestNewRejectsEmptySize(t *testing.T) {
	s := NewSubsystem(func() error {
		t.Fatal("subsystem touched")
		return nil
	}, func() {})
	_, err := New(Properties{Title: "x"}, WithSubsystem(s))
	assert.Error(t, err)
}
