package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireReachesListenersInOrder(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer func() { _ = EventSystemShutdown() }()

	assert.False(t, EventSystemInitialize())

	var got []int
	EventRegister(EVENT_CODE_RESIZED, func(EventContext) { got = append(got, 1) })
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		se := ctx.Data.(*SystemEvent)
		got = append(got, int(se.WindowWidth))
	})

	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640}}))
	assert.Equal(t, []int{1, 640}, got)
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
}

func TestEventFireWithoutSystem(t *testing.T) {
	assert.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, func(EventContext) {}))
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED}))
}

func TestInputProcessKeyFiresOnTransition(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer func() { _ = EventSystemShutdown() }()
	require.NoError(t, InputInitialize())
	defer func() { _ = InputShutdown() }()

	var pressed, released int
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) {
		assert.Equal(t, KEY_ESCAPE, ctx.Data.(*KeyEvent).KeyCode)
		pressed++
	})
	EventRegister(EVENT_CODE_KEY_RELEASED, func(EventContext) { released++ })

	InputProcessKey(KEY_ESCAPE, true)
	InputProcessKey(KEY_ESCAPE, true)
	assert.Equal(t, 1, pressed)
	assert.True(t, InputIsKeyDown(KEY_ESCAPE))
	assert.False(t, InputWasKeyDown(KEY_ESCAPE))

	InputUpdate()
	assert.True(t, InputWasKeyDown(KEY_ESCAPE))

	InputProcessKey(KEY_ESCAPE, false)
	assert.Equal(t, 1, released)
	assert.False(t, InputIsKeyDown(KEY_ESCAPE))
}
