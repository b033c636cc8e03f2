package renderer

import (
	"testing"

	"github.com/spaghettifunk/wind/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T, count int) (*CommandRecorder, *fakeDevice) {
	t.Helper()
	d := newFakeDevice()
	r, err := NewCommandRecorder(d, count)
	require.NoError(t, err)
	return r, d
}

func TestCommandRecorderSequence(t *testing.T) {
	r, _ := newTestRecorder(t, 2)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, r.State(1))

	require.NoError(t, r.Begin(1, RenderPassBeginInfo{}))
	assert.Equal(t, COMMAND_BUFFER_STATE_IN_RENDER_PASS, r.State(1))
	require.NoError(t, r.BindPipeline(1, &fakeObject{kind: "pipeline"}))
	require.NoError(t, r.SetViewport(1, Viewport{Width: 1, Height: 1}))
	require.NoError(t, r.SetScissor(1, Rect2D{}))
	require.NoError(t, r.BindDescriptorSets(1, []DescriptorSet{fakeSet{id: 1}}))
	drawn := false
	require.NoError(t, r.Draw(1, func(cb CommandBuffer) {
		drawn = true
		cb.Draw(3, 1, 0, 0)
	}))
	assert.True(t, drawn)
	require.NoError(t, r.End(1))
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING_ENDED, r.State(1))

	r.MarkSubmitted(1)
	assert.Equal(t, COMMAND_BUFFER_STATE_SUBMITTED, r.State(1))
	assert.Equal(t, COMMAND_BUFFER_STATE_READY, r.State(0))

	assert.Equal(t, []string{
		"begin", "beginRenderPass", "bindPipeline", "setViewport", "setScissor",
		"bindDescriptorSets", "draw", "endRenderPass", "end",
	}, r.Buffer(1).(*fakeCommandBuffer).ops)

	// Submitted buffers are recorded again from scratch.
	require.NoError(t, r.Begin(1, RenderPassBeginInfo{}))
	assert.ErrorIs(t, r.SetViewport(1, Viewport{}), core.ErrInvalidCommandState)
}

func TestCommandRecorderRejectsOutOfOrderCalls(t *testing.T) {
	r, _ := newTestRecorder(t, 1)
	pipeline := &fakeObject{kind: "pipeline"}

	assert.ErrorIs(t, r.BindPipeline(0, pipeline), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.End(0), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.Begin(3, RenderPassBeginInfo{}), core.ErrInvalidCommandState)

	require.NoError(t, r.Begin(0, RenderPassBeginInfo{}))
	assert.ErrorIs(t, r.Begin(0, RenderPassBeginInfo{}), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.SetViewport(0, Viewport{}), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.SetScissor(0, Rect2D{}), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.BindDescriptorSets(0, nil), core.ErrInvalidCommandState)

	require.NoError(t, r.BindPipeline(0, pipeline))
	assert.ErrorIs(t, r.Draw(0, func(CommandBuffer) {}), core.ErrInvalidCommandState)

	// Overlays only need the render pass.
	called := false
	require.NoError(t, r.Record(0, func(CommandBuffer) error {
		called = true
		return nil
	}))
	assert.True(t, called)

	require.NoError(t, r.End(0))
	assert.ErrorIs(t, r.Record(0, func(CommandBuffer) error { return nil }), core.ErrInvalidCommandState)
}

func TestCommandRecorderFree(t *testing.T) {
	r, d := newTestRecorder(t, 3)
	assert.Equal(t, 3, d.liveCount("commandBuffer"))
	r.Free()
	assert.Equal(t, 0, d.liveCount("commandBuffer"))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, COMMAND_BUFFER_STATE_NOT_ALLOCATED, r.State(0))
	assert.Equal(t, "not allocated", r.State(0).String())
}
