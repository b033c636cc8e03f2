package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s CommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "not allocated"
	default:
		return "unknown"
	}
}

type recordedBuffer struct {
	handle         CommandBuffer
	state          CommandBufferState
	pipelineBound  bool
	pipeline       Pipeline
	descriptorsSet bool
}

// CommandRecorder owns one primary command buffer per swapchain image and enforces
// begin, render pass, pipeline, dynamic state, descriptor sets, draws, end.
// Buffers come from a pool created with the reset-command-buffer flag, so Begin
// re-records without an explicit reset.
type CommandRecorder struct {
	buffers []*recordedBuffer
}

func NewCommandRecorder(device Device, count int) (*CommandRecorder, error) {
	handles, err := device.AllocateCommandBuffers(uint32(count))
	if err != nil {
		err = errors.Wrapf(err, "failed to allocate %d command buffers", count)
		core.LogError(err.Error())
		return nil, err
	}
	r := &CommandRecorder{
		buffers: make([]*recordedBuffer, len(handles)),
	}
	for i, h := range handles {
		r.buffers[i] = &recordedBuffer{handle: h, state: COMMAND_BUFFER_STATE_READY}
	}
	core.LogDebug("%d command buffers allocated.", len(handles))
	return r, nil
}

func (r *CommandRecorder) Len() int {
	return len(r.buffers)
}

func (r *CommandRecorder) State(i uint32) CommandBufferState {
	if int(i) >= len(r.buffers) {
		return COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	return r.buffers[i].state
}

func (r *CommandRecorder) Buffer(i uint32) CommandBuffer {
	return r.buffers[i].handle
}

func (r *CommandRecorder) get(i uint32, allowed ...CommandBufferState) (*recordedBuffer, error) {
	if int(i) >= len(r.buffers) {
		return nil, errors.Wrapf(core.ErrInvalidCommandState, "command buffer %d out of range (%d)", i, len(r.buffers))
	}
	b := r.buffers[i]
	for _, s := range allowed {
		if b.state == s {
			return b, nil
		}
	}
	return nil, errors.Wrapf(core.ErrInvalidCommandState, "command buffer %d is %s", i, b.state)
}

// Begin starts recording into buffer i and begins the render pass.
func (r *CommandRecorder) Begin(i uint32, info RenderPassBeginInfo) error {
	b, err := r.get(i, COMMAND_BUFFER_STATE_READY, COMMAND_BUFFER_STATE_RECORDING_ENDED, COMMAND_BUFFER_STATE_SUBMITTED)
	if err != nil {
		return err
	}
	if err := b.handle.Begin(); err != nil {
		return errors.Wrapf(err, "failed to begin command buffer %d", i)
	}
	b.state = COMMAND_BUFFER_STATE_RECORDING
	b.pipelineBound = false
	b.pipeline = nil
	b.descriptorsSet = false

	b.handle.BeginRenderPass(info)
	b.state = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (r *CommandRecorder) BindPipeline(i uint32, pipeline Pipeline) error {
	b, err := r.get(i, COMMAND_BUFFER_STATE_IN_RENDER_PASS)
	if err != nil {
		return err
	}
	b.handle.BindPipeline(pipeline)
	b.pipelineBound = true
	b.pipeline = pipeline
	return nil
}

func (r *CommandRecorder) bound(i uint32) (*recordedBuffer, error) {
	b, err := r.get(i, COMMAND_BUFFER_STATE_IN_RENDER_PASS)
	if err != nil {
		return nil, err
	}
	if !b.pipelineBound {
		return nil, errors.Wrapf(core.ErrInvalidCommandState, "command buffer %d has no pipeline bound", i)
	}
	return b, nil
}

func (r *CommandRecorder) SetViewport(i uint32, viewport Viewport) error {
	b, err := r.bound(i)
	if err != nil {
		return err
	}
	b.handle.SetViewport(viewport)
	return nil
}

func (r *CommandRecorder) SetScissor(i uint32, scissor Rect2D) error {
	b, err := r.bound(i)
	if err != nil {
		return err
	}
	b.handle.SetScissor(scissor)
	return nil
}

func (r *CommandRecorder) BindDescriptorSets(i uint32, sets []DescriptorSet) error {
	b, err := r.bound(i)
	if err != nil {
		return err
	}
	b.handle.BindDescriptorSets(b.pipeline, sets)
	b.descriptorsSet = true
	return nil
}

// Draw hands the buffer to fn once the pipeline and descriptor sets are bound.
func (r *CommandRecorder) Draw(i uint32, fn func(cb CommandBuffer)) error {
	b, err := r.bound(i)
	if err != nil {
		return err
	}
	if !b.descriptorsSet {
		return errors.Wrapf(core.ErrInvalidCommandState, "command buffer %d has no descriptor sets bound", i)
	}
	fn(b.handle)
	return nil
}

// Record hands the buffer to fn inside the render pass without requiring the main
// pipeline. Overlays bind their own state.
func (r *CommandRecorder) Record(i uint32, fn func(cb CommandBuffer) error) error {
	b, err := r.get(i, COMMAND_BUFFER_STATE_IN_RENDER_PASS)
	if err != nil {
		return err
	}
	return fn(b.handle)
}

// End ends the render pass and the recording of buffer i.
func (r *CommandRecorder) End(i uint32) error {
	b, err := r.get(i, COMMAND_BUFFER_STATE_IN_RENDER_PASS)
	if err != nil {
		return err
	}
	b.handle.EndRenderPass()
	b.state = COMMAND_BUFFER_STATE_RECORDING
	if err := b.handle.End(); err != nil {
		return errors.Wrapf(err, "failed to end command buffer %d", i)
	}
	b.state = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (r *CommandRecorder) MarkSubmitted(i uint32) {
	if int(i) < len(r.buffers) {
		r.buffers[i].state = COMMAND_BUFFER_STATE_SUBMITTED
	}
}

// Free returns every buffer to the pool.
func (r *CommandRecorder) Free() {
	for _, b := range r.buffers {
		if b.state != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
			b.handle.Destroy()
			b.state = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		}
	}
	r.buffers = nil
}
