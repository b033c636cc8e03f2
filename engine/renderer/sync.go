package renderer

import (
	"math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// FenceTimeout is the wait applied to in-flight fences.
const FenceTimeout uint64 = math.MaxUint64

// FrameSlot holds the primitives of one frame in flight.
type FrameSlot struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
}

func (s *FrameSlot) destroy() {
	if s.ImageAvailable != nil {
		s.ImageAvailable.Destroy()
		s.ImageAvailable = nil
	}
	if s.RenderFinished != nil {
		s.RenderFinished.Destroy()
		s.RenderFinished = nil
	}
	if s.InFlight != nil {
		s.InFlight.Destroy()
		s.InFlight = nil
	}
}

// FrameSynchronizer owns the frame slots and the table of fences guarding each
// swapchain image. Slots survive swapchain recreation; the table does not.
type FrameSynchronizer struct {
	device         Device
	slots          []FrameSlot
	imagesInFlight []Fence
	currentFrame   uint32
}

func NewFrameSynchronizer(device Device, framesInFlight uint32, imageCount int) (*FrameSynchronizer, error) {
	if framesInFlight == 0 {
		return nil, errors.New("frames in flight must be at least 1")
	}
	s := &FrameSynchronizer{
		device: device,
		slots:  make([]FrameSlot, framesInFlight),
	}
	for i := range s.slots {
		slot := &s.slots[i]
		var err error
		if slot.ImageAvailable, err = device.CreateSemaphore(); err != nil {
			s.Destroy()
			return nil, errors.Wrap(err, "failed to create image available semaphore")
		}
		if slot.RenderFinished, err = device.CreateSemaphore(); err != nil {
			s.Destroy()
			return nil, errors.Wrap(err, "failed to create render finished semaphore")
		}
		// Signaled so the first frame does not wait on work that was never submitted.
		if slot.InFlight, err = device.CreateFence(true); err != nil {
			s.Destroy()
			return nil, errors.Wrap(err, "failed to create in-flight fence")
		}
	}
	s.ResetImages(imageCount)
	core.LogDebug("Created sync objects for %d frames in flight.", framesInFlight)
	return s, nil
}

func (s *FrameSynchronizer) FramesInFlight() uint32 {
	return uint32(len(s.slots))
}

func (s *FrameSynchronizer) CurrentFrame() uint32 {
	return s.currentFrame
}

func (s *FrameSynchronizer) Current() *FrameSlot {
	return &s.slots[s.currentFrame]
}

func (s *FrameSynchronizer) Slot(f uint32) *FrameSlot {
	return &s.slots[f]
}

// ImageInFlight returns the fence that last submitted against image i, or nil.
func (s *FrameSynchronizer) ImageInFlight(i uint32) Fence {
	if int(i) >= len(s.imagesInFlight) {
		return nil
	}
	return s.imagesInFlight[i]
}

// ResetImages forgets every image fence and resizes the table.
func (s *FrameSynchronizer) ResetImages(imageCount int) {
	s.imagesInFlight = make([]Fence, imageCount)
}

// WaitFenceCurrent blocks until the current slot's previous submission completed.
func (s *FrameSynchronizer) WaitFenceCurrent() error {
	if err := s.Current().InFlight.Wait(FenceTimeout); err != nil {
		return errors.Wrapf(err, "in-flight fence wait failed for frame %d", s.currentFrame)
	}
	return nil
}

// WaitFenceImage waits for whichever slot last used image i and then records the
// current slot as its user.
func (s *FrameSynchronizer) WaitFenceImage(i uint32) error {
	if int(i) >= len(s.imagesInFlight) {
		return errors.Errorf("image index %d out of range (%d)", i, len(s.imagesInFlight))
	}
	if f := s.imagesInFlight[i]; f != nil {
		if err := f.Wait(FenceTimeout); err != nil {
			return errors.Wrapf(err, "image fence wait failed for image %d", i)
		}
	}
	s.imagesInFlight[i] = s.Current().InFlight
	return nil
}

// Submit resets the current fence and submits cb against the current slot. When
// the submit fails the slot gets a new signaled fence, since nothing would ever
// signal the reset one.
func (s *FrameSynchronizer) Submit(cb CommandBuffer) error {
	slot := s.Current()
	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset in-flight fence")
	}
	if err := s.device.Submit(cb, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		err = errors.Wrap(err, "queue submit failed")
		if ferr := s.replaceInFlight(slot); ferr != nil {
			core.LogError(ferr.Error())
		}
		return err
	}
	return nil
}

func (s *FrameSynchronizer) replaceInFlight(slot *FrameSlot) error {
	fence, err := s.device.CreateFence(true)
	if err != nil {
		return errors.Wrap(err, "failed to create in-flight fence")
	}
	old := slot.InFlight
	for i, f := range s.imagesInFlight {
		if f == old {
			s.imagesInFlight[i] = fence
		}
	}
	old.Destroy()
	slot.InFlight = fence
	return nil
}

func (s *FrameSynchronizer) IncrementFrame() {
	s.currentFrame = (s.currentFrame + 1) % uint32(len(s.slots))
}

// ReplaceImageAvailable swaps the current slot's image available semaphore. An
// acquire that reports suboptimal still signals it, and the frame is abandoned
// without anything waiting on it. The device must be idle.
func (s *FrameSynchronizer) ReplaceImageAvailable() error {
	sem, err := s.device.CreateSemaphore()
	if err != nil {
		return errors.Wrap(err, "failed to create image available semaphore")
	}
	slot := s.Current()
	if slot.ImageAvailable != nil {
		slot.ImageAvailable.Destroy()
	}
	slot.ImageAvailable = sem
	return nil
}

func (s *FrameSynchronizer) Destroy() {
	for i := range s.slots {
		s.slots[i].destroy()
	}
	s.imagesInFlight = nil
}
