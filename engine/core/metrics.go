package core

import "github.com/spaghettifunk/wind/engine/containers"

// AVG_COUNT is the number of frames in the frame time moving average.
const AVG_COUNT uint8 = 30

// FrameMetrics keeps a moving average of frame times and a frames-per-second counter.
type FrameMetrics struct {
	msTimes            *containers.RingQueue[float64]
	msAVG              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
	totalFrames        uint64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{
		msTimes: containers.NewRingQueue[float64](int(AVG_COUNT)),
	}
}

// Update records one frame that took frameElapsedTime seconds.
func (m *FrameMetrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes.Push(frameMS)

	var sum float64
	m.msTimes.Each(func(ms float64) { sum += ms })
	m.msAVG = sum / float64(m.msTimes.Len())

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
	m.totalFrames++
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds.
func (m *FrameMetrics) FrameTime() float64 {
	return m.msAVG
}

func (m *FrameMetrics) TotalFrames() uint64 {
	return m.totalFrames
}

func (m *FrameMetrics) Frame() (float64, float64) {
	return m.fps, m.msAVG
}
