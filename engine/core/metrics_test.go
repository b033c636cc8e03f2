package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetricsAverage(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
	assert.Equal(t, uint64(AVG_COUNT), m.TotalFrames())
}

func TestFrameMetricsFPS(t *testing.T) {
	m := NewFrameMetrics()
	// 101 frames of 10ms crosses the one second mark on the last one.
	for i := 0; i < 101; i++ {
		m.Update(0.010)
	}
	assert.Equal(t, float64(100), m.FPS())
}

func TestResourceTracker(t *testing.T) {
	tr := NewResourceTracker()
	a := tr.Acquire("fence")
	tr.Acquire("fence")
	tr.Acquire("semaphore")
	assert.Equal(t, 3, tr.Count())
	assert.Equal(t, 2, tr.CountKind("fence"))

	tr.Release(a)
	tr.Release(a)
	assert.Equal(t, 1, tr.CountKind("fence"))
	assert.Equal(t, 2, tr.Report())
}

func TestFrameMetricsAverageSlides(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.020)
	}
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)
}
