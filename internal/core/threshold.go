package core

import "sync/atomic"

const (
	MinConfidence     = 0
	MaxConfidence     = 100
	DefaultConfidence = 50
)

// Threshold is the confidence cut-off shared by the UI slider, the status
// server and config reload. Values are clamped to [0, 100].
type Threshold struct {
	v atomic.Int32
}

func NewThreshold(initial int) *Threshold {
	t := &Threshold{}
	t.Set(initial)
	return t
}

func (t *Threshold) Get() int {
	return int(t.v.Load())
}

// Set stores v clamped to the valid range and returns the stored value.
func (t *Threshold) Set(v int) int {
	v = ClampConfidence(v)
	t.v.Store(int32(v))
	return v
}

// ClampConfidence limits v to [0, 100].
func ClampConfidence(v int) int {
	if v < MinConfidence {
		return MinConfidence
	}
	if v > MaxConfidence {
		return MaxConfidence
	}
	return v
}
