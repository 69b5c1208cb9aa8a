package core

import "time"

// FPSMeter reports the instantaneous frame rate from the wall-clock delta
// between consecutive ticks.
type FPSMeter struct {
	now  func() time.Time
	last time.Time
}

func NewFPSMeter() *FPSMeter {
	return &FPSMeter{now: time.Now}
}

// Tick records one loop iteration and returns the rate since the previous
// tick. The first tick returns 0.
func (m *FPSMeter) Tick() float64 {
	now := m.now()
	defer func() { m.last = now }()

	if m.last.IsZero() {
		return 0
	}
	delta := now.Sub(m.last)
	if delta <= 0 {
		return 0
	}
	return float64(time.Second) / float64(delta)
}
