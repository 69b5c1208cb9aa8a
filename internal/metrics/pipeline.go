// Counters for the capture loop and the recognition worker
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Pipeline accumulates counters from one or more sessions. All methods are
// safe for concurrent use.
type Pipeline struct {
	started time.Time

	framesCaptured  atomic.Uint64
	framesSubmitted atomic.Uint64
	framesDropped   atomic.Uint64
	framesProcessed atomic.Uint64
	batchesShown    atomic.Uint64
	textsAccepted   atomic.Uint64
	boxesDetected   atomic.Uint64
	detections      atomic.Uint64
	boxFailures     atomic.Uint64
	detectorErrors  atomic.Uint64
	fpsBits         atomic.Uint64

	sessionID atomic.Value
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SessionID       string  `json:"session_id,omitempty"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	FramesCaptured  uint64  `json:"frames_captured"`
	FramesSubmitted uint64  `json:"frames_submitted"`
	FramesDropped   uint64  `json:"frames_dropped"`
	FramesProcessed uint64  `json:"frames_processed"`
	BatchesShown    uint64  `json:"batches_shown"`
	TextsAccepted   uint64  `json:"texts_accepted"`
	BoxesDetected   uint64  `json:"boxes_detected"`
	Detections      uint64  `json:"detections"`
	BoxFailures     uint64  `json:"box_failures"`
	DetectorErrors  uint64  `json:"detector_errors"`
	FPS             float64 `json:"fps"`
	DropRate        float64 `json:"drop_rate"`
}

func NewPipeline() *Pipeline {
	return &Pipeline{started: time.Now()}
}

// SetSession records the identifier of the active session.
func (p *Pipeline) SetSession(id string) {
	p.sessionID.Store(id)
}

func (p *Pipeline) FrameCaptured()  { p.framesCaptured.Add(1) }
func (p *Pipeline) FrameSubmitted() { p.framesSubmitted.Add(1) }
func (p *Pipeline) FrameDropped()   { p.framesDropped.Add(1) }
func (p *Pipeline) DetectorFailed() { p.detectorErrors.Add(1) }

func (p *Pipeline) BatchReceived(accepted int) {
	p.batchesShown.Add(1)
	p.textsAccepted.Add(uint64(accepted))
}

func (p *Pipeline) ObserveFPS(fps float64) {
	p.fpsBits.Store(math.Float64bits(fps))
}

func (p *Pipeline) FrameProcessed(boxes, detections, failures int) {
	p.framesProcessed.Add(1)
	p.boxesDetected.Add(uint64(boxes))
	p.detections.Add(uint64(detections))
	p.boxFailures.Add(uint64(failures))
}

// Snapshot returns the current counter values. DropRate is the share of
// captured frames that were not submitted for recognition.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		UptimeSeconds:   time.Since(p.started).Seconds(),
		FramesCaptured:  p.framesCaptured.Load(),
		FramesSubmitted: p.framesSubmitted.Load(),
		FramesDropped:   p.framesDropped.Load(),
		FramesProcessed: p.framesProcessed.Load(),
		BatchesShown:    p.batchesShown.Load(),
		TextsAccepted:   p.textsAccepted.Load(),
		BoxesDetected:   p.boxesDetected.Load(),
		Detections:      p.detections.Load(),
		BoxFailures:     p.boxFailures.Load(),
		DetectorErrors:  p.detectorErrors.Load(),
		FPS:             math.Float64frombits(p.fpsBits.Load()),
	}
	if id, ok := p.sessionID.Load().(string); ok {
		s.SessionID = id
	}
	if s.FramesCaptured > 0 {
		s.DropRate = float64(s.FramesDropped) / float64(s.FramesCaptured)
	}
	return s
}
