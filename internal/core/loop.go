package core

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Camera is a frame source. Read fills dst with the most recent frame.
type Camera interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// Display is the rendering surface. Render must finish using frame before
// it returns; the loop reuses the buffer on the next cycle.
type Display interface {
	Render(frame gocv.Mat)
	ShowTexts(texts []string)
}

// FrameProcessor turns a raw frame into a preprocessed one.
type FrameProcessor interface {
	Preprocess(frame gocv.Mat) (*PreprocessedFrame, error)
}

// LoopStats receives per-cycle counters. metrics.Pipeline satisfies it.
type LoopStats interface {
	FrameCaptured()
	FrameSubmitted()
	FrameDropped()
	BatchReceived(accepted int)
	ObserveFPS(fps float64)
}

type nopLoopStats struct{}

func (nopLoopStats) FrameCaptured()     {}
func (nopLoopStats) FrameSubmitted()    {}
func (nopLoopStats) FrameDropped()      {}
func (nopLoopStats) BatchReceived(int)  {}
func (nopLoopStats) ObserveFPS(float64) {}

// LoopConfig holds the display geometry and overlay settings.
type LoopConfig struct {
	Width     int
	Height    int
	Style     OverlayStyle
	Threshold *Threshold
}

// Loop is the capture and overlay cycle. It owns the camera.
type Loop struct {
	camera  Camera
	prep    FrameProcessor
	display Display
	frames  *Mailbox[*PreprocessedFrame]
	results *Mailbox[Batch]
	cfg     LoopConfig
	stats   LoopStats
	logger  *logrus.Entry
	fps     *FPSMeter
	seq     uint64
}

// NewLoop creates a loop. stats may be nil.
func NewLoop(camera Camera, prep FrameProcessor, display Display,
	frames *Mailbox[*PreprocessedFrame], results *Mailbox[Batch],
	cfg LoopConfig, stats LoopStats, logger *logrus.Entry) *Loop {
	if cfg.Threshold == nil {
		cfg.Threshold = NewThreshold(DefaultConfidence)
	}
	if stats == nil {
		stats = nopLoopStats{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loop{
		camera:  camera,
		prep:    prep,
		display: display,
		frames:  frames,
		results: results,
		cfg:     cfg,
		stats:   stats,
		logger:  logger.WithField("component", "capture"),
		fps:     NewFPSMeter(),
	}
}

// Run captures and renders frames until ctx is cancelled or a read fails.
// On every exit the camera is released and both mailboxes are closed, which
// stops the worker.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	frame := gocv.NewMat()
	defer frame.Close()
	view := gocv.NewMat()
	defer view.Close()

	size := image.Pt(l.cfg.Width, l.cfg.Height)
	l.logger.WithFields(logrus.Fields{"width": size.X, "height": size.Y}).Info("Capture loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Capture loop stopped")
			return nil
		default:
		}

		if err := l.camera.Read(&frame); err != nil {
			l.logger.WithError(err).Error("Camera read failed")
			return fmt.Errorf("%w: %v", ErrCameraRead, err)
		}
		if frame.Empty() {
			l.logger.Error("Camera returned an empty frame")
			return fmt.Errorf("%w: empty frame", ErrCameraRead)
		}
		l.stats.FrameCaptured()

		gocv.Resize(frame, &view, size, 0, 0, gocv.InterpolationLinear)

		var accepted []TextDetection
		if batch, ok := l.results.TryTake(); ok {
			var texts []string
			accepted, texts = AcceptDetections(batch, l.cfg.Threshold.Get())
			l.stats.BatchReceived(len(accepted))
			if len(texts) > 0 {
				l.display.ShowTexts(texts)
			}
		}

		// Submit before drawing so overlay pixels never reach OCR.
		l.submit(view)

		DrawDetections(&view, accepted, l.cfg.Style)

		fps := l.fps.Tick()
		l.stats.ObserveFPS(fps)
		DrawFPS(&view, fps, l.cfg.Style)

		l.display.Render(view)
	}
}

// submit preprocesses and hands off the frame only when the worker has
// drained the previous one. Otherwise the frame is dropped.
func (l *Loop) submit(view gocv.Mat) {
	if l.frames.Closed() {
		return
	}
	if !l.frames.Empty() {
		l.stats.FrameDropped()
		return
	}

	pf, err := l.prep.Preprocess(view)
	if err != nil {
		l.logger.WithError(err).Warn("Preprocessing failed")
		return
	}
	l.seq++
	pf.Seq = l.seq

	if !l.frames.TryPut(pf) {
		pf.Close()
		l.stats.FrameDropped()
		return
	}
	l.stats.FrameSubmitted()
}

func (l *Loop) shutdown() {
	if err := l.camera.Close(); err != nil {
		l.logger.WithError(err).Warn("Failed to release camera")
	}
	if pending, ok := l.frames.Close(); ok {
		pending.Close()
	}
	l.results.Close()
}
