package core

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// RegionDetector returns candidate text boxes for a preprocessed frame.
type RegionDetector interface {
	DetectBoxes(frame gocv.Mat) ([]BoundingBox, error)
}

// Recognizer runs OCR on a cropped region and returns words in crop-local
// coordinates.
type Recognizer interface {
	Recognize(crop gocv.Mat) ([]Word, error)
}

// EngineFactory builds the detector and recognizer. It is called on the
// worker goroutine, and the engines it returns are used only from that
// goroutine.
type EngineFactory func() (RegionDetector, Recognizer, error)

// WorkerStats receives per-frame counters. metrics.Pipeline satisfies it.
type WorkerStats interface {
	FrameProcessed(boxes, detections, failures int)
	DetectorFailed()
}

type nopWorkerStats struct{}

func (nopWorkerStats) FrameProcessed(int, int, int) {}
func (nopWorkerStats) DetectorFailed()              {}

// Worker is the background recognition loop. It takes preprocessed frames
// from one mailbox and publishes detection batches to another.
type Worker struct {
	frames  *Mailbox[*PreprocessedFrame]
	results *Mailbox[Batch]
	factory EngineFactory
	stats   WorkerStats
	logger  *logrus.Entry

	detector   RegionDetector
	recognizer Recognizer
}

// NewWorker wires a worker between the two mailboxes. stats may be nil.
func NewWorker(frames *Mailbox[*PreprocessedFrame], results *Mailbox[Batch], factory EngineFactory, stats WorkerStats, logger *logrus.Entry) *Worker {
	if stats == nil {
		stats = nopWorkerStats{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		frames:  frames,
		results: results,
		factory: factory,
		stats:   stats,
		logger:  logger.WithField("component", "worker"),
	}
}

// Run initialises the engines and processes frames until the frame mailbox
// is closed. The frame mailbox is always closed on return, so the producer
// stops submitting once the worker is gone. An engine init failure is
// returned wrapped in ErrEngineInit.
func (w *Worker) Run() error {
	defer w.closeFrames()

	detector, recognizer, err := w.factory()
	if err != nil {
		w.logger.WithError(err).Error("Failed to initialise recognition engines")
		return fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	w.detector = detector
	w.recognizer = recognizer
	defer w.closeEngines()
	w.logger.Info("Recognition worker started")

	for {
		pf, ok := w.frames.Take()
		if !ok {
			w.logger.Info("Recognition worker stopped")
			return nil
		}

		batch := w.Process(pf)
		pf.Close()

		if !w.results.Put(batch) {
			w.logger.Info("Result mailbox closed, recognition worker stopped")
			return nil
		}
	}
}

func (w *Worker) closeFrames() {
	if pending, ok := w.frames.Close(); ok {
		pending.Close()
	}
}

// closeEngines releases engines that hold native resources.
func (w *Worker) closeEngines() {
	for _, engine := range []any{w.detector, w.recognizer} {
		if c, ok := engine.(io.Closer); ok {
			if err := c.Close(); err != nil {
				w.logger.WithError(err).Warn("Failed to release recognition engine")
			}
		}
	}
}

// Process runs detection and per-box OCR on one frame. A failing box is
// logged and skipped; it never aborts the batch.
func (w *Worker) Process(pf *PreprocessedFrame) Batch {
	batch := Batch{FrameSeq: pf.Seq}

	boxes, err := w.detector.DetectBoxes(pf.Image)
	if err != nil {
		w.stats.DetectorFailed()
		w.logger.WithError(err).WithField("seq", pf.Seq).Warn("Region detection failed")
		return batch
	}

	bounds := image.Rect(0, 0, pf.Image.Cols(), pf.Image.Rows())
	failures := 0
	for i, box := range boxes {
		detections, err := w.recognizeBox(pf.Image, bounds, box)
		if err != nil {
			failures++
			w.logger.WithError(err).WithFields(logrus.Fields{
				"seq":   pf.Seq,
				"index": i,
				"box":   box.String(),
			}).Debug("Skipping region")
			continue
		}
		batch.Detections = append(batch.Detections, detections...)
	}

	w.stats.FrameProcessed(len(boxes), len(batch.Detections), failures)
	return batch
}

// recognizeBox crops one region and remaps its words to frame coordinates.
// Panics from the crop or the OCR engine are converted to errors.
func (w *Worker) recognizeBox(frame gocv.Mat, bounds image.Rectangle, box BoundingBox) (detections []TextDetection, err error) {
	defer func() {
		if r := recover(); r != nil {
			detections = nil
			err = fmt.Errorf("recognition panic: %v", r)
		}
	}()

	if !box.Within(bounds) {
		return nil, fmt.Errorf("%w: %s outside %v", ErrInvalidBox, box, bounds)
	}

	region := frame.Region(box.Rect())
	defer region.Close()
	// Regions share the parent's stride; recognizers expect contiguous data.
	crop := region.Clone()
	defer crop.Close()

	words, err := w.recognizer.Recognize(crop)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", box, err)
	}

	detections = make([]TextDetection, 0, len(words))
	for _, word := range words {
		detections = append(detections, TextDetection{
			Text:       word.Text,
			Confidence: word.Confidence,
			Box:        BoxFromRect(word.Box).Translate(box.StartX, box.StartY),
		})
	}
	return detections, nil
}

// IsEngineInit reports whether err came from engine initialisation.
func IsEngineInit(err error) bool {
	return errors.Is(err, ErrEngineInit)
}
