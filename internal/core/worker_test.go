package core

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeDetector struct {
	boxes []BoundingBox
	err   error
}

func (d *fakeDetector) DetectBoxes(gocv.Mat) ([]BoundingBox, error) {
	return d.boxes, d.err
}

// fakeRecognizer returns one word per call, labelled with the crop size.
type fakeRecognizer struct {
	calls   atomic.Int32
	panicOn int32
	failOn  int32
}

func (r *fakeRecognizer) Recognize(crop gocv.Mat) ([]Word, error) {
	n := r.calls.Add(1)
	if n == r.panicOn {
		panic("engine exploded")
	}
	if n == r.failOn {
		return nil, errors.New("engine error")
	}
	return []Word{{
		Text:       "word",
		Confidence: 80 + int(n),
		Box:        image.Rect(2, 3, crop.Cols()-1, crop.Rows()-1),
	}}, nil
}

func testLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func newTestFrame(t *testing.T, seq uint64) *PreprocessedFrame {
	t.Helper()
	mat := gocv.NewMatWithSize(100, 200, gocv.MatTypeCV8UC3)
	require.False(t, mat.Empty())
	return &PreprocessedFrame{Image: mat, Seq: seq}
}

func newTestWorker(det RegionDetector, rec Recognizer) (*Worker, *Mailbox[*PreprocessedFrame], *Mailbox[Batch]) {
	frames := NewMailbox[*PreprocessedFrame]()
	results := NewMailbox[Batch]()
	w := NewWorker(frames, results, func() (RegionDetector, Recognizer, error) {
		return det, rec, nil
	}, nil, testLogger())
	w.detector = det
	w.recognizer = rec
	return w, frames, results
}

func TestWorker_ProcessRemapsToFrameCoordinates(t *testing.T) {
	det := &fakeDetector{boxes: []BoundingBox{{StartX: 10, StartY: 20, EndX: 60, EndY: 50}}}
	w, _, _ := newTestWorker(det, &fakeRecognizer{})

	pf := newTestFrame(t, 4)
	defer pf.Close()

	batch := w.Process(pf)

	require.Len(t, batch.Detections, 1)
	assert.Equal(t, uint64(4), batch.FrameSeq)
	d := batch.Detections[0]
	assert.Equal(t, "word", d.Text)
	assert.Equal(t, 81, d.Confidence)
	// Crop is 50x30, local box (2,3)-(49,29).
	assert.Equal(t, BoundingBox{StartX: 12, StartY: 23, EndX: 59, EndY: 49}, d.Box)
}

func TestWorker_ProcessIsolatesBadBoxes(t *testing.T) {
	det := &fakeDetector{boxes: []BoundingBox{
		{StartX: 0, StartY: 0, EndX: 40, EndY: 20},
		{StartX: 150, StartY: 0, EndX: 250, EndY: 20}, // past the right edge
		{StartX: 30, StartY: 30, EndX: 30, EndY: 60},  // zero width
		{StartX: 60, StartY: 40, EndX: 120, EndY: 80},
	}}
	w, _, _ := newTestWorker(det, &fakeRecognizer{})

	pf := newTestFrame(t, 1)
	defer pf.Close()

	batch := w.Process(pf)

	require.Len(t, batch.Detections, 2)
	assert.Equal(t, 2, batch.Detections[0].Box.StartX)
	assert.Equal(t, 62, batch.Detections[1].Box.StartX)
}

func TestWorker_ProcessSurvivesRecognizerFailures(t *testing.T) {
	det := &fakeDetector{boxes: []BoundingBox{
		{StartX: 0, StartY: 0, EndX: 40, EndY: 20},
		{StartX: 50, StartY: 0, EndX: 90, EndY: 20},
		{StartX: 100, StartY: 0, EndX: 140, EndY: 20},
		{StartX: 150, StartY: 0, EndX: 190, EndY: 20},
	}}
	rec := &fakeRecognizer{failOn: 2, panicOn: 3}
	w, _, _ := newTestWorker(det, rec)

	pf := newTestFrame(t, 1)
	defer pf.Close()

	batch := w.Process(pf)

	require.Len(t, batch.Detections, 2)
	assert.Equal(t, 2, batch.Detections[0].Box.StartX)
	assert.Equal(t, 152, batch.Detections[1].Box.StartX)
	assert.Equal(t, int32(4), rec.calls.Load())
}

func TestWorker_ProcessDetectorErrorYieldsEmptyBatch(t *testing.T) {
	w, _, _ := newTestWorker(&fakeDetector{err: errors.New("no model")}, &fakeRecognizer{})

	pf := newTestFrame(t, 9)
	defer pf.Close()

	batch := w.Process(pf)
	assert.Equal(t, uint64(9), batch.FrameSeq)
	assert.Empty(t, batch.Detections)
}

func TestWorker_RunStopsOnSentinel(t *testing.T) {
	det := &fakeDetector{boxes: []BoundingBox{{StartX: 0, StartY: 0, EndX: 40, EndY: 20}}}
	rec := &fakeRecognizer{}
	w, frames, results := newTestWorker(det, rec)

	var runErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = w.Run()
	}()

	require.True(t, frames.TryPut(newTestFrame(t, 1)))
	batch, ok := results.Take()
	require.True(t, ok)
	assert.Len(t, batch.Detections, 1)

	frames.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after sentinel")
	}
	assert.NoError(t, runErr)

	late := newTestFrame(t, 2)
	defer late.Close()
	assert.False(t, frames.TryPut(late), "frames after the sentinel are rejected")
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestWorker_RunEngineInitFailure(t *testing.T) {
	frames := NewMailbox[*PreprocessedFrame]()
	results := NewMailbox[Batch]()
	w := NewWorker(frames, results, func() (RegionDetector, Recognizer, error) {
		return nil, nil, errors.New("tessdata missing")
	}, nil, testLogger())

	err := w.Run()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineInit)
	assert.True(t, IsEngineInit(err))
	assert.True(t, frames.Closed(), "producer must see the worker is gone")
}

func TestWorker_RunStopsWhenResultsClosed(t *testing.T) {
	det := &fakeDetector{}
	w, frames, results := newTestWorker(det, &fakeRecognizer{})
	results.Close()

	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	require.True(t, frames.TryPut(newTestFrame(t, 1)))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after results closed")
	}
}

func TestWorker_EnginesBuiltByRun(t *testing.T) {
	frames := NewMailbox[*PreprocessedFrame]()
	results := NewMailbox[Batch]()

	var built atomic.Int32
	w := NewWorker(frames, results, func() (RegionDetector, Recognizer, error) {
		built.Add(1)
		return &fakeDetector{}, &fakeRecognizer{}, nil
	}, nil, testLogger())
	assert.Equal(t, int32(0), built.Load(), "engines are not built by the constructor")

	frames.Close()
	require.NoError(t, w.Run())
	assert.Equal(t, int32(1), built.Load())
}
