package core

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeCamera yields frames of a fixed colour. It fails after limit reads
// when limit is positive.
type fakeCamera struct {
	mu     sync.Mutex
	reads  int
	limit  int
	delay  time.Duration
	closed bool
}

func (c *fakeCamera) Read(dst *gocv.Mat) error {
	c.mu.Lock()
	c.reads++
	n := c.reads
	c.mu.Unlock()

	if c.limit > 0 && n > c.limit {
		return errors.New("device unplugged")
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer src.Close()
	src.CopyTo(dst)
	return nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDisplay struct {
	mu      sync.Mutex
	renders int
	sizes   [][2]int
	texts   [][]string
	shown   chan []string

	// samplePoints are read from every rendered frame into samples.
	samplePoints []image.Point
	samples      [][]uint8
}

func (d *fakeDisplay) Render(frame gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renders++
	d.sizes = append(d.sizes, [2]int{frame.Cols(), frame.Rows()})
	for _, p := range d.samplePoints {
		d.samples = append(d.samples, []uint8(frame.GetVecbAt(p.Y, p.X)))
	}
}

func (d *fakeDisplay) ShowTexts(texts []string) {
	d.mu.Lock()
	d.texts = append(d.texts, texts)
	d.mu.Unlock()
	if d.shown != nil {
		select {
		case d.shown <- texts:
		default:
		}
	}
}

type countingPrep struct {
	calls int
}

func (p *countingPrep) Preprocess(frame gocv.Mat) (*PreprocessedFrame, error) {
	p.calls++
	return &PreprocessedFrame{Image: frame.Clone()}, nil
}

func testLoopConfig() LoopConfig {
	return LoopConfig{Width: 160, Height: 120, Style: DefaultOverlayStyle(), Threshold: NewThreshold(50)}
}

func TestLoop_ReadFailureReleasesEverything(t *testing.T) {
	cam := &fakeCamera{limit: 3}
	disp := &fakeDisplay{}
	prep := &countingPrep{}
	frames := NewMailbox[*PreprocessedFrame]()
	results := NewMailbox[Batch]()

	loop := NewLoop(cam, prep, disp, frames, results, testLoopConfig(), nil, testLogger())
	err := loop.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCameraRead)
	assert.True(t, cam.isClosed())
	assert.True(t, frames.Closed())
	assert.True(t, results.Closed())
	assert.Equal(t, 3, disp.renders)
	for _, s := range disp.sizes {
		assert.Equal(t, [2]int{160, 120}, s)
	}
}

func TestLoop_DropsFramesWhileWorkerBusy(t *testing.T) {
	cam := &fakeCamera{limit: 4}
	prep := &countingPrep{}
	frames := NewMailbox[*PreprocessedFrame]()

	loop := NewLoop(cam, prep, &fakeDisplay{}, frames, NewMailbox[Batch](), testLoopConfig(), nil, testLogger())
	_ = loop.Run(context.Background())

	assert.Equal(t, 1, prep.calls, "only the first frame is preprocessed")
	assert.Equal(t, uint64(1), loop.seq)
}

func TestLoop_SurfacesAcceptedTexts(t *testing.T) {
	cam := &fakeCamera{limit: 2}
	disp := &fakeDisplay{samplePoints: []image.Point{
		{X: 30, Y: 40}, // top edge of "fifty-one"
		{X: 10, Y: 80}, // where "flat" would be drawn
	}}
	results := NewMailbox[Batch]()
	require.True(t, results.TryPut(Batch{Detections: []TextDetection{
		{Text: "forty-nine", Confidence: 49, Box: box(10, 10, 50, 30)},
		{Text: "fifty-one", Confidence: 51, Box: box(10, 40, 50, 60)},
		{Text: "flat", Confidence: 100, Box: box(10, 70, 10, 90)},
	}}))

	loop := NewLoop(cam, &countingPrep{}, disp, NewMailbox[*PreprocessedFrame](), results, testLoopConfig(), nil, testLogger())
	_ = loop.Run(context.Background())

	require.Len(t, disp.texts, 1, "texts are surfaced once per received batch")
	assert.Equal(t, []string{"fifty-one", "flat"}, disp.texts[0], "a zero-width box still lists its text")

	require.Len(t, disp.samples, 4, "two renders, two points each")
	assert.Equal(t, []uint8{0, 255, 0}, disp.samples[0], "accepted box is drawn")
	assert.Equal(t, []uint8{200, 200, 200}, disp.samples[1], "zero-width box is not drawn")
	assert.Equal(t, []uint8{200, 200, 200}, disp.samples[2], "boxes are drawn only in the cycle their batch arrives")
}

func TestLoop_NoTextsWhenNothingAccepted(t *testing.T) {
	cam := &fakeCamera{limit: 1}
	disp := &fakeDisplay{}
	results := NewMailbox[Batch]()
	require.True(t, results.TryPut(Batch{Detections: []TextDetection{
		{Text: "faint", Confidence: 10, Box: box(10, 10, 50, 30)},
	}}))

	loop := NewLoop(cam, &countingPrep{}, disp, NewMailbox[*PreprocessedFrame](), results, testLoopConfig(), nil, testLogger())
	_ = loop.Run(context.Background())

	assert.Empty(t, disp.texts)
}

func TestLoop_StopsOnCancel(t *testing.T) {
	cam := &fakeCamera{delay: time.Millisecond}
	disp := &fakeDisplay{}
	frames := NewMailbox[*PreprocessedFrame]()

	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(cam, &countingPrep{}, disp, frames, NewMailbox[Batch](), testLoopConfig(), nil, testLogger())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
	assert.True(t, cam.isClosed())
	assert.True(t, frames.Closed())
}

func TestLoop_SkipsSubmitWhenWorkerGone(t *testing.T) {
	cam := &fakeCamera{limit: 3}
	prep := &countingPrep{}
	frames := NewMailbox[*PreprocessedFrame]()
	frames.Close()

	loop := NewLoop(cam, prep, &fakeDisplay{}, frames, NewMailbox[Batch](), testLoopConfig(), nil, testLogger())
	err := loop.Run(context.Background())

	assert.ErrorIs(t, err, ErrCameraRead)
	assert.Equal(t, 0, prep.calls)
}
