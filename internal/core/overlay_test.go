package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func box(x0, y0, x1, y1 int) BoundingBox {
	return BoundingBox{StartX: x0, StartY: y0, EndX: x1, EndY: y1}
}

func TestAcceptDetections(t *testing.T) {
	batch := Batch{Detections: []TextDetection{
		{Text: "low", Confidence: 49, Box: box(0, 0, 10, 10)},
		{Text: "high", Confidence: 51, Box: box(0, 0, 10, 10)},
		{Text: "flat", Confidence: 100, Box: box(5, 5, 5, 20)},
		{Text: "thin", Confidence: 100, Box: box(5, 5, 20, 5)},
		{Text: "edge", Confidence: 50, Box: box(0, 0, 10, 10)},
		{Text: "sure", Confidence: 99, Box: box(20, 20, 40, 30)},
	}}

	draw, texts := AcceptDetections(batch, 50)

	assert.Equal(t, []string{"high", "flat", "thin", "sure"}, texts)
	require.Len(t, draw, 2)
	assert.Equal(t, "high", draw[0].Text)
	assert.Equal(t, "sure", draw[1].Text)
	for _, d := range draw {
		assert.Greater(t, d.Box.Width(), 0)
		assert.Greater(t, d.Box.Height(), 0)
	}
}

func TestAcceptDetections_ThresholdBounds(t *testing.T) {
	batch := Batch{Detections: []TextDetection{
		{Text: "zero", Confidence: 0, Box: box(0, 0, 10, 10)},
		{Text: "full", Confidence: 100, Box: box(0, 0, 10, 10)},
	}}

	_, texts := AcceptDetections(batch, 0)
	assert.Equal(t, []string{"full"}, texts)

	_, texts = AcceptDetections(batch, 100)
	assert.Empty(t, texts)
}

func TestAcceptDetections_EmptyBatch(t *testing.T) {
	draw, texts := AcceptDetections(Batch{}, 50)
	assert.Nil(t, draw)
	assert.Nil(t, texts)
}

func TestDrawDetections_DrawsBoxColor(t *testing.T) {
	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(0, 0, 0, 0))

	style := DefaultOverlayStyle()
	DrawDetections(&frame, []TextDetection{{Text: "a", Confidence: 90, Box: box(20, 40, 80, 70)}}, style)

	// gocv colours map R,G,B onto the BGR channels of the Mat.
	assert.Equal(t, uint8(255), frame.GetVecbAt(40, 50)[1], "top edge is green")
	assert.Equal(t, uint8(0), frame.GetVecbAt(55, 50)[1], "interior untouched")
}

func TestDrawFPS_DoesNotPanicOnSmallFrame(t *testing.T) {
	frame := gocv.NewMatWithSize(20, 20, gocv.MatTypeCV8UC3)
	defer frame.Close()

	assert.NotPanics(t, func() { DrawFPS(&frame, 29.97, DefaultOverlayStyle()) })
}
