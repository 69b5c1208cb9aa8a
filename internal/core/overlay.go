package core

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// OverlayStyle controls how detections and the frame rate are drawn.
type OverlayStyle struct {
	BoxColor  color.RGBA
	TextColor color.RGBA
	FPSColor  color.RGBA
	Thickness int
	FontScale float64
}

// DefaultOverlayStyle draws green boxes and labels with a red frame rate.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		BoxColor:  color.RGBA{G: 255, A: 255},
		TextColor: color.RGBA{G: 255, A: 255},
		FPSColor:  color.RGBA{R: 255, A: 255},
		Thickness: 2,
		FontScale: 1.0,
	}
}

// AcceptDetections filters a batch for display. texts holds, in batch order,
// every string whose confidence is strictly above threshold. draw holds the
// subset whose box also has non-zero width and height.
func AcceptDetections(batch Batch, threshold int) (draw []TextDetection, texts []string) {
	for _, d := range batch.Detections {
		if d.Confidence <= threshold {
			continue
		}
		texts = append(texts, d.Text)
		if d.Box.Width() > 0 && d.Box.Height() > 0 {
			draw = append(draw, d)
		}
	}
	return draw, texts
}

// DrawDetections draws each detection's box with its text above it.
func DrawDetections(frame *gocv.Mat, detections []TextDetection, style OverlayStyle) {
	for _, d := range detections {
		gocv.Rectangle(frame, d.Box.Rect(), style.BoxColor, style.Thickness)

		labelY := d.Box.StartY - 10
		if labelY < 10 {
			labelY = d.Box.EndY + 20
		}
		gocv.PutText(frame, d.Text, image.Pt(d.Box.StartX, labelY),
			gocv.FontHersheySimplex, style.FontScale, style.TextColor, style.Thickness)
	}
}

// DrawFPS writes the frame rate near the bottom-left corner.
func DrawFPS(frame *gocv.Mat, fps float64, style OverlayStyle) {
	gocv.PutText(frame, fmt.Sprintf("FPS: %.1f", fps), image.Pt(50, frame.Rows()-30),
		gocv.FontHersheySimplex, style.FontScale, style.FPSColor, style.Thickness)
}
