// Text region detectors for the recognition worker
package detect

import (
	"image"
	"math"

	"live-text-overlay/internal/core"
)

// eastStride is the pixel step between adjacent cells of the EAST output
// maps.
const eastStride = 4

// DecodeEAST turns the EAST score map and geometry map into candidate
// rectangles in network input coordinates. scores holds rows*cols values;
// geometry holds five channels of rows*cols values: distances to the top,
// right, bottom and left edges followed by the rotation angle. Rotated
// boxes are approximated by their axis-aligned extent.
func DecodeEAST(scores, geometry []float32, rows, cols int, minScore float32) ([]image.Rectangle, []float32) {
	plane := rows * cols
	if len(scores) < plane || len(geometry) < 5*plane {
		return nil, nil
	}

	var rects []image.Rectangle
	var confidences []float32

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			score := scores[i]
			if score < minScore {
				continue
			}

			top := float64(geometry[i])
			right := float64(geometry[plane+i])
			bottom := float64(geometry[2*plane+i])
			left := float64(geometry[3*plane+i])
			angle := float64(geometry[4*plane+i])

			cos, sin := math.Cos(angle), math.Sin(angle)
			h := top + bottom
			w := right + left

			offsetX := float64(x * eastStride)
			offsetY := float64(y * eastStride)
			endX := offsetX + cos*right + sin*bottom
			endY := offsetY - sin*right + cos*bottom
			startX := endX - w
			startY := endY - h

			rects = append(rects, image.Rect(int(startX), int(startY), int(endX), int(endY)))
			confidences = append(confidences, score)
		}
	}
	return rects, confidences
}

// ScaleBoxes maps the selected rectangles from network input space to frame
// space and clips them to bounds. Boxes that end up empty are dropped.
func ScaleBoxes(rects []image.Rectangle, keep []int, rx, ry float64, bounds image.Rectangle) []core.BoundingBox {
	boxes := make([]core.BoundingBox, 0, len(keep))
	for _, k := range keep {
		if k < 0 || k >= len(rects) {
			continue
		}
		r := rects[k]
		scaled := image.Rect(
			int(float64(r.Min.X)*rx),
			int(float64(r.Min.Y)*ry),
			int(float64(r.Max.X)*rx),
			int(float64(r.Max.Y)*ry),
		).Intersect(bounds)

		b := core.BoxFromRect(scaled)
		if b.Valid() {
			boxes = append(boxes, b)
		}
	}
	return boxes
}
