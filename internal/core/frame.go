// Frame-cycle data types shared by the capture loop and the recognition worker
package core

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// ThresholdMethod names the binarization strategy chosen for a frame.
type ThresholdMethod int

const (
	MethodAdaptive ThresholdMethod = iota
	MethodOtsu
)

func (m ThresholdMethod) String() string {
	switch m {
	case MethodOtsu:
		return "otsu"
	case MethodAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// PreprocessedFrame is a binarized frame re-expanded to three channels.
// Whichever stage holds it owns Image, and ownership moves with mailbox
// handoff. The recognition worker consumes it exactly once and closes it.
type PreprocessedFrame struct {
	Image        gocv.Mat
	Method       ThresholdMethod
	Seq          uint64
	CapturedAt   time.Time
	RemovedBlobs int
}

// Close releases the underlying Mat.
func (f *PreprocessedFrame) Close() error {
	if f == nil {
		return nil
	}
	return f.Image.Close()
}

// BoundingBox is an axis-aligned box in pixel coordinates. Start is
// inclusive, End is exclusive.
type BoundingBox struct {
	StartX int `json:"start_x"`
	StartY int `json:"start_y"`
	EndX   int `json:"end_x"`
	EndY   int `json:"end_y"`
}

// BoxFromRect converts an image.Rectangle to a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{StartX: r.Min.X, StartY: r.Min.Y, EndX: r.Max.X, EndY: r.Max.Y}
}

func (b BoundingBox) Width() int  { return b.EndX - b.StartX }
func (b BoundingBox) Height() int { return b.EndY - b.StartY }

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.StartX, b.StartY, b.EndX, b.EndY)
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.StartX < b.EndX && b.StartY < b.EndY
}

// Within reports whether the box is valid and lies entirely inside bounds.
func (b BoundingBox) Within(bounds image.Rectangle) bool {
	return b.Valid() &&
		b.StartX >= bounds.Min.X && b.StartY >= bounds.Min.Y &&
		b.EndX <= bounds.Max.X && b.EndY <= bounds.Max.Y
}

// Translate shifts the box by (dx, dy).
func (b BoundingBox) Translate(dx, dy int) BoundingBox {
	return BoundingBox{StartX: b.StartX + dx, StartY: b.StartY + dy, EndX: b.EndX + dx, EndY: b.EndY + dy}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.StartX, b.StartY, b.EndX, b.EndY)
}

// TextDetection is one recognized word in frame coordinates.
type TextDetection struct {
	Text       string      `json:"text"`
	Confidence int         `json:"confidence"` // 0-100
	Box        BoundingBox `json:"box"`
}

// Batch holds every detection produced from one preprocessed frame, in the
// order the detector returned its boxes.
type Batch struct {
	FrameSeq   uint64
	Detections []TextDetection
}

// Word is one OCR result in crop-local coordinates.
type Word struct {
	Text       string
	Confidence int
	Box        image.Rectangle
}

// ValidateFrame checks that a Mat can be treated as a Frame.
func ValidateFrame(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("frame is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels != 1 && channels != 3 && channels != 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	const maxDimension = 16384
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("frame too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}
