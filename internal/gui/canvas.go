package gui

import (
	"image"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoCanvas shows the annotated camera feed and the accepted text. It is
// the display surface of a capture session; its methods may be called from
// any goroutine.
type VideoCanvas struct {
	logger *logrus.Entry

	image *canvas.Image
	texts *widget.Label
}

func NewVideoCanvas(width, height int, logger *logrus.Entry) *VideoCanvas {
	placeholder := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			placeholder.Set(x, y, color.RGBA{40, 40, 40, 255})
		}
	}

	img := canvas.NewImageFromImage(placeholder)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleFastest
	img.SetMinSize(fyne.NewSize(float32(width), float32(height)))

	texts := widget.NewLabel("")
	texts.Wrapping = fyne.TextWrapWord

	return &VideoCanvas{
		logger: logger.WithField("component", "canvas"),
		image:  img,
		texts:  texts,
	}
}

// Render converts the frame before returning, so the caller may reuse it.
func (vc *VideoCanvas) Render(frame gocv.Mat) {
	img, err := frame.ToImage()
	if err != nil {
		vc.logger.WithError(err).Warn("Failed to convert frame for display")
		return
	}

	fyne.Do(func() {
		vc.image.Image = img
		vc.image.Refresh()
	})
}

// ShowTexts replaces the accepted-text list.
func (vc *VideoCanvas) ShowTexts(texts []string) {
	joined := strings.Join(texts, "\n")
	fyne.Do(func() {
		vc.texts.SetText(joined)
	})
}

// Clear empties the text list. Must be called on the UI goroutine.
func (vc *VideoCanvas) Clear() {
	vc.texts.SetText("")
}
