// Package ocr recognizes words in cropped text regions using Tesseract.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"live-text-overlay/internal/core"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Config selects the Tesseract language data and segmentation mode.
type Config struct {
	Language       string
	TessdataPrefix string
	PageSegMode    int
	// Crops shorter than MinCropHeight are upscaled before recognition.
	MinCropHeight int
}

// Tesseract wraps one gosseract client. A client is not safe for concurrent
// use; the recognition worker owns it.
type Tesseract struct {
	client *gosseract.Client
	cfg    Config
	logger *logrus.Entry
}

// NewTesseract creates a client and runs one warm-up recognition so that
// missing language data is reported here rather than on the first frame.
func NewTesseract(cfg Config, logger *logrus.Entry) (*Tesseract, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	t := &Tesseract{client: client, cfg: cfg, logger: logger.WithField("component", "ocr")}
	if err := t.warmUp(); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract init: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"version":  client.Version(),
		"language": cfg.Language,
		"psm":      cfg.PageSegMode,
	}).Info("Tesseract ready")
	return t, nil
}

func (t *Tesseract) warmUp() error {
	blank := imaging.New(32, 32, color.White)
	data, err := encodePNG(blank)
	if err != nil {
		return err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return err
	}
	_, err = t.client.Text()
	return err
}

// Recognize returns the words found in crop, in crop-local coordinates.
func (t *Tesseract) Recognize(crop gocv.Mat) ([]core.Word, error) {
	if crop.Empty() {
		return nil, fmt.Errorf("empty crop")
	}

	img, err := crop.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert crop: %w", err)
	}

	bounds := img.Bounds()
	scale := UpscaleFactor(bounds.Dy(), t.cfg.MinCropHeight)
	if scale > 1 {
		img = imaging.Resize(img, 0, t.cfg.MinCropHeight, imaging.Lanczos)
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	return WordsFromBoxes(boxes, scale, image.Rect(0, 0, bounds.Dx(), bounds.Dy())), nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// UpscaleFactor returns how much a crop of the given height is enlarged to
// reach minHeight. Crops already tall enough are not scaled.
func UpscaleFactor(height, minHeight int) float64 {
	if height <= 0 || minHeight <= 0 || height >= minHeight {
		return 1
	}
	return float64(minHeight) / float64(height)
}

// WordsFromBoxes converts Tesseract word boxes into Words. Boxes are scaled
// back by scale and clipped to bounds; blank words are skipped.
func WordsFromBoxes(boxes []gosseract.BoundingBox, scale float64, bounds image.Rectangle) []core.Word {
	words := make([]core.Word, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, core.Word{
			Text:       text,
			Confidence: core.ClampConfidence(int(math.Round(b.Confidence))),
			Box:        unscale(b.Box, scale).Intersect(bounds),
		})
	}
	return words
}

func unscale(r image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return r
	}
	return image.Rect(
		int(math.Floor(float64(r.Min.X)/scale)),
		int(math.Floor(float64(r.Min.Y)/scale)),
		int(math.Ceil(float64(r.Max.X)/scale)),
		int(math.Ceil(float64(r.Max.Y)/scale)),
	)
}
