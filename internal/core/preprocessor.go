package core

import (
	"fmt"
	"time"

	"live-text-overlay/internal/algorithms"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Preprocessor binarizes frames for OCR. The threshold strategy depends on
// the shape of the grayscale histogram: exactly two local peaks selects
// Otsu, anything else selects adaptive Gaussian thresholding.
type Preprocessor struct {
	denoised bool
	minArea  float64
	logger   *logrus.Entry
}

// NewPreprocessor creates a preprocessor. With denoised set, the opened,
// blob-filtered, inverted and blurred image is returned instead of the
// plain thresholded one.
func NewPreprocessor(denoised bool, logger *logrus.Entry) *Preprocessor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Preprocessor{
		denoised: denoised,
		minArea:  50,
		logger:   logger.WithField("component", "preprocessor"),
	}
}

// Preprocess converts a BGR frame into a PreprocessedFrame. The input is not
// modified and remains owned by the caller.
func (p *Preprocessor) Preprocess(frame gocv.Mat) (*PreprocessedFrame, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}

	hist, err := algorithms.GrayHistogram(gray)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	method := MethodAdaptive
	name := algorithms.NameAdaptiveGaussian
	if algorithms.IsBimodal(hist) {
		method = MethodOtsu
		name = algorithms.NameOtsu
	}

	binary, err := algorithms.Apply(name, gray, nil)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer binary.Close()

	denoised, removed, err := p.denoise(binary)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer denoised.Close()

	source := binary
	if p.denoised {
		source = denoised
	}

	out := gocv.NewMat()
	gocv.CvtColor(source, &out, gocv.ColorGrayToBGR)

	p.logger.WithFields(logrus.Fields{
		"method":        method.String(),
		"removed_blobs": removed,
	}).Debug("Frame preprocessed")

	return &PreprocessedFrame{
		Image:        out,
		Method:       method,
		CapturedAt:   time.Now(),
		RemovedBlobs: removed,
	}, nil
}

// denoise opens the binary image, erases small external blobs, then inverts
// and blurs the result.
func (p *Preprocessor) denoise(binary gocv.Mat) (gocv.Mat, int, error) {
	opened, err := algorithms.Apply(algorithms.NameOpening, binary, nil)
	if err != nil {
		return gocv.NewMat(), 0, err
	}
	defer opened.Close()

	removed := algorithms.RemoveSmallBlobs(&opened, p.minArea)

	result, err := algorithms.Apply(algorithms.NameInvertBlur, opened, nil)
	if err != nil {
		return gocv.NewMat(), 0, err
	}
	return result, removed, nil
}
