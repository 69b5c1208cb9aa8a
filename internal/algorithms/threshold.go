package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Otsu implements global Otsu thresholding
type Otsu struct{}

// NewOtsu creates a new Otsu algorithm
func NewOtsu() *Otsu {
	return &Otsu{}
}

func (o *Otsu) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := ensureGrayscale(input)
	defer func() {
		if gray.Ptr() != input.Ptr() {
			gray.Close()
		}
	}()

	maxValue := floatParam(params, "max_value", 255)

	typ := gocv.ThresholdBinary
	if boolParam(params, "inverse", false) {
		typ = gocv.ThresholdBinaryInv
	}

	output := gocv.NewMat()
	gocv.Threshold(gray, &output, 0, float32(maxValue), typ|gocv.ThresholdOtsu)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("otsu threshold produced no output")
	}

	return output, nil
}

func (o *Otsu) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"max_value": 255.0,
		"inverse":   false,
	}
}

func (o *Otsu) GetName() string {
	return "Otsu"
}

func (o *Otsu) Validate(params map[string]interface{}) error {
	if v := floatParam(params, "max_value", 255); v < 0 || v > 255 {
		return fmt.Errorf("max_value must be between 0 and 255")
	}
	return nil
}

// AdaptiveGaussian implements Gaussian-weighted local thresholding
type AdaptiveGaussian struct{}

// NewAdaptiveGaussian creates a new adaptive Gaussian algorithm
func NewAdaptiveGaussian() *AdaptiveGaussian {
	return &AdaptiveGaussian{}
}

func (a *AdaptiveGaussian) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := ensureGrayscale(input)
	defer func() {
		if gray.Ptr() != input.Ptr() {
			gray.Close()
		}
	}()

	maxValue := floatParam(params, "max_value", 255)
	blockSize := int(floatParam(params, "block_size", 11))
	c := floatParam(params, "C", 2)

	// Ensure block size is odd
	if blockSize%2 == 0 {
		blockSize++
	}

	output := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &output, float32(maxValue), gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, blockSize, float32(c))
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("adaptive threshold produced no output")
	}

	return output, nil
}

func (a *AdaptiveGaussian) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"max_value":  255.0,
		"block_size": 11.0,
		"C":          2.0,
	}
}

func (a *AdaptiveGaussian) GetName() string {
	return "Adaptive Gaussian"
}

func (a *AdaptiveGaussian) Validate(params map[string]interface{}) error {
	if v := floatParam(params, "block_size", 11); v < 3 || v > 101 {
		return fmt.Errorf("block_size must be between 3 and 101")
	}
	if v := floatParam(params, "max_value", 255); v < 0 || v > 255 {
		return fmt.Errorf("max_value must be between 0 and 255")
	}
	return nil
}
