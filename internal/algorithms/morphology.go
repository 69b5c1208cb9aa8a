// Morphological cleanup of binary images
package algorithms

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Opening implements morphological opening with a rectangular kernel
type Opening struct{}

func NewOpening() *Opening {
	return &Opening{}
}

func (o *Opening) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := int(floatParam(params, "kernel_size", 2))
	iterations := int(floatParam(params, "iterations", 1))

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	output := gocv.NewMat()
	gocv.MorphologyEx(input, &output, gocv.MorphOpen, kernel)

	for i := 1; i < iterations; i++ {
		temp := gocv.NewMat()
		gocv.MorphologyEx(output, &temp, gocv.MorphOpen, kernel)
		output.Close()
		output = temp
	}

	return output, nil
}

func (o *Opening) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 2.0,
		"iterations":  1.0,
	}
}

func (o *Opening) GetName() string {
	return "Opening"
}

func (o *Opening) Validate(params map[string]interface{}) error {
	if v := floatParam(params, "kernel_size", 2); v < 1 || v > 15 {
		return fmt.Errorf("kernel_size must be between 1 and 15")
	}
	if v := floatParam(params, "iterations", 1); v < 1 || v > 10 {
		return fmt.Errorf("iterations must be between 1 and 10")
	}
	return nil
}

// SmallBlobRemoval erases external contours whose area is below min_area
type SmallBlobRemoval struct{}

func NewSmallBlobRemoval() *SmallBlobRemoval {
	return &SmallBlobRemoval{}
}

func (s *SmallBlobRemoval) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("small blob removal needs a binary image, got %d channels", input.Channels())
	}

	output := input.Clone()
	RemoveSmallBlobs(&output, floatParam(params, "min_area", 50))
	return output, nil
}

func (s *SmallBlobRemoval) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"min_area": 50.0,
	}
}

func (s *SmallBlobRemoval) GetName() string {
	return "Small Blob Removal"
}

func (s *SmallBlobRemoval) Validate(params map[string]interface{}) error {
	if v := floatParam(params, "min_area", 50); v < 0 {
		return fmt.Errorf("min_area must not be negative")
	}
	return nil
}

// RemoveSmallBlobs fills every external contour of binary with an area below
// minArea with background and returns how many were erased. binary is
// modified in place.
func RemoveSmallBlobs(binary *gocv.Mat, minArea float64) int {
	contours := gocv.FindContours(*binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	removed := 0
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < minArea {
			gocv.DrawContours(binary, contours, i, color.RGBA{}, -1)
			removed++
		}
	}
	return removed
}

// InvertBlur inverts a binary image and softens it with a small Gaussian blur
type InvertBlur struct{}

func NewInvertBlur() *InvertBlur {
	return &InvertBlur{}
}

func (ib *InvertBlur) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := int(floatParam(params, "kernel_size", 3))
	if kernelSize%2 == 0 {
		kernelSize++
	}

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(input, &inverted)

	output := gocv.NewMat()
	gocv.GaussianBlur(inverted, &output, image.Pt(kernelSize, kernelSize), 0, 0, gocv.BorderDefault)
	return output, nil
}

func (ib *InvertBlur) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 3.0,
	}
}

func (ib *InvertBlur) GetName() string {
	return "Invert + Blur"
}

func (ib *InvertBlur) Validate(params map[string]interface{}) error {
	if v := floatParam(params, "kernel_size", 3); v < 1 || v > 31 {
		return fmt.Errorf("kernel_size must be between 1 and 31")
	}
	return nil
}
