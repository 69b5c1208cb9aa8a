package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// HistogramBins is the number of intensity bins for 8-bit images.
const HistogramBins = 256

// Histogram counts 8-bit intensities into 256 bins.
func Histogram(pix []byte) [HistogramBins]float64 {
	var hist [HistogramBins]float64
	for _, p := range pix {
		hist[p]++
	}
	return hist
}

// GrayHistogram computes the intensity histogram of a single-channel 8-bit Mat.
func GrayHistogram(gray gocv.Mat) ([HistogramBins]float64, error) {
	if gray.Empty() {
		return [HistogramBins]float64{}, fmt.Errorf("input image is empty")
	}
	if gray.Channels() != 1 || gray.Type() != gocv.MatTypeCV8U {
		return [HistogramBins]float64{}, fmt.Errorf("histogram needs a single-channel 8-bit image, got %d channels", gray.Channels())
	}
	return Histogram(gray.ToBytes()), nil
}

// CountPeaks counts the bins whose value is strictly greater than both
// neighbours. Neighbours wrap around, so bin 0 is compared with bin 255.
func CountPeaks(hist [HistogramBins]float64) int {
	peaks := 0
	for i := 0; i < HistogramBins; i++ {
		prev := hist[(i+HistogramBins-1)%HistogramBins]
		next := hist[(i+1)%HistogramBins]
		if hist[i] > prev && hist[i] > next {
			peaks++
		}
	}
	return peaks
}

// IsBimodal reports whether the histogram has exactly two local peaks.
func IsBimodal(hist [HistogramBins]float64) bool {
	return CountPeaks(hist) == 2
}
