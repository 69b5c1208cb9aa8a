// Binarization and cleanup algorithms used by the frame preprocessor
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm defines the interface for image processing algorithms
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	Validate(params map[string]interface{}) error
}

// Registered algorithm names.
const (
	NameOtsu             = "otsu"
	NameAdaptiveGaussian = "adaptive_gaussian"
	NameOpening          = "opening"
	NameSmallBlobRemoval = "small_blob_removal"
	NameInvertBlur       = "invert_blur"
)

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// Apply validates params against the named algorithm and runs it. Missing
// params fall back to the algorithm defaults.
func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}

	if params == nil {
		params = algorithm.GetDefaultParams()
	}
	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
	}

	return algorithm.Apply(input, params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(NameOtsu, NewOtsu())
	Register(NameAdaptiveGaussian, NewAdaptiveGaussian())

	Register(NameOpening, NewOpening())
	Register(NameSmallBlobRemoval, NewSmallBlobRemoval())
	Register(NameInvertBlur, NewInvertBlur())
}

func ensureGrayscale(input gocv.Mat) gocv.Mat {
	if input.Channels() == 1 {
		return input
	}

	gray := gocv.NewMat()
	gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	return gray
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return fallback
}

func boolParam(params map[string]interface{}, key string, fallback bool) bool {
	if val, ok := params[key]; ok {
		if v, ok := val.(bool); ok {
			return v
		}
	}
	return fallback
}
