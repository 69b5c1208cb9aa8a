package detect

import (
	"fmt"
	"image"
	"os"

	"live-text-overlay/internal/core"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var eastOutputLayers = []string{
	"feature_fusion/Conv_7/Sigmoid",
	"feature_fusion/concat_3",
}

// EASTConfig configures the EAST detector. Input dimensions must be
// multiples of 32.
type EASTConfig struct {
	ModelPath      string
	InputWidth     int
	InputHeight    int
	ScoreThreshold float32
	NMSThreshold   float32
}

// EAST detects text regions with a frozen EAST network.
type EAST struct {
	net    gocv.Net
	cfg    EASTConfig
	logger *logrus.Entry
}

// NewEAST loads the model. The returned detector is not safe for
// concurrent use.
func NewEAST(cfg EASTConfig, logger *logrus.Entry) (*EAST, error) {
	if cfg.InputWidth <= 0 || cfg.InputWidth%32 != 0 || cfg.InputHeight <= 0 || cfg.InputHeight%32 != 0 {
		return nil, fmt.Errorf("EAST input size must be a positive multiple of 32, got %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("EAST model: %w", err)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load EAST model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("component", "east")
	logger.WithField("model", cfg.ModelPath).Info("EAST model loaded")

	return &EAST{net: net, cfg: cfg, logger: logger}, nil
}

// DetectBoxes runs the network on frame and returns non-overlapping text
// boxes in frame coordinates.
func (e *EAST) DetectBoxes(frame gocv.Mat) ([]core.BoundingBox, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	size := image.Pt(e.cfg.InputWidth, e.cfg.InputHeight)
	blob := gocv.BlobFromImage(frame, 1.0, size, gocv.NewScalar(123.68, 116.78, 103.94, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	outs := e.net.ForwardLayers(eastOutputLayers)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, fmt.Errorf("EAST returned %d outputs, want 2", len(outs))
	}

	dims := outs[0].Size()
	if len(dims) != 4 {
		return nil, fmt.Errorf("unexpected EAST score shape %v", dims)
	}
	rows, cols := dims[2], dims[3]

	scores, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read EAST scores: %w", err)
	}
	geometry, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read EAST geometry: %w", err)
	}

	rects, confidences := DecodeEAST(scores, geometry, rows, cols, e.cfg.ScoreThreshold)
	if len(rects) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(rects, confidences, e.cfg.ScoreThreshold, e.cfg.NMSThreshold)

	rx := float64(frame.Cols()) / float64(e.cfg.InputWidth)
	ry := float64(frame.Rows()) / float64(e.cfg.InputHeight)
	boxes := ScaleBoxes(rects, keep, rx, ry, image.Rect(0, 0, frame.Cols(), frame.Rows()))

	e.logger.WithFields(logrus.Fields{
		"candidates": len(rects),
		"boxes":      len(boxes),
	}).Debug("Text regions detected")
	return boxes, nil
}

func (e *EAST) Close() error {
	return e.net.Close()
}

// FullFrame treats the whole frame as one text region. It is used when no
// detector model is configured.
type FullFrame struct{}

func (FullFrame) DetectBoxes(frame gocv.Mat) ([]core.BoundingBox, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	return []core.BoundingBox{{EndX: frame.Cols(), EndY: frame.Rows()}}, nil
}
