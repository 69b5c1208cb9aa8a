package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"live-text-overlay/internal/config"
	"live-text-overlay/internal/core"
	"live-text-overlay/internal/detect"
	"live-text-overlay/internal/io"
	"live-text-overlay/internal/metrics"
	"live-text-overlay/internal/ocr"
)

// sessionRunner builds a fresh capture session for every run.
type sessionRunner struct {
	cfg       *config.Config
	style     core.OverlayStyle
	threshold *core.Threshold
	stats     *metrics.Pipeline
	logger    *logrus.Entry
}

func newRunner(cfg *config.Config, style core.OverlayStyle, threshold *core.Threshold, stats *metrics.Pipeline, logger *logrus.Entry) *sessionRunner {
	return &sessionRunner{cfg: cfg, style: style, threshold: threshold, stats: stats, logger: logger}
}

func (r *sessionRunner) Run(ctx context.Context, display core.Display, onWorkerExit func(error)) error {
	session := core.NewSession(core.SessionConfig{
		OpenCamera: r.openCamera,
		Engines:    r.engines,
		Prep:       core.NewPreprocessor(r.cfg.Preprocess.DenoisedOutput, r.logger),
		Display:    display,
		Loop: core.LoopConfig{
			Width:     r.cfg.Camera.Width,
			Height:    r.cfg.Camera.Height,
			Style:     r.style,
			Threshold: r.threshold,
		},
		Stats:        r.stats,
		OnWorkerExit: onWorkerExit,
	}, r.logger)

	r.stats.SetSession(session.ID)
	return session.Run(ctx)
}

func (r *sessionRunner) openCamera() (core.Camera, error) {
	cam, err := io.OpenCamera(io.CameraConfig{
		Device:     r.cfg.Camera.Device,
		BufferSize: r.cfg.Camera.BufferSize,
	}, r.logger)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

// engines runs on the worker goroutine.
func (r *sessionRunner) engines() (core.RegionDetector, core.Recognizer, error) {
	var detector core.RegionDetector = detect.FullFrame{}
	if r.cfg.Detector.ModelPath != "" {
		east, err := detect.NewEAST(detect.EASTConfig{
			ModelPath:      r.cfg.Detector.ModelPath,
			InputWidth:     r.cfg.Detector.InputWidth,
			InputHeight:    r.cfg.Detector.InputHeight,
			ScoreThreshold: float32(r.cfg.Detector.ScoreThreshold),
			NMSThreshold:   float32(r.cfg.Detector.NMSThreshold),
		}, r.logger)
		if err != nil {
			return nil, nil, err
		}
		detector = east
	} else {
		r.logger.Warn("No detector model configured, recognizing whole frames")
	}

	recognizer, err := ocr.NewTesseract(ocr.Config{
		Language:       r.cfg.OCR.Language,
		TessdataPrefix: r.cfg.OCR.TessdataPrefix,
		PageSegMode:    r.cfg.OCR.PageSegMode,
		MinCropHeight:  r.cfg.OCR.MinCropHeight,
	}, r.logger)
	if err != nil {
		if east, ok := detector.(*detect.EAST); ok {
			east.Close()
		}
		return nil, nil, err
	}

	return detector, recognizer, nil
}

// logDisplay is the headless display: frames are discarded and accepted
// text is logged.
type logDisplay struct {
	logger *logrus.Entry
}

func (d logDisplay) Render(gocv.Mat) {}

func (d logDisplay) ShowTexts(texts []string) {
	d.logger.WithField("texts", texts).Info("Text recognized")
}

func runHeadless(ctx context.Context, runner *sessionRunner, logger *logrus.Entry) error {
	logger.Info("Running headless, press Ctrl+C to stop")

	display := logDisplay{logger: logger.WithField("component", "display")}
	err := runner.Run(ctx, display, func(err error) {
		if errors.Is(err, core.ErrEngineInit) {
			logger.WithError(err).Error("OCR unavailable, continuing without recognition")
		}
	})

	snap := runner.stats.Snapshot()
	logger.WithFields(logrus.Fields{
		"frames_captured":  snap.FramesCaptured,
		"frames_submitted": snap.FramesSubmitted,
		"frames_dropped":   snap.FramesDropped,
		"detections":       snap.Detections,
	}).Info("Session summary")

	// Losing OCR alone does not fail a headless run.
	if err != nil && !onlyEngineInit(err) {
		return err
	}
	return nil
}

func onlyEngineInit(err error) bool {
	return errors.Is(err, core.ErrEngineInit) &&
		!errors.Is(err, core.ErrCameraOpen) && !errors.Is(err, core.ErrCameraRead)
}

func overlayStyle(cfg config.OverlayConfig) (core.OverlayStyle, error) {
	style := core.OverlayStyle{Thickness: cfg.Thickness, FontScale: cfg.FontScale}

	var err error
	if style.BoxColor, err = config.ParseColor(cfg.BoxColor); err != nil {
		return style, err
	}
	if style.TextColor, err = config.ParseColor(cfg.TextColor); err != nil {
		return style, err
	}
	if style.FPSColor, err = config.ParseColor(cfg.FPSColor); err != nil {
		return style, err
	}
	return style, nil
}
