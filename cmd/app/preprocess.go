package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"live-text-overlay/internal/config"
	"live-text-overlay/internal/core"
	"live-text-overlay/internal/io"
)

// runPreprocess binarizes one still image and writes the result.
func runPreprocess(cfg *config.Config, in, out string, logger *logrus.Logger) error {
	entry := logrus.NewEntry(logger)
	loader := io.NewImageLoader(entry)

	frame, err := loader.LoadImage(in)
	if err != nil {
		return err
	}
	defer frame.Close()

	pf, err := core.NewPreprocessor(cfg.Preprocess.DenoisedOutput, entry).Preprocess(frame)
	if err != nil {
		return err
	}
	defer pf.Close()

	if err := loader.SaveImage(pf.Image, out); err != nil {
		return err
	}

	fmt.Printf("%s -> %s (method: %s, removed blobs: %d)\n", in, out, pf.Method, pf.RemovedBlobs)
	return nil
}
