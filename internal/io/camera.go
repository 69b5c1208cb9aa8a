package io

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device     int
	BufferSize int
}

// Camera reads frames from a local video device.
type Camera struct {
	capture *gocv.VideoCapture
	device  int
	logger  *logrus.Entry
}

// OpenCamera opens the device and limits its internal queue to BufferSize
// frames so that each read returns a recent frame rather than a stale one.
func OpenCamera(cfg CameraConfig, logger *logrus.Entry) (*Camera, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithFields(logrus.Fields{"component": "camera", "device": cfg.Device})

	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("device %d is not available", cfg.Device)
	}

	if cfg.BufferSize > 0 {
		capture.Set(gocv.VideoCaptureBufferSize, float64(cfg.BufferSize))
	}

	logger.WithFields(logrus.Fields{
		"buffer_size": capture.Get(gocv.VideoCaptureBufferSize),
		"width":       capture.Get(gocv.VideoCaptureFrameWidth),
		"height":      capture.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Camera opened")

	return &Camera{capture: capture, device: cfg.Device, logger: logger}, nil
}

// Read grabs the next frame into dst.
func (c *Camera) Read(dst *gocv.Mat) error {
	if ok := c.capture.Read(dst); !ok {
		return fmt.Errorf("device %d: read failed", c.device)
	}
	return nil
}

func (c *Camera) Close() error {
	c.logger.Info("Camera released")
	return c.capture.Close()
}
