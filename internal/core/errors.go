package core

import "errors"

var (
	// ErrCameraOpen means the camera device could not be opened.
	ErrCameraOpen = errors.New("camera open failed")
	// ErrCameraRead means a frame read failed and the capture loop stopped.
	ErrCameraRead = errors.New("camera read failed")
	// ErrEngineInit means the region detector or OCR engine could not be
	// initialised; no further recognition can happen in this session.
	ErrEngineInit = errors.New("recognition engine init failed")
	// ErrInvalidBox means a region box was degenerate or outside the frame.
	ErrInvalidBox = errors.New("invalid region box")
)
