package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Stats is the union of the loop and worker counters.
type Stats interface {
	LoopStats
	WorkerStats
}

// SessionConfig wires the collaborators of one capture session.
type SessionConfig struct {
	OpenCamera func() (Camera, error)
	Engines    EngineFactory
	Prep       FrameProcessor
	Display    Display
	Loop       LoopConfig
	Stats      Stats

	// OnWorkerExit, if set, is called from the worker goroutine when it
	// returns. err is nil on a normal shutdown.
	OnWorkerExit func(err error)
}

// Session runs one capture loop and one recognition worker connected by a
// frame mailbox and a result mailbox.
type Session struct {
	ID     string
	cfg    SessionConfig
	logger *logrus.Entry
}

func NewSession(cfg SessionConfig, logger *logrus.Entry) *Session {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		cfg:    cfg,
		logger: logger.WithField("session", id),
	}
}

// Run opens the camera, starts the worker and runs the capture loop until
// ctx is cancelled or the camera fails. It waits for the worker to exit and
// returns the joined errors of both sides.
func (s *Session) Run(ctx context.Context) error {
	camera, err := s.cfg.OpenCamera()
	if err != nil {
		s.logger.WithError(err).Error("Failed to open camera")
		return fmt.Errorf("%w: %v", ErrCameraOpen, err)
	}

	frames := NewMailbox[*PreprocessedFrame]()
	results := NewMailbox[Batch]()

	var workerStats WorkerStats
	var loopStats LoopStats
	if s.cfg.Stats != nil {
		workerStats = s.cfg.Stats
		loopStats = s.cfg.Stats
	}

	worker := NewWorker(frames, results, s.cfg.Engines, workerStats, s.logger)
	loop := NewLoop(camera, s.cfg.Prep, s.cfg.Display, frames, results, s.cfg.Loop, loopStats, s.logger)

	done := make(chan error, 1)
	go func() {
		err := worker.Run()
		if s.cfg.OnWorkerExit != nil {
			s.cfg.OnWorkerExit(err)
		}
		done <- err
	}()

	s.logger.Info("Session started")
	loopErr := loop.Run(ctx)
	workerErr := <-done
	s.logger.Info("Session finished")

	return errors.Join(loopErr, workerErr)
}
