// Main window: live annotated video with run and confidence controls
package gui

import (
	"context"
	"errors"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"live-text-overlay/internal/core"
)

// Runner runs one capture session against display until ctx is cancelled.
// onWorkerExit is forwarded to the session.
type Runner func(ctx context.Context, display core.Display, onWorkerExit func(error)) error

// Application represents the main window
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Entry
	run    Runner

	video    *VideoCanvas
	controls *ControlPanel
	chat     *ChatPanel // nil when no chat endpoint is configured

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping bool
	restart  bool // Run re-checked while the previous session was stopping
	running  sync.WaitGroup
}

// NewApplication builds the main window. chat may be nil, which hides the
// chat card.
func NewApplication(app fyne.App, run Runner, threshold *core.Threshold, chat Completer, width, height int, logger *logrus.Entry) *Application {
	window := app.NewWindow("Live Text Overlay")
	window.Resize(fyne.NewSize(float32(width)+280, float32(height)+40))
	window.CenterOnScreen()

	a := &Application{
		app:      app,
		window:   window,
		logger:   logger.WithField("component", "gui"),
		run:      run,
		video:    NewVideoCanvas(width, height, logger),
		controls: NewControlPanel(threshold),
	}
	if chat != nil {
		a.chat = NewChatPanel(chat, logger)
	}

	a.setupLayout()
	a.controls.SetRunCallback(a.onRunChanged)
	return a
}

func (a *Application) setupLayout() {
	var body fyne.CanvasObject = widget.NewCard("Recognized text", "", container.NewVScroll(a.video.texts))
	if a.chat != nil {
		body = container.NewVSplit(body, widget.NewCard("Chat", "", a.chat.GetContainer()))
	}
	side := container.NewBorder(
		widget.NewCard("Controls", "", a.controls.GetContainer()),
		nil, nil, nil,
		body,
	)

	content := container.NewHSplit(
		container.NewPadded(a.video.image),
		side,
	)
	content.SetOffset(0.75)
	a.window.SetContent(content)
}

func (a *Application) onRunChanged(on bool) {
	if on {
		a.start()
	} else {
		a.stop()
	}
}

// start launches a session on its own goroutine. Called on the UI goroutine.
func (a *Application) start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		if a.stopping {
			a.restart = true
			a.controls.SetStatus("Restarting")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.video.Clear()
	a.controls.SetStatus("Running")

	onWorkerExit := func(err error) {
		if errors.Is(err, core.ErrEngineInit) {
			fyne.Do(func() { a.controls.SetStatus("OCR unavailable") })
		}
	}

	a.running.Add(1)
	go func() {
		defer a.running.Done()
		err := a.run(ctx, a.video, onWorkerExit)
		if err != nil {
			a.logger.WithError(err).Error("Session ended with error")
		}

		a.mu.Lock()
		a.cancel = nil
		a.stopping = false
		restart := a.restart
		a.restart = false
		a.mu.Unlock()
		cancel()

		fyne.Do(func() {
			if restart {
				a.controls.SetRunning(true)
				a.start()
				return
			}
			a.controls.SetRunning(false)
			switch {
			case errors.Is(err, core.ErrCameraOpen), errors.Is(err, core.ErrCameraRead):
				a.controls.SetStatus("Stopped: camera unavailable")
			case errors.Is(err, core.ErrEngineInit):
				a.controls.SetStatus("Stopped (OCR unavailable)")
			default:
				a.controls.SetStatus("Stopped")
			}
		})
	}()
}

func (a *Application) stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.restart = false
	if cancel != nil {
		a.stopping = true
	}
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SyncThreshold refreshes the slider after an external threshold change.
func (a *Application) SyncThreshold() {
	fyne.Do(a.controls.SyncThreshold)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.window.ShowAndRun()
	a.cleanup()
}

// cleanup stops the session and waits until the camera is released.
func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	a.stop()
	a.running.Wait()
	if a.chat != nil {
		a.chat.Close()
	}
}
