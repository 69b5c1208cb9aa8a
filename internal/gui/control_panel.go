package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"live-text-overlay/internal/core"
)

// ControlPanel holds the run toggle, the confidence slider and the status
// line.
type ControlPanel struct {
	threshold *core.Threshold

	runCheck       *widget.Check
	slider         *widget.Slider
	thresholdLabel *widget.Label
	statusLabel    *widget.Label
	container      *fyne.Container

	onRunChanged func(bool)
}

func NewControlPanel(threshold *core.Threshold) *ControlPanel {
	cp := &ControlPanel{threshold: threshold}
	cp.initializeUI()
	return cp
}

func (cp *ControlPanel) initializeUI() {
	cp.runCheck = widget.NewCheck("Run", func(on bool) {
		if cp.onRunChanged != nil {
			cp.onRunChanged(on)
		}
	})

	cp.thresholdLabel = widget.NewLabel("")
	cp.slider = widget.NewSlider(core.MinConfidence, core.MaxConfidence)
	cp.slider.Step = 1
	cp.slider.SetValue(float64(cp.threshold.Get()))
	cp.slider.OnChanged = func(v float64) {
		cp.setThresholdLabel(cp.threshold.Set(int(v)))
	}
	cp.setThresholdLabel(cp.threshold.Get())

	cp.statusLabel = widget.NewLabel("Stopped")

	cp.container = container.NewVBox(
		cp.runCheck,
		widget.NewSeparator(),
		cp.thresholdLabel,
		cp.slider,
		widget.NewSeparator(),
		cp.statusLabel,
	)
}

func (cp *ControlPanel) setThresholdLabel(v int) {
	cp.thresholdLabel.SetText(fmt.Sprintf("Confidence threshold: %d", v))
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

func (cp *ControlPanel) SetRunCallback(fn func(bool)) {
	cp.onRunChanged = fn
}

// SetRunning updates the toggle without re-triggering the callback.
func (cp *ControlPanel) SetRunning(on bool) {
	fn := cp.onRunChanged
	cp.onRunChanged = nil
	cp.runCheck.SetChecked(on)
	cp.onRunChanged = fn
}

func (cp *ControlPanel) SetStatus(msg string) {
	cp.statusLabel.SetText(msg)
}

// SyncThreshold moves the slider to the shared threshold after it was
// changed elsewhere.
func (cp *ControlPanel) SyncThreshold() {
	v := cp.threshold.Get()
	cp.slider.SetValue(float64(v))
	cp.setThresholdLabel(v)
}
