// Package tray provides the system tray menu for pinchpad: an output toggle,
// the output port, the last triggered control, and quit.
package tray

import (
	"strings"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	output      string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuOutput *systray.MenuItem
	menuLast   *systray.MenuItem
	menuActive *systray.MenuItem
}

// New creates a new Tray with output enabled.
func New(output string) *Tray {
	return &Tray{
		enabled: true,
		output:  output,
	}
}

// OnToggle sets the callback run when the user toggles output.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback run when "Open Dashboard" is clicked. The
// item is only shown when a callback is set before Run.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("pinchpad")
	systray.SetTooltip("pinchpad gesture MIDI controller")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle MIDI output")
	t.menuOutput = systray.AddMenuItem(outputTitle(t.output), "MIDI output port")
	t.menuOutput.Disable()
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(""), "Last triggered control")
	t.menuLast.Disable()
	t.menuActive = systray.AddMenuItem(activeTitle(nil), "Controls active this frame")
	t.menuActive.Disable()
	systray.AddSeparator()

	var dashboardCh chan struct{}
	if t.onDashboard != nil {
		dashboardCh = systray.AddMenuItem("Open Dashboard...", "Open the status page in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit pinchpad")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-dashboardCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled updates the toggle without running the callback, for changes
// made elsewhere (for example through the HTTP API).
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastTriggered shows the label of the last control that sent a note.
func (t *Tray) SetLastTriggered(label string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(label))
	}
}

// SetActive shows the labels of the currently active controls.
func (t *Tray) SetActive(labels []string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuActive != nil {
		t.menuActive.SetTitle(activeTitle(labels))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Output enabled"
	}
	return "○ Output disabled"
}

func outputTitle(output string) string {
	if output == "" {
		return "Output: none"
	}
	return "Output: " + output
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func activeTitle(labels []string) string {
	if len(labels) == 0 {
		return "Active: -"
	}
	return "Active: " + strings.Join(labels, ", ")
}
