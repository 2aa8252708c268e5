package main

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goadc/pkg/device"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/scope"
	"github.com/itohio/goadc/pkg/trace"
)

// ~60 FPS
const updateInterval = 16 * time.Millisecond

// viewChain tracks the running pipeline for graceful shutdown.
type viewChain struct {
	device device.Device
	done   chan struct{} // Closed when the trace goroutine exits
}

// viewState holds the window state.
type viewState struct {
	actx        *appContext
	trace       *trace.Trace
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	chain       *viewChain // nil if not connected

	throttle throttle
}

// throttle admits at most one call per interval.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (t *throttle) allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

func runView(actx *appContext) error {
	application := app.NewWithID("com.itohio.goadc")

	window := application.NewWindow("ADC Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &viewState{
		actx:        actx,
		trace:       trace.New(actx.cfg),
		scopeWidget: scope.New(actx.cfg),
		window:      window,
		throttle:    throttle{interval: updateInterval},
	}

	// Registered once; the trace outlives reconnects
	state.trace.OnUpdate(func(samples []sample.Sample, stats trace.Stats) {
		if !state.throttle.allow(time.Now()) {
			return
		}
		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, stats)
		})
	})

	window.SetContent(container.NewBorder(createToolbar(state), nil, nil, nil, state.scopeWidget))
	window.SetOnClosed(func() {
		closeViewChain(state.chain)
		state.chain = nil
	})
	window.ShowAndRun()

	return nil
}

// createToolbar creates the toolbar with the Connect and Settings buttons.
func createToolbar(state *viewState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewHBox(state.connectBtn, settingsBtn)
}

// closeViewChain closes the device and waits for the trace to drain.
func closeViewChain(chain *viewChain) {
	if chain == nil {
		return
	}
	if err := chain.device.Close(); err != nil {
		fyne.LogError("failed to close device", err)
	}
	<-chain.done
}

// handleConnect toggles the connection.
func handleConnect(state *viewState) {
	if state.chain != nil {
		closeViewChain(state.chain)
		state.chain = nil
		state.connectBtn.SetText("Connect")
		return
	}

	cfg := state.actx.cfg
	logger := state.actx.logger
	dev := openDevice(cfg, state.actx.useMock, logger)

	stream, err := startPipeline(dev, cfg, logger)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", sourceName(cfg, state.actx.useMock), err), state.window)
		return
	}

	state.trace.ResetShutdown()
	done := make(chan struct{})
	go func() {
		defer close(done)
		state.trace.Process(stream)
	}()

	state.chain = &viewChain{device: dev, done: done}
	state.connectBtn.SetText("Disconnect")
}

// reconnect restarts a running chain so new settings take effect.
func reconnect(state *viewState) {
	if state.chain == nil {
		return
	}
	handleConnect(state)
	handleConnect(state)
}
