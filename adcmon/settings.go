package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/device"
)

// showSettingsDialog displays a settings dialog with tabs for the configuration sections.
func showSettingsDialog(state *viewState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createADCTab(state),
		createViewTab(state),
		createMockTab(state),
	)

	d := dialog.NewCustom("Settings", "Close", tabs, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

// saveSettings persists the configuration and restarts the chain when needed.
func saveSettings(state *viewState, restart bool) {
	if err := state.actx.cfg.Save(state.actx.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}
	if restart {
		reconnect(state)
	}
}

// portOptions lists available ports as display names mapped to port names. The current
// port is always included.
func portOptions(ports []device.Port, current string) ([]string, map[string]string, string) {
	options := []string{}
	names := make(map[string]string)
	selected := ""

	for _, port := range ports {
		display := port.Name
		if port.Description != "" && port.Description != port.Name {
			display = fmt.Sprintf("%s (%s)", port.Name, port.Description)
		}
		options = append(options, display)
		names[display] = port.Name
		if port.Name == current {
			selected = display
		}
	}

	if selected == "" && current != "" {
		options = append(options, current)
		names[current] = current
		selected = current
	}

	return options, names, selected
}

func createSerialTab(state *viewState) *container.TabItem {
	cfg := state.actx.cfg

	ports, err := device.Ports()
	if err != nil {
		state.actx.logger.Warnw("Failed to list serial ports", "error", err)
	}
	options, names, selected := portOptions(ports, cfg.Serial.Port)

	portSelect := widget.NewSelect(options, nil)
	if selected != "" {
		portSelect.SetSelected(selected)
	}
	baudEntry := newIntEntry(cfg.Serial.BaudRate)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			baud, err := strconv.Atoi(baudEntry.Text)
			if err != nil || baud <= 0 {
				dialog.ShowError(fmt.Errorf("invalid baud rate %q", baudEntry.Text), state.window)
				return
			}

			port := names[portSelect.Selected]
			if port == "" {
				port = portSelect.Selected
			}

			changed := port != cfg.Serial.Port || baud != cfg.Serial.BaudRate
			cfg.Serial.Port = port
			cfg.Serial.BaudRate = baud
			saveSettings(state, changed && !state.actx.useMock)
		},
	}

	return container.NewTabItem("Serial", form)
}

func createADCTab(state *viewState) *container.TabItem {
	cfg := state.actx.cfg

	vrefEntry := newFloatEntry(cfg.ADC.VRef)
	averageEntry := newIntEntry(cfg.ADC.AverageSamples)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Reference (V)", Widget: vrefEntry},
			{Text: "Average Samples", Widget: averageEntry, HintText: "0 disables averaging"},
		},
		OnSubmit: func() {
			vref, err := strconv.ParseFloat(vrefEntry.Text, 64)
			if err != nil || vref <= 0 {
				dialog.ShowError(fmt.Errorf("invalid reference voltage %q", vrefEntry.Text), state.window)
				return
			}
			average, err := strconv.Atoi(averageEntry.Text)
			if err != nil || average < 0 {
				dialog.ShowError(fmt.Errorf("invalid average window %q", averageEntry.Text), state.window)
				return
			}

			cfg.ADC.VRef = vref
			cfg.ADC.AverageSamples = average
			saveSettings(state, true)
		},
	}

	return container.NewTabItem("ADC", form)
}

func createViewTab(state *viewState) *container.TabItem {
	cfg := state.actx.cfg

	windowEntry := newFloatEntry(cfg.View.WindowSeconds)
	pointsEntry := newIntEntry(cfg.View.MaxPoints)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (s)", Widget: windowEntry, HintText: "Applies after restart"},
			{Text: "Max Points", Widget: pointsEntry, HintText: "Applies after restart"},
		},
		OnSubmit: func() {
			window, err := strconv.ParseFloat(windowEntry.Text, 64)
			if err != nil || window <= 0 {
				dialog.ShowError(fmt.Errorf("invalid window %q", windowEntry.Text), state.window)
				return
			}
			points, err := strconv.Atoi(pointsEntry.Text)
			if err != nil || points <= 0 {
				dialog.ShowError(fmt.Errorf("invalid point count %q", pointsEntry.Text), state.window)
				return
			}

			cfg.View.WindowSeconds = window
			cfg.View.MaxPoints = points
			saveSettings(state, false)
		},
	}

	return container.NewTabItem("View", form)
}

func createMockTab(state *viewState) *container.TabItem {
	mock := &state.actx.cfg.Mock

	offsetEntry := newFloatEntry(mock.Offset)
	amplitudeEntry := newFloatEntry(mock.Amplitude)
	noiseEntry := newFloatEntry(mock.NoiseLevel)
	periodEntry := widget.NewEntry()
	periodEntry.SetText(mock.Period.String())
	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(mock.Interval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Offset (V)", Widget: offsetEntry},
			{Text: "Amplitude (V)", Widget: amplitudeEntry},
			{Text: "Noise (V)", Widget: noiseEntry},
			{Text: "Period", Widget: periodEntry, HintText: "e.g. 10s"},
			{Text: "Interval", Widget: intervalEntry, HintText: "e.g. 1s"},
		},
		OnSubmit: func() {
			next, err := parseMock(*mock, offsetEntry.Text, amplitudeEntry.Text, noiseEntry.Text, periodEntry.Text, intervalEntry.Text)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			*mock = next
			saveSettings(state, state.actx.useMock)
		},
	}

	return container.NewTabItem("Mock", form)
}

// parseMock validates the mock form fields on top of cur.
func parseMock(cur config.MockConfig, offset, amplitude, noise, period, interval string) (config.MockConfig, error) {
	var err error
	if cur.Offset, err = strconv.ParseFloat(offset, 64); err != nil {
		return cur, fmt.Errorf("invalid offset %q", offset)
	}
	if cur.Amplitude, err = strconv.ParseFloat(amplitude, 64); err != nil {
		return cur, fmt.Errorf("invalid amplitude %q", amplitude)
	}
	if cur.NoiseLevel, err = strconv.ParseFloat(noise, 64); err != nil || cur.NoiseLevel < 0 {
		return cur, fmt.Errorf("invalid noise level %q", noise)
	}
	if cur.Period, err = time.ParseDuration(period); err != nil || cur.Period <= 0 {
		return cur, fmt.Errorf("invalid period %q", period)
	}
	if cur.Interval, err = time.ParseDuration(interval); err != nil || cur.Interval <= 0 {
		return cur, fmt.Errorf("invalid interval %q", interval)
	}
	return cur, nil
}

func newIntEntry(v int) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(v))
	return e
}

func newFloatEntry(v float64) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(v, 'f', -1, 64))
	return e
}
