package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/trace"
)

// ScopeWidget is a custom Fyne widget that displays an oscilloscope-style voltage trace.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	// Data (protected by mu)
	mu    sync.RWMutex
	stats trace.Stats

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	// Auto-scaling
	view viewport

	// Display settings
	maxDisplayPoints int
}

// viewport is the visible data range.
type viewport struct {
	yMin, yMax float64
	xMin, xMax time.Time
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		window:           cfg.Window(),
		displaySamples:   make([]sample.Sample, 0, cfg.View.MaxPoints),
		maxDisplayPoints: cfg.View.MaxPoints,
	}
	s.view = autoScale(nil, s.window, time.Now())
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData updates the widget with a new trace snapshot.
// This should be called from the trace callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, stats trace.Stats) {
	s.mu.Lock()
	s.displaySamples = sample.DownsampleSamples(s.displaySamples, samples, s.maxDisplayPoints)
	s.stats = stats
	s.view = autoScale(s.displaySamples, s.window, time.Now())
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	s.Refresh()
}

// autoScale calculates the visible range for samples with a 10% vertical margin and at
// least one full window horizontally.
func autoScale(samples []sample.Sample, window time.Duration, now time.Time) viewport {
	if len(samples) == 0 {
		return viewport{yMin: 0, yMax: 1, xMin: now, xMax: now.Add(window)}
	}

	v := viewport{
		yMin: samples[0].Volts,
		yMax: samples[0].Volts,
		xMin: samples[0].Timestamp,
		xMax: samples[len(samples)-1].Timestamp,
	}
	for _, s := range samples {
		if s.Volts < v.yMin {
			v.yMin = s.Volts
		}
		if s.Volts > v.yMax {
			v.yMax = s.Volts
		}
	}

	span := v.yMax - v.yMin
	if span == 0 {
		span = 1.0
	}
	margin := span * 0.1
	v.yMin -= margin
	v.yMax += margin

	if v.xMax.Sub(v.xMin) < window {
		v.xMax = v.xMin.Add(window)
	}

	return v
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
