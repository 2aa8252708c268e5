package scope

import (
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/goadc/pkg/sample"
	"github.com/itohio/goadc/pkg/trace"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	traceColor  = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
	statsColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	plotMargins = struct{ left, right, top, bottom float32 }{60, 20, 20, 40}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	lastSize   fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	stats := r.scope.stats
	view := r.scope.view
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	plot := plotArea{
		x:      plotMargins.left,
		y:      plotMargins.top,
		width:  size.Width - plotMargins.left - plotMargins.right,
		height: size.Height - plotMargins.top - plotMargins.bottom,
		view:   view,
	}

	r.drawGrid(plot)
	if len(samples) > 1 {
		r.drawTrace(plot, samples)
	}
	if stats.Count > 0 {
		r.drawStats(plot, stats)
	}
}

// plotArea maps data coordinates to widget coordinates.
type plotArea struct {
	x, y, width, height float32
	view               viewport
}

func (p plotArea) pos(t time.Time, v float64) fyne.Position {
	xSpan := p.view.xMax.Sub(p.view.xMin).Seconds()
	x := p.x + float32(t.Sub(p.view.xMin).Seconds()/xSpan)*p.width
	y := p.y + p.height - float32((v-p.view.yMin)/(p.view.yMax-p.view.yMin))*p.height
	return fyne.NewPos(x, y)
}

// drawGrid draws the oscilloscope-style grid with voltage and time labels.
func (r *scopeRenderer) drawGrid(p plotArea) {
	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.height/numHLines
		r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y), gridColor, 1)

		value := p.view.yMax - float64(i)*(p.view.yMax-p.view.yMin)/numHLines
		text := canvas.NewText(formatVolts(value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const numVLines = 10
	span := p.view.xMax.Sub(p.view.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.width/numVLines
		r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height), gridColor, 1)

		offset := span * time.Duration(i) / numVLines
		text := canvas.NewText(formatSeconds(offset), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws the voltage curve as connected segments.
func (r *scopeRenderer) drawTrace(p plotArea, samples []sample.Sample) {
	prev := p.pos(samples[0].Timestamp, samples[0].Volts)
	for _, s := range samples[1:] {
		cur := p.pos(s.Timestamp, s.Volts)
		r.addLine(prev, cur, traceColor, 1.5)
		prev = cur
	}
}

// drawStats draws the latest value and window statistics in the top left corner.
func (r *scopeRenderer) drawStats(p plotArea, stats trace.Stats) {
	text := canvas.NewText(formatStats(stats), statsColor)
	text.TextSize = 11
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(p.x+10, p.y+10))
	r.objects = append(r.objects, text)
}

func (r *scopeRenderer) addLine(from, to fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatVolts(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64) + "V"
}

func formatSeconds(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}

func formatStats(stats trace.Stats) string {
	return strconv.FormatUint(uint64(stats.Latest.Raw), 10) + " (" + formatVolts(stats.Latest.Volts) + ")" +
		"  min " + formatVolts(stats.Min) +
		"  max " + formatVolts(stats.Max) +
		"  mean " + formatVolts(stats.Mean)
}
