package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plexus/config"
)

// Slider ranges.
const (
	maxMinDistance    = 300
	maxConnectionsCap = 30
	maxLinkThreshold  = 1500
)

// TunablesPanel edits a Tunables value with raygui controls.
type TunablesPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool

	defaults     config.Tunables
	maxParticles int
}

// NewTunablesPanel creates a panel. defaults is what Reset restores;
// maxParticles bounds the draw range slider.
func NewTunablesPanel(x, y, width int32, defaults config.Tunables, maxParticles int) *TunablesPanel {
	return &TunablesPanel{
		renderer:     NewRenderer(),
		x:            x,
		y:            y,
		width:        width,
		visible:      true,
		defaults:     defaults,
		maxParticles: maxParticles,
	}
}

// SetPosition updates the panel position.
func (p *TunablesPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Toggle switches panel visibility.
func (p *TunablesPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// IsVisible returns whether the panel is shown.
func (p *TunablesPanel) IsVisible() bool {
	return p.visible
}

// Contains reports whether a screen point is over the panel.
func (p *TunablesPanel) Contains(pt rl.Vector2) bool {
	if !p.visible {
		return false
	}
	return rl.CheckCollisionPointRec(pt, p.bounds())
}

func (p *TunablesPanel) bounds() rl.Rectangle {
	r := p.renderer
	rows := 9*2 + 3 + 2
	h := int32(rows)*r.Theme.LineHeight + r.Theme.Padding*2 + 60
	return rl.Rectangle{X: float32(p.x), Y: float32(p.y), Width: float32(p.width), Height: float32(h)}
}

// Draw renders the panel and applies edits to t. Returns true if t changed.
func (p *TunablesPanel) Draw(t *config.Tunables) bool {
	if !p.visible {
		return false
	}

	r := p.renderer
	b := p.bounds()
	r.DrawPanel(p.x, p.y, p.width, int32(b.Height))

	before := *t
	x := float32(p.x + r.Theme.Padding)
	y := float32(p.y + r.Theme.Padding)
	sliderW := float32(p.width) - 2*float32(r.Theme.Padding) - 50

	rl.DrawText("Parameters", int32(x), int32(y), 16, rl.White)
	y += 24

	slider := func(label, format string, value, lo, hi float32) float32 {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		y += float32(r.Theme.LineHeight)
		v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderW, Height: 14}, "", "", value, lo, hi)
		rl.DrawText(fmt.Sprintf(format, v), int32(x+sliderW+8), int32(y), r.Theme.FontSize, r.Theme.ValueColor)
		y += float32(r.Theme.LineHeight) + 4
		return v
	}
	check := func(label string, checked bool) bool {
		v := gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, label, checked)
		y += float32(r.Theme.LineHeight) + 4
		return v
	}

	// Values are written back only when the slider moved.
	setFloat := func(dst *float64, v float32) {
		if v != float32(*dst) {
			*dst = float64(v)
		}
	}
	setInt := func(dst *int, v float32) {
		*dst = int(v + 0.5)
	}

	setFloat(&t.MinDistance, slider("Min distance", "%.0f", float32(t.MinDistance), 0, maxMinDistance))
	t.LimitConnections = check("Limit connections", t.LimitConnections)
	setInt(&t.MaxConnections, slider("Max connections", "%.0f", float32(t.MaxConnections), 0, maxConnectionsCap))
	setFloat(&t.LinkThreshold, slider("Link threshold", "%.0f", float32(t.LinkThreshold), 0, maxLinkThreshold))
	if p.maxParticles > 1 {
		setInt(&t.ActiveParticles, slider("Particles (0 = all)", "%.0f", float32(t.ActiveParticles), 0, float32(p.maxParticles)))
	}

	t.ShowDots = check("Show dots", t.ShowDots)
	t.ShowLines = check("Show lines", t.ShowLines)
	setFloat(&t.LineOpacity, slider("Line opacity", "%.2f", float32(t.LineOpacity), 0, 1))
	setFloat(&t.MeshOpacity, slider("Mesh opacity", "%.2f", float32(t.MeshOpacity), 0, 1))
	setFloat(&t.LinkOpacity, slider("Link opacity", "%.2f", float32(t.LinkOpacity), 0, 1))

	if gui.Button(rl.Rectangle{X: x, Y: y + 4, Width: 100, Height: 24}, "Reset") {
		*t = p.defaults
	}

	return *t != before
}
