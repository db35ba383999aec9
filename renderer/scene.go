package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/plexus/camera"
	"github.com/pthm-cable/plexus/cluster"
	"github.com/pthm-cable/plexus/config"
)

const (
	pointRadius = 2
	plinthGap   = 20 // space between a tower's lowest box and its plinth
	plinthDepth = 6
	labelSize   = 14
	baseSize    = 18
	alphaSteps  = 64
)

// SceneRenderer draws a cluster field with raylib.
type SceneRenderer struct {
	palette config.Palette

	pointColor rl.Color
	boxColor   rl.Color
	labelColor rl.Color
	background rl.Color

	// Line shades indexed by quantized edge alpha, rebuilt when opacity changes.
	lineShades  [alphaSteps + 1]rl.Color
	lineOpacity float64
}

// NewSceneRenderer creates a renderer for the given palette.
func NewSceneRenderer(p config.Palette) *SceneRenderer {
	r := &SceneRenderer{
		palette:     p,
		pointColor:  toRL(p.Points, 1),
		boxColor:    toRL(p.Boxes, 1),
		labelColor:  toRL(p.Labels, 1),
		background:  toRL(p.Background, 1),
		lineOpacity: -1,
	}
	return r
}

// Background returns the clear color.
func (r *SceneRenderer) Background() rl.Color {
	return r.background
}

// Camera converts an orbit camera to a raylib camera.
func Camera(o *camera.Orbit) rl.Camera3D {
	return rl.Camera3D{
		Position:   vec(o.Position()),
		Target:     vec(o.Target),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       float32(o.FOVY),
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the field in 3D. Must be called between BeginMode3D and EndMode3D.
func (r *SceneRenderer) Draw(f *cluster.Field, t config.Tunables) {
	r.ensureShades(t.LineOpacity)

	boxFill := rl.Fade(r.boxColor, float32(t.MeshOpacity))
	for i := 0; i < f.Len(); i++ {
		region := f.Region(i)
		center := vec(region.Anchor)
		size := vec(region.Size())

		if t.MeshOpacity > 0 {
			rl.DrawCubeV(center, size, boxFill)
		}
		rl.DrawCubeWiresV(center, size, r.boxColor)

		if f.Label(i).Base != "" {
			r.drawPlinth(region.Bounds())
		}

		frame := f.Frame(i)
		if t.ShowLines {
			r.drawLines(frame.Lines, frame.Colors)
		}
		if t.ShowDots {
			r.drawPoints(frame.Points)
		}
	}

	r.drawLinks(f, t.LinkOpacity)
}

func (r *SceneRenderer) drawPlinth(b r3.Box) {
	top := b.Min.Y - plinthGap
	center := rl.NewVector3(
		float32((b.Min.X+b.Max.X)/2),
		float32(top-plinthDepth/2),
		float32((b.Min.Z+b.Max.Z)/2),
	)
	size := rl.NewVector3(float32(b.Max.X-b.Min.X)*1.5, plinthDepth, float32(b.Max.Z-b.Min.Z)*1.5)
	rl.DrawCubeV(center, size, r.labelColor)
}

// drawLines draws packed segments. Every vertex of a segment carries the same
// alpha, so the first color component of each segment is enough.
func (r *SceneRenderer) drawLines(lines, colors []float32) {
	for k := 0; k+6 <= len(lines); k += 6 {
		a := rl.NewVector3(lines[k], lines[k+1], lines[k+2])
		b := rl.NewVector3(lines[k+3], lines[k+4], lines[k+5])
		rl.DrawLine3D(a, b, r.shade(colors[k]))
	}
}

func (r *SceneRenderer) drawPoints(points []float32) {
	for k := 0; k+3 <= len(points); k += 3 {
		p := rl.NewVector3(points[k], points[k+1], points[k+2])
		rl.DrawSphereEx(p, pointRadius, 4, 6, r.pointColor)
	}
}

func (r *SceneRenderer) drawLinks(f *cluster.Field, opacity float64) {
	if opacity <= 0 {
		return
	}
	c := toRL(r.palette.Links, opacity)
	for _, l := range f.Links() {
		rl.DrawLine3D(vec(f.Anchor(l.A)), vec(f.Anchor(l.B)), c)
	}
}

// DrawLabels draws cluster and base labels in screen space.
// Must be called after EndMode3D.
func (r *SceneRenderer) DrawLabels(f *cluster.Field, cam rl.Camera3D) {
	forward := rl.Vector3Normalize(rl.Vector3Subtract(cam.Target, cam.Position))

	for i := 0; i < f.Len(); i++ {
		label := f.Label(i)
		if label.Text == "" && label.Base == "" {
			continue
		}
		b := f.Region(i).Bounds()

		if label.Text != "" {
			// Front lower left corner of the box.
			at := rl.NewVector3(float32(b.Min.X), float32(b.Min.Y), float32(b.Max.Z))
			r.drawLabel(label.Text, at, labelSize, cam, forward)
		}
		if label.Base != "" {
			at := rl.NewVector3(float32(b.Min.X), float32(b.Min.Y-plinthGap-plinthDepth), float32(b.Max.Z))
			r.drawLabel(label.Base, at, baseSize, cam, forward)
		}
	}
}

func (r *SceneRenderer) drawLabel(text string, at rl.Vector3, size int32, cam rl.Camera3D, forward rl.Vector3) {
	// Skip points behind the camera; their projection lands mirrored on screen.
	if rl.Vector3DotProduct(rl.Vector3Subtract(at, cam.Position), forward) <= 0 {
		return
	}
	p := rl.GetWorldToScreen(at, cam)
	rl.DrawText(text, int32(p.X), int32(p.Y), size, r.labelColor)
}

// ensureShades rebuilds the line lookup for a new opacity.
func (r *SceneRenderer) ensureShades(opacity float64) {
	if opacity == r.lineOpacity {
		return
	}
	for i := range r.lineShades {
		alpha := float64(i) / alphaSteps
		r.lineShades[i] = lineShade(r.palette.Background, r.palette.Lines, alpha, opacity)
	}
	r.lineOpacity = opacity
}

func (r *SceneRenderer) shade(alpha float32) rl.Color {
	i := int(math.Round(float64(alpha) * alphaSteps))
	if i < 0 {
		i = 0
	} else if i > alphaSteps {
		i = alphaSteps
	}
	return r.lineShades[i]
}

// lineShade blends from background to line color by alpha.
func lineShade(bg, line colorful.Color, alpha, opacity float64) rl.Color {
	return toRL(bg.BlendRgb(line, alpha).Clamped(), opacity*alpha)
}

func toRL(c colorful.Color, alpha float64) rl.Color {
	cr, cg, cb := c.RGB255()
	a := math.Max(0, math.Min(1, alpha))
	return rl.Color{R: cr, G: cg, B: cb, A: uint8(math.Round(a * 255))}
}

func vec(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}
