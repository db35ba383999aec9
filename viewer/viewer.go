// Package viewer draws a scene in a raylib window and maps input onto the
// orbit camera and the tunables.
package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plexus/camera"
	"github.com/pthm-cable/plexus/renderer"
	"github.com/pthm-cable/plexus/scene"
	"github.com/pthm-cable/plexus/ui"
)

const (
	panelWidth = 260
	controls   = "[Drag] orbit  [Wheel] zoom  [Space] pause  [H] panels  [R] reset view  [F11] fullscreen"
)

// Viewer holds graphics state for one scene. The raylib window must be open
// before New is called.
type Viewer struct {
	scene *scene.Scene

	camera   *camera.Orbit
	renderer *renderer.SceneRenderer

	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	tunables  *ui.TunablesPanel
	stats     *ui.Renderer
	statsDesc ui.PanelDescriptor

	title     string
	showPerf  bool
	dragging  bool
	lastMouse rl.Vector2

	screenWidth, screenHeight float32
}

// New creates a viewer for s and frames the field in the camera.
func New(s *scene.Scene, title string) *Viewer {
	cfg := s.Config()
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())

	orbit := camera.New(w, h,
		cfg.Camera.FOVY,
		cfg.Camera.Distance,
		cfg.Camera.MinDistance,
		cfg.Camera.MaxDistance,
		cfg.Camera.Pitch,
	)
	orbit.AutoRotate = cfg.Camera.AutoRotate
	orbit.Fit(s.Field().Bounds())

	maxParticles := 0
	f := s.Field()
	for i := 0; i < f.Len(); i++ {
		maxParticles = max(maxParticles, f.System(i).Capacity())
	}

	v := &Viewer{
		scene:        s,
		camera:       orbit,
		renderer:     renderer.NewSceneRenderer(cfg.Derived.Palette),
		hud:          ui.NewHUD(),
		perfPanel:    ui.NewPerfPanel(10, 80),
		tunables:     ui.NewTunablesPanel(int32(w)-panelWidth-10, 10, panelWidth, cfg.Engine, maxParticles),
		stats:        ui.NewRenderer(),
		statsDesc:    ui.FieldStatsPanel(panelWidth),
		title:        title,
		screenWidth:  w,
		screenHeight: h,
	}
	return v
}

// Update handles input, advances the scene and draws the frame.
func (v *Viewer) Update() {
	v.handleInput()
	v.camera.Update(float64(rl.GetFrameTime()))
	v.scene.Update(v.draw)
}

// draw renders one frame.
func (v *Viewer) draw() {
	v.scene.Perf().RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(v.renderer.Background())

	cam := renderer.Camera(v.camera)
	f := v.scene.Field()
	t := v.scene.Tunables()

	rl.BeginMode3D(cam)
	v.renderer.Draw(f, *t)
	rl.EndMode3D()

	v.renderer.DrawLabels(f, cam)
	v.drawUI()

	rl.EndDrawing()
}

// drawUI renders the HUD and panels over the scene.
func (v *Viewer) drawUI() {
	v.hud.Draw(ui.HUDData{
		Title:    v.title,
		Frame:    v.scene.Frame(),
		FPS:      rl.GetFPS(),
		Paused:   v.scene.Paused(),
		Parallel: v.scene.Field().Parallel(),
	})

	if v.showPerf {
		v.perfPanel.Draw(v.scene.Perf().Stats())
	}

	if v.tunables.IsVisible() {
		x := int32(v.screenWidth) - panelWidth - 10
		bottom := v.stats.DrawPanelDescriptor(x, 10, v.statsDesc, v.scene.LastStats())
		v.tunables.SetPosition(x, bottom+10)
		v.tunables.Draw(v.scene.Tunables())
	}

	v.hud.DrawControls(int32(v.screenHeight), controls)
}
