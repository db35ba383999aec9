package viewer

import rl "github.com/gen2brain/raylib-go/raylib"

// Orbit sensitivity in radians per pixel and zoom factor per wheel notch.
const (
	dragSpeed = 0.005
	wheelZoom = 0.1
)

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.scene.TogglePause()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.tunables.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPerf = !v.showPerf
	}

	v.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h

	v.camera.Resize(w, h)
	v.scene.Resize()
}

// handleCameraInput processes orbit and zoom controls.
func (v *Viewer) handleCameraInput() {
	mouse := rl.GetMousePosition()
	overPanel := v.tunables.Contains(mouse)

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !overPanel {
		v.dragging = true
		v.lastMouse = mouse
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		v.dragging = false
	}
	if v.dragging {
		dx := float64(mouse.X - v.lastMouse.X)
		dy := float64(mouse.Y - v.lastMouse.Y)
		v.camera.Rotate(-dx*dragSpeed, dy*dragSpeed)
		v.lastMouse = mouse
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !overPanel {
		v.camera.ZoomBy(1 + float64(wheel)*wheelZoom)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyR) || rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}
