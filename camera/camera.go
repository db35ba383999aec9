// Package camera provides an orbit camera for viewing the field in 3D.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// maxPitch keeps the camera off the poles, where the up vector degenerates.
const maxPitch = math.Pi/2 - 0.01

// Orbit circles a target point at a fixed distance.
type Orbit struct {
	// Target is the point the camera looks at
	Target r3.Vec

	// Yaw around the world y axis and pitch above the xz plane, in radians
	Yaw, Pitch float64

	// Distance from target, clamped to [MinDistance, MaxDistance]
	Distance                 float64
	MinDistance, MaxDistance float64

	// AutoRotate is the yaw rate in radians per second
	AutoRotate float64

	// FOVY is the vertical field of view in degrees
	FOVY float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	home orbitState
}

type orbitState struct {
	target          r3.Vec
	yaw, pitch, dst float64
}

// New creates an orbit camera looking at the origin from distance along +z,
// raised by pitch.
func New(viewportW, viewportH float32, fovy, distance, minDistance, maxDistance, pitch float64) *Orbit {
	o := &Orbit{
		Pitch:       clamp(pitch, -maxPitch, maxPitch),
		MinDistance: minDistance,
		MaxDistance: maxDistance,
		FOVY:        fovy,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
	}
	o.Distance = clamp(distance, minDistance, maxDistance)
	o.saveHome()
	return o
}

func (o *Orbit) saveHome() {
	o.home = orbitState{target: o.Target, yaw: o.Yaw, pitch: o.Pitch, dst: o.Distance}
}

// Position returns the camera position in world coordinates.
func (o *Orbit) Position() r3.Vec {
	cp := math.Cos(o.Pitch)
	offset := r3.Vec{
		X: cp * math.Sin(o.Yaw),
		Y: math.Sin(o.Pitch),
		Z: cp * math.Cos(o.Yaw),
	}
	return r3.Add(o.Target, r3.Scale(o.Distance, offset))
}

// Forward returns the unit view direction.
func (o *Orbit) Forward() r3.Vec {
	return r3.Unit(r3.Sub(o.Target, o.Position()))
}

// Update advances auto-rotation by dt seconds.
func (o *Orbit) Update(dt float64) {
	if o.AutoRotate == 0 {
		return
	}
	o.Yaw = math.Mod(o.Yaw+o.AutoRotate*dt, 2*math.Pi)
}

// Rotate changes yaw and pitch by the given angles. Pitch is clamped.
func (o *Orbit) Rotate(dYaw, dPitch float64) {
	o.Yaw = math.Mod(o.Yaw+dYaw, 2*math.Pi)
	o.Pitch = clamp(o.Pitch+dPitch, -maxPitch, maxPitch)
}

// SetDistance sets the orbit radius, clamped to min/max.
func (o *Orbit) SetDistance(d float64) {
	o.Distance = clamp(d, o.MinDistance, o.MaxDistance)
}

// ZoomBy divides the distance by factor, so factor > 1 moves closer.
func (o *Orbit) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	o.SetDistance(o.Distance / factor)
}

// Fit targets the center of b and backs off until its bounding sphere fills
// the vertical field of view. The result becomes the Reset state.
func (o *Orbit) Fit(b r3.Box) {
	o.Target = r3.Scale(0.5, r3.Add(b.Min, b.Max))
	radius := r3.Norm(r3.Sub(b.Max, b.Min)) / 2

	half := o.FOVY * math.Pi / 360
	if half > 0 && radius > 0 {
		o.SetDistance(radius / math.Sin(half))
	}
	o.saveHome()
}

// Reset restores the state from construction or the last Fit.
func (o *Orbit) Reset() {
	o.Target = o.home.target
	o.Yaw = o.home.yaw
	o.Pitch = o.home.pitch
	o.Distance = o.home.dst
}

// Resize updates viewport dimensions.
func (o *Orbit) Resize(viewportW, viewportH float32) {
	o.ViewportW = viewportW
	o.ViewportH = viewportH
}

// Aspect returns the viewport aspect ratio.
func (o *Orbit) Aspect() float64 {
	if o.ViewportH == 0 {
		return 1
	}
	return float64(o.ViewportW) / float64(o.ViewportH)
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
