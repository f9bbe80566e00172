// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"fmt"
	"math"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// Gravity is the magnitude used to draw the accelerometer vectors.
const Gravity = 9.8

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// Quaternion is a unit rotation.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CubeView is what the cube renderer applies to its object.
type CubeView struct {
	Euler    sample.Sample `json:"euler_deg"`
	Rotation Quaternion    `json:"rotation"`
}

// Cube converts Euler angles in degrees (XYZ order: X applied first, then
// Y, then Z) into a quaternion, which avoids gimbal lock once yaw is fused.
func Cube(s sample.Sample) CubeView {
	cx, sx := math.Cos(radians(s.X)*0.5), math.Sin(radians(s.X)*0.5)
	cy, sy := math.Cos(radians(s.Y)*0.5), math.Sin(radians(s.Y)*0.5)
	cz, sz := math.Cos(radians(s.Z)*0.5), math.Sin(radians(s.Z)*0.5)

	return CubeView{
		Euler: s,
		Rotation: Quaternion{
			W: cx*cy*cz + sx*sy*sz,
			X: sx*cy*cz - cx*sy*sz,
			Y: cx*sy*cz + sx*cy*sz,
			Z: cx*cy*sz - sx*sy*cz,
		},
	}
}

// Vector3 is a 3D vector from the origin.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the vector length.
func (v Vector3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// AccelView is the accelerometer plot: gravity split per axis plus a tilt
// arrow on the unit circle.
type AccelView struct {
	PitchDeg  float64 `json:"pitch_deg"`
	RollDeg   float64 `json:"roll_deg"`
	Gravity   Vector3 `json:"gravity"`   // straight down reference
	Component Vector3 `json:"component"` // per-axis share of gravity
	Resultant Vector3 `json:"resultant"`
	TiltX     float64 `json:"tilt_x"` // arrow tip, unit circle
	TiltY     float64 `json:"tilt_y"`
}

// Accel derives the accelerometer view from a sample whose X is pitch and
// Y is roll, both in degrees.
func Accel(s sample.Sample) AccelView {
	pitch := radians(s.X)
	roll := radians(s.Y)

	c := Vector3{
		X: Gravity * math.Sin(roll),
		Y: Gravity * math.Sin(pitch),
		Z: -Gravity * math.Cos(pitch) * math.Cos(roll),
	}

	return AccelView{
		PitchDeg:  degrees(pitch),
		RollDeg:   degrees(roll),
		Gravity:   Vector3{Z: -Gravity},
		Component: c,
		Resultant: c,
		TiltX:     math.Sin(roll),
		TiltY:     math.Sin(pitch),
	}
}

// Title is the caption of the tilt plot.
func (v AccelView) Title() string {
	return fmt.Sprintf("Tilt Angles  Pitch: %.1f°, Roll: %.1f°", v.PitchDeg, v.RollDeg)
}

// Describe renders one text line for the given stream kind, used by the
// console, OLED and MQTT console consumers.
func Describe(kind sample.Kind, s sample.Sample) string {
	switch kind {
	case sample.Acceleration:
		v := Accel(s)
		return fmt.Sprintf(
			"[ACCEL] PITCH=%6.2f  ROLL=%6.2f  gx=%6.2f gy=%6.2f gz=%6.2f  |g|=%5.2f",
			v.PitchDeg, v.RollDeg, v.Component.X, v.Component.Y, v.Component.Z, v.Resultant.Norm(),
		)
	default:
		v := Cube(s)
		return fmt.Sprintf(
			"[CUBE]  X=%6.2f  Y=%6.2f  Z=%6.2f  q=(%.3f, %.3f, %.3f, %.3f)",
			s.X, s.Y, s.Z, v.Rotation.W, v.Rotation.X, v.Rotation.Y, v.Rotation.Z,
		)
	}
}
