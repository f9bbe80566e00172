package sample

import (
	"fmt"
	"math"
)

// Kind tells consumers how to interpret the three axes of a Sample.
type Kind string

const (
	// Orientation samples carry Euler angles in degrees (x=pitch, y=roll, z=yaw).
	Orientation Kind = "orientation"
	// Acceleration samples carry linear acceleration per axis.
	Acceleration Kind = "acceleration"
)

// ParseKind maps a config or URL value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Orientation, Acceleration:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown sample kind %q (want %q or %q)", s, Orientation, Acceleration)
	}
}

// Sample is one decoded (x, y, z) reading from the sensor source.
// The zero value is the "no data yet" default.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (s Sample) String() string {
	return fmt.Sprintf("x=%.2f y=%.2f z=%.2f", s.X, s.Y, s.Z)
}

// IsZero reports whether s is the default sample.
func (s Sample) IsZero() bool {
	return s == Sample{}
}

// Source is anything that can provide samples over time
// (mock generator, replay, ...).
type Source interface {
	Next() (Sample, error)
}

// epsilon keeps the tilt divisions finite when the board lies flat.
const epsilon = 1.1920929e-07

// FromAccel computes a pitch/roll orientation sample from raw accelerometer
// counts the same way the micro:bit firmware does:
//
//	pitch = atan(y / (sqrt(x² + z²) + ε))
//	roll  = atan(x / (sqrt(y² + z²) + ε))
//
// Yaw (Z) is 0 until a magnetometer is fused in.
func FromAccel(ax, ay, az float64) Sample {
	pitch := math.Atan(ay / (math.Sqrt(ax*ax+az*az) + epsilon))
	roll := math.Atan(ax / (math.Sqrt(ay*ay+az*az) + epsilon))

	return Sample{
		X: pitch * 180.0 / math.Pi,
		Y: roll * 180.0 / math.Pi,
		Z: 0,
	}
}
