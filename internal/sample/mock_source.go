// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sample

import (
	"math"
	"time"
)

// gravity in m/s².
const gravity = 9.8

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source that generates smooth changing
// values, shaped like the board output: pitch/roll from a simulated
// accelerometer and z = 0.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Sample, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	// Board tilting back and forth: gravity seen in the board frame.
	pitch := 20 * math.Pi / 180 * math.Sin(elapsed)
	roll := 15 * math.Pi / 180 * math.Cos(elapsed*0.7)
	ax := gravity * math.Sin(roll)
	ay := gravity * math.Sin(pitch)
	az := gravity * math.Cos(pitch) * math.Cos(roll)

	return FromAccel(ax, ay, az), nil
}
