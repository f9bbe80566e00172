// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/mpu9250"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

var _ accelReader = (*mpu9250.MPU9250)(nil)

type fakeAccel struct {
	x, y, z int16
	errY    error
}

func (f fakeAccel) GetAccelerationX() (int16, error) { return f.x, nil }
func (f fakeAccel) GetAccelerationY() (int16, error) { return f.y, f.errY }
func (f fakeAccel) GetAccelerationZ() (int16, error) { return f.z, nil }

func TestAccelSource_Next(t *testing.T) {
	// ±2g range: 16384 counts per g.
	src := &AccelSource{name: "test", dev: fakeAccel{x: 0, y: 16384, z: 0}}
	s, err := src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 90, s.X, 1e-3)
	assert.InDelta(t, 0, s.Y, 1e-9)
	assert.Equal(t, 0.0, s.Z)

	src.dev = fakeAccel{x: 1000, y: -2000, z: 16000}
	s, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, sample.FromAccel(1000, -2000, 16000), s)
}

func TestAccelSource_ReadError(t *testing.T) {
	src := &AccelSource{name: "test", dev: fakeAccel{errY: errors.New("spi timeout")}}
	_, err := src.Next()
	assert.ErrorContains(t, err, "accel Y")
}
