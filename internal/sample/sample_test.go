package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAccel_Flat(t *testing.T) {
	s := FromAccel(0, 0, 16384)
	assert.InDelta(t, 0, s.X, 1e-9)
	assert.InDelta(t, 0, s.Y, 1e-9)
	assert.Equal(t, 0.0, s.Z)
}

func TestFromAccel_Tilted(t *testing.T) {
	// Nose straight up: all of gravity on Y.
	s := FromAccel(0, 16384, 0)
	assert.InDelta(t, 90, s.X, 1e-3)
	assert.InDelta(t, 0, s.Y, 1e-9)

	// 45° roll.
	s = FromAccel(1, 0, 1)
	assert.InDelta(t, 0, s.X, 1e-9)
	assert.InDelta(t, 45, s.Y, 1e-3)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("orientation")
	require.NoError(t, err)
	assert.Equal(t, Orientation, k)

	k, err = ParseKind("acceleration")
	require.NoError(t, err)
	assert.Equal(t, Acceleration, k)

	_, err = ParseKind("gyro")
	assert.Error(t, err)
}

func TestSampleIsZero(t *testing.T) {
	assert.True(t, Sample{}.IsZero())
	assert.False(t, Sample{Z: 0.1}.IsZero())
}

func TestMockSource(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start

	m := &mockSource{start: start, now: func() time.Time { return now }}
	s, err := m.Next()
	require.NoError(t, err)
	// t=0: pitch 0, roll 15°.
	assert.InDelta(t, 0, s.X, 1e-6)
	assert.InDelta(t, 15, s.Y, 1e-6)
	assert.Equal(t, 0.0, s.Z)

	now = start.Add(2 * time.Second)
	s, err = m.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Z)
	assert.True(t, s.X >= -20 && s.X <= 20)
	assert.True(t, s.Y >= -15 && s.Y <= 15)
}
