package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

func litPixels(pix []byte) int {
	n := 0
	for _, b := range pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestDisplayLines_Waiting(t *testing.T) {
	lines := displayLines(sample.Acceleration, latest.Snapshot{})
	assert.Equal(t, []string{"", "Acceleration", "Waiting..."}, lines)
}

func TestDisplayLines(t *testing.T) {
	snap := latest.Snapshot{Sample: sample.Sample{X: 12.34, Y: -5, Z: 180}, Seq: 42}

	lines := displayLines(sample.Orientation, snap)
	require.Len(t, lines, 4)
	assert.Equal(t, "X:   12.3", lines[0])
	assert.Equal(t, "Y:   -5.0", lines[1])
	assert.Equal(t, "Z:  180.0", lines[2])
	assert.Equal(t, "#42", lines[3])

	lines = displayLines(sample.Acceleration, latest.Snapshot{Sample: sample.Sample{Y: 30}, Seq: 1})
	assert.Equal(t, "R:   30.0", lines[1])
}

func TestDrawLines(t *testing.T) {
	blank := drawLines(nil)
	assert.Equal(t, 128, blank.Bounds().Dx())
	assert.Equal(t, 64, blank.Bounds().Dy())
	assert.Zero(t, litPixels(blank.Pix))

	one := drawLines([]string{"X"})
	two := drawLines([]string{"X", "X"})
	assert.Positive(t, litPixels(one.Pix))
	assert.Equal(t, 2*litPixels(one.Pix), litPixels(two.Pix))

	// Lines past the bottom edge are dropped.
	many := drawLines([]string{"1", "2", "3", "4", "5", "6"})
	four := drawLines([]string{"1", "2", "3", "4"})
	assert.Equal(t, four.Pix, many.Pix)
}

type recordingBus struct {
	i2c.Bus
	addrs []uint16
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func TestFixedAddrBus(t *testing.T) {
	rec := &recordingBus{}
	bus := fixedAddrBus{Bus: rec, addr: 0x3D}

	require.NoError(t, bus.Tx(0x3C, []byte{0x00, 0xAE}, nil))
	require.NoError(t, bus.Tx(0x3C, []byte{0x40}, nil))
	assert.Equal(t, []uint16{0x3D, 0x3D}, rec.addrs)
}
