package app

import (
	"context"
	"fmt"
	"image"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/render"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

const (
	oledWidth   = 128
	oledHeight  = 64
	lineSpacing = 13 // basicfont.Face7x13 height
)

// displayLines is the text shown on the OLED for one snapshot.
func displayLines(kind sample.Kind, snap latest.Snapshot) []string {
	title := "Orientation"
	if kind == sample.Acceleration {
		title = "Acceleration"
	}
	if snap.Seq == 0 {
		return []string{"", title, "Waiting..."}
	}

	s := snap.Sample
	if kind == sample.Acceleration {
		v := render.Accel(s)
		return []string{
			fmt.Sprintf("P: %6.1f", v.PitchDeg),
			fmt.Sprintf("R: %6.1f", v.RollDeg),
			fmt.Sprintf("gz:%6.2f", v.Component.Z),
			fmt.Sprintf("#%d", snap.Seq),
		}
	}
	return []string{
		fmt.Sprintf("X: %6.1f", s.X),
		fmt.Sprintf("Y: %6.1f", s.Y),
		fmt.Sprintf("Z: %6.1f", s.Z),
		fmt.Sprintf("#%d", snap.Seq),
	}
}

// drawLines renders up to four lines of text into a 128x64 1-bit frame.
func drawLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if (i+1)*lineSpacing > oledHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineSpacing)
		drawer.DrawString(line)
	}
	return img
}

// fixedAddrBus sends every transaction to addr. The ssd1306 driver always
// talks to 0x3C.
type fixedAddrBus struct {
	i2c.Bus
	addr uint16
}

func (b fixedAddrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// oledSink draws the current snapshot of src on an SSD1306.
type oledSink struct {
	dev  *ssd1306.Dev
	kind sample.Kind
	src  snapshotter
}

func (o *oledSink) Render(sample.Sample) error {
	img := drawLines(displayLines(o.kind, o.src.Snapshot()))
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// RunDisplay receives the stream selected by DISPLAY_CONTENT and shows it
// on the SSD1306 OLED at DISPLAY_I2C_ADDR.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()
	kind := cfg.DisplayContent

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(fixedAddrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	splash := drawLines([]string{"Inertial", "Receiver", string(kind)})
	if err := dev.Draw(dev.Bounds(), splash, image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	rs, err := startReceivers(ctx, cfg, kind)
	if err != nil {
		return err
	}
	defer stopReceivers(rs)

	loop := &render.Loop{
		Name:     "display",
		Interval: config.Millis(cfg.DisplayUpdateInterval),
		Source:   rs[kind],
		Sink:     &oledSink{dev: dev, kind: kind, src: rs[kind]},
	}
	log.Println("display: starting update loop")
	err = loop.Run(ctx)

	if herr := dev.Halt(); herr != nil {
		log.Printf("display: halt: %v", herr)
	}
	return err
}
