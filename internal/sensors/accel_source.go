// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors reads a locally attached MPU9250 as a sample.Source, so a
// Raspberry Pi can stand in for the micro:bit board.
package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// accelReader is the subset of *mpu9250.MPU9250 used here.
type accelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

// AccelSource turns raw accelerometer counts into pitch/roll samples.
type AccelSource struct {
	name string
	dev  accelReader
}

// NewMPU9250Source initializes an MPU9250 over SPI.
func NewMPU9250Source(spiDev, csPin string) (*AccelSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	// Calibration
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return &AccelSource{name: spiDev, dev: dev}, nil
}

// Next reads one accelerometer triple and converts it with sample.FromAccel.
func (s *AccelSource) Next() (sample.Sample, error) {
	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return sample.Sample{}, fmt.Errorf("%s accel X: %w", s.name, err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return sample.Sample{}, fmt.Errorf("%s accel Y: %w", s.name, err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return sample.Sample{}, fmt.Errorf("%s accel Z: %w", s.name, err)
	}
	return sample.FromAccel(float64(ax), float64(ay), float64(az)), nil
}
