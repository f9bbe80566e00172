// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/bridge"
	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
	"github.com/relabs-tech/inertial_receiver/internal/sensors"
)

// emulateBoard writes one JSON line per tick to w, formatted the way the
// board prints to its serial port.
func emulateBoard(ctx context.Context, w io.Writer, src sample.Source, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			log.Printf("error from sample source: %v", err)
			continue
		}
		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("json marshal error: %v", err)
			continue
		}
		if _, err := w.Write(append(payload, '\r', '\n')); err != nil {
			return fmt.Errorf("board write: %w", err)
		}
	}
}

// runProducer pipes an emulated board into a bridge.
func runProducer(ctx context.Context, bcfg bridge.Config, src sample.Source, interval time.Duration) error {
	b, err := bridge.New(bcfg)
	if err != nil {
		return err
	}
	defer b.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		pw.CloseWithError(emulateBoard(ctx, pw, src, interval))
	}()

	return b.Run(ctx, pr)
}

// producerBridgeConfig is bridgeConfig with both receivers fed when no
// BRIDGE_* target is enabled.
func producerBridgeConfig(cfg config.Config) (bridge.Config, error) {
	if !cfg.BridgeOrientation && !cfg.BridgeAccel {
		cfg.BridgeOrientation = true
		cfg.BridgeAccel = true
	}
	return bridgeConfig(&cfg)
}

// RunMockProducer feeds generated samples to the receivers without a
// board attached.
func RunMockProducer(ctx context.Context, interval time.Duration) error {
	log.Println("starting inertial-receiver mock producer")

	bcfg, err := producerBridgeConfig(*config.Get())
	if err != nil {
		return err
	}
	return runProducer(ctx, bcfg, sample.NewMockSource(), interval)
}

// RunIMUProducer reads a local MPU9250 every IMU_SAMPLE_INTERVAL and feeds
// the tilt it computes to the receivers.
func RunIMUProducer(ctx context.Context) error {
	log.Println("starting inertial-receiver IMU producer")
	cfg := config.Get()

	src, err := sensors.NewMPU9250Source(cfg.IMUSPIDevice, cfg.IMUCSPin)
	if err != nil {
		return err
	}
	log.Printf("using MPU9250 on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)

	bcfg, err := producerBridgeConfig(*cfg)
	if err != nil {
		return err
	}
	return runProducer(ctx, bcfg, src, config.Millis(cfg.IMUSampleInterval))
}
