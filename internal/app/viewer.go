// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/render"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// RunCubeViewer listens on the orientation port and prints the cube
// rotation at CUBE_RENDER_INTERVAL until ctx is cancelled.
func RunCubeViewer(ctx context.Context) error {
	cfg := config.Get()
	return runViewer(ctx, cfg, sample.Orientation, config.Millis(cfg.CubeRenderInterval))
}

// RunAccelViewer listens on the acceleration port and prints the gravity
// components at ACCEL_RENDER_INTERVAL until ctx is cancelled.
func RunAccelViewer(ctx context.Context) error {
	cfg := config.Get()
	return runViewer(ctx, cfg, sample.Acceleration, config.Millis(cfg.AccelRenderInterval))
}

func runViewer(ctx context.Context, cfg *config.Config, kind sample.Kind, interval time.Duration) error {
	rs, err := startReceivers(ctx, cfg, kind)
	if err != nil {
		return err
	}
	defer stopReceivers(rs)

	loop := &render.Loop{
		Name:     string(kind),
		Interval: interval,
		Source:   rs[kind],
		Sink:     render.ConsoleSink{W: os.Stdout, Kind: kind},
	}
	log.Printf("%s viewer: rendering every %v", kind, interval)
	return loop.Run(ctx)
}
