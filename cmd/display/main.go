// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/inertial_receiver/internal/app"
	"github.com/relabs-tech/inertial_receiver/internal/config"
)

func main() {
	configPath := flag.String("config", "inertial_config.txt", "path to KEY=VALUE config file")
	flag.Parse()

	log.Println("starting inertial-receiver OLED display")

	// Load configuration
	if err := config.InitGlobalOrDefault(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDisplay(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
