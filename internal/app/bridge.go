// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/inertial_receiver/internal/bridge"
	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/decode"
)

// bridgeConfig maps the BRIDGE_* keys onto a bridge.Config.
func bridgeConfig(cfg *config.Config) (bridge.Config, error) {
	if err := cfg.ValidateBridge(); err != nil {
		return bridge.Config{}, err
	}

	var targets []bridge.Target
	if cfg.BridgeOrientation {
		targets = append(targets, bridge.Target{
			Name: "orientation",
			Addr: bridgeAddr(cfg.BridgeHost, cfg.OrientationPort),
		})
	}
	if cfg.BridgeAccel {
		targets = append(targets, bridge.Target{
			Name: "acceleration",
			Addr: bridgeAddr(cfg.BridgeHost, cfg.AccelPort),
		})
	}

	return bridge.Config{
		Targets:       targets,
		RetryInterval: config.Millis(cfg.BridgeRetryInterval),
		AppendNewline: cfg.Framing == decode.FramingLine,
		Codec:         cfg.Codec,
	}, nil
}

func bridgeAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// RunBridge opens BRIDGE_SERIAL_PORT and forwards every valid line the
// board prints to the configured receivers until ctx is cancelled.
func RunBridge(ctx context.Context) error {
	cfg := config.Get()

	bcfg, err := bridgeConfig(cfg)
	if err != nil {
		return err
	}

	serialOpts := serial.OpenOptions{
		PortName:              cfg.BridgeSerialPort,
		BaudRate:              uint(cfg.BridgeBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", cfg.BridgeSerialPort, err)
	}
	// Closing the port is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()
	defer port.Close()
	log.Printf("bridge: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	b, err := bridge.New(bcfg)
	if err != nil {
		return err
	}
	defer b.Close()

	err = b.Run(ctx, port)
	stats := b.Stats()
	log.Printf("bridge: stopped (forwarded=%d invalid=%d reconnects=%d)", stats.Forwarded, stats.Invalid, stats.Reconnects)
	return err
}
