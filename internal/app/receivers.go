// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/decode"
	"github.com/relabs-tech/inertial_receiver/internal/receiver"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// streamAddr returns the listen address configured for kind.
func streamAddr(cfg *config.Config, kind sample.Kind) string {
	if kind == sample.Acceleration {
		return cfg.AccelAddr()
	}
	return cfg.OrientationAddr()
}

// newReceiver builds a receiver for one stream from the global settings.
func newReceiver(cfg *config.Config, kind sample.Kind, opts ...receiver.Option) (*receiver.Receiver, error) {
	dec, err := decode.ForCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	rcfg := receiver.Config{
		Name:           string(kind),
		Address:        streamAddr(cfg, kind),
		PollInterval:   config.Millis(cfg.AcceptPollInterval),
		ErrorBackoff:   config.Millis(cfg.ErrorBackoff),
		ReadBufferSize: cfg.ReadBufferSize,
		ReadTimeout:    config.Millis(cfg.ReadTimeout),
		Framing:        cfg.Framing,
	}
	return receiver.New(rcfg, append([]receiver.Option{receiver.WithDecoder(dec)}, opts...)...), nil
}

// startReceivers starts one receiver per kind. If any fails to bind the
// ones already running are stopped.
func startReceivers(ctx context.Context, cfg *config.Config, kinds ...sample.Kind) (map[sample.Kind]*receiver.Receiver, error) {
	started := make(map[sample.Kind]*receiver.Receiver, len(kinds))
	for _, kind := range kinds {
		r, err := newReceiver(cfg, kind)
		if err == nil {
			err = r.Start(ctx)
		}
		if err != nil {
			stopReceivers(started)
			return nil, fmt.Errorf("%s receiver: %w", kind, err)
		}
		started[kind] = r
	}
	return started, nil
}

func stopReceivers(rs map[sample.Kind]*receiver.Receiver) {
	for kind, r := range rs {
		if err := r.Stop(); err != nil {
			log.Printf("%s: stop: %v", kind, err)
		}
	}
}
