// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render drives fixed-rate consumers of the latest sample.
package render

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// Source provides the current sample without blocking.
type Source interface {
	Latest() sample.Sample
}

// SourceFunc adapts a function to Source.
type SourceFunc func() sample.Sample

func (f SourceFunc) Latest() sample.Sample { return f() }

// Sink draws one sample.
type Sink interface {
	Render(s sample.Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(s sample.Sample) error

func (f SinkFunc) Render(s sample.Sample) error { return f(s) }

// Loop reads Source once per Interval and hands the sample to Sink. It
// keeps running with the zero sample when nothing has arrived yet.
type Loop struct {
	Name     string
	Interval time.Duration
	Source   Source
	Sink     Sink
	Logf     func(format string, v ...any)
}

// Run blocks until ctx is cancelled. Sink errors are logged, not fatal.
func (l *Loop) Run(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("render %s: interval must be positive, got %v", l.Name, l.Interval)
	}
	if l.Source == nil || l.Sink == nil {
		return fmt.Errorf("render %s: source and sink are required", l.Name)
	}
	logf := l.Logf
	if logf == nil {
		logf = log.Printf
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Sink.Render(l.Source.Latest()); err != nil {
				logf("render %s: %v", l.Name, err)
			}
		}
	}
}

// ConsoleSink prints one line per frame.
type ConsoleSink struct {
	W    io.Writer
	Kind sample.Kind
}

func (c ConsoleSink) Render(s sample.Sample) error {
	_, err := fmt.Fprintln(c.W, Describe(c.Kind, s))
	return err
}
