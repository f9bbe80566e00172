// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bridge forwards newline-terminated readings from the board's
// serial port to the orientation and acceleration receivers.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/decode"
)

const (
	DefaultRetryInterval = 3 * time.Second
	serialBufferSize     = 1000
)

// Target is one receiver the bridge writes to.
type Target struct {
	Name string
	Addr string
}

// Config contains configuration options for a Bridge.
type Config struct {
	Targets       []Target
	RetryInterval time.Duration

	// AppendNewline terminates every forwarded message with '\n' for
	// receivers running with line framing.
	AppendNewline bool
	// Codec is what the receivers decode. NMEA targets get every reading
	// re-encoded as a $PXYZ sentence.
	Codec decode.Codec

	MaxLine int
	Logf    func(format string, v ...any)
	Dial    func(ctx context.Context, addr string) (net.Conn, error)
}

// Stats are cumulative bridge counters.
type Stats struct {
	Forwarded  uint64 `json:"forwarded"`
	Invalid    uint64 `json:"invalid"`
	Reconnects uint64 `json:"reconnects"`
}

type target struct {
	Target
	conn net.Conn
}

// Bridge owns one TCP connection per target. It is not safe for concurrent
// use; Run is the only writer.
type Bridge struct {
	cfg     Config
	logf    func(format string, v ...any)
	dial    func(ctx context.Context, addr string) (net.Conn, error)
	targets []*target
	framer  *decode.Framer

	forwarded  atomic.Uint64
	invalid    atomic.Uint64
	reconnects atomic.Uint64
}

// New validates cfg and returns an unconnected Bridge.
func New(cfg Config) (*Bridge, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("bridge: at least one target is required")
	}
	seen := make(map[string]bool, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if t.Addr == "" {
			return nil, fmt.Errorf("bridge: target %q has no address", t.Name)
		}
		if seen[t.Addr] {
			return nil, fmt.Errorf("bridge: targets must use different ports (%s used twice)", t.Addr)
		}
		seen[t.Addr] = true
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	b := &Bridge{
		cfg:    cfg,
		logf:   cfg.Logf,
		dial:   cfg.Dial,
		framer: decode.NewFramer(decode.FramingLine, cfg.MaxLine),
	}
	if b.logf == nil {
		b.logf = log.Printf
	}
	if b.dial == nil {
		var d net.Dialer
		b.dial = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	for _, t := range cfg.Targets {
		b.targets = append(b.targets, &target{Target: t})
	}
	return b, nil
}

// Connect dials every target, retrying each one every RetryInterval until
// it answers or ctx is cancelled.
func (b *Bridge) Connect(ctx context.Context) error {
	for _, t := range b.targets {
		if err := b.connect(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) connect(ctx context.Context, t *target) error {
	b.logf("bridge: connecting to %s at %s", t.Name, t.Addr)
	for {
		conn, err := b.dial(ctx, t.Addr)
		if err == nil {
			t.conn = conn
			b.logf("bridge: connected to %s", t.Name)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logf("bridge: %s not reachable (%v), retrying in %v", t.Name, err, b.cfg.RetryInterval)

		timer := time.NewTimer(b.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Run reads from r until EOF, a read error or ctx cancellation, forwarding
// every valid line to all targets. Invalid lines are logged and dropped.
// Targets not yet connected are dialed first.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	for _, t := range b.targets {
		if t.conn == nil {
			if err := b.connect(ctx, t); err != nil {
				return nil
			}
		}
	}
	b.framer.Reset()
	b.logf("bridge: forwarding data")

	buf := make([]byte, serialBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := b.handleChunk(ctx, buf[:n]); ferr != nil {
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return fmt.Errorf("bridge: serial read: %w", err)
		}
	}
}

// handleChunk returns an error only when ctx was cancelled while
// reconnecting a target.
func (b *Bridge) handleChunk(ctx context.Context, chunk []byte) error {
	lines, err := b.framer.Feed(chunk)
	if err != nil {
		b.invalid.Add(1)
		b.logf("bridge: %v", err)
	}
	for _, line := range lines {
		payload, s, err := Normalize(line)
		if err != nil {
			b.invalid.Add(1)
			b.logf("bridge: invalid line received: %v", err)
			continue
		}
		if b.cfg.Codec == decode.CodecNMEA {
			payload = []byte(decode.EncodeNMEA(s))
		}
		if b.cfg.AppendNewline {
			payload = append(payload, '\n')
		}
		if err := b.forward(ctx, payload); err != nil {
			return err
		}
		b.forwarded.Add(1)
		b.logf("bridge: forwarded %s", s)
	}
	return nil
}

// forward writes payload to every target. A target whose write fails is
// redialed and the payload is sent once more; a second failure drops it.
func (b *Bridge) forward(ctx context.Context, payload []byte) error {
	for _, t := range b.targets {
		_, err := t.conn.Write(payload)
		if err == nil {
			continue
		}
		b.logf("bridge: write to %s failed: %v", t.Name, err)

		_ = t.conn.Close()
		t.conn = nil
		b.reconnects.Add(1)
		if err := b.connect(ctx, t); err != nil {
			return err
		}
		if _, err := t.conn.Write(payload); err != nil {
			b.logf("bridge: write to %s failed after reconnect: %v", t.Name, err)
		}
	}
	return nil
}

// Stats returns a copy of the counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Forwarded:  b.forwarded.Load(),
		Invalid:    b.invalid.Load(),
		Reconnects: b.reconnects.Load(),
	}
}

// Close closes every target connection.
func (b *Bridge) Close() error {
	var errs []error
	for _, t := range b.targets {
		if t.conn != nil {
			errs = append(errs, t.conn.Close())
			t.conn = nil
		}
	}
	return errors.Join(errs...)
}
