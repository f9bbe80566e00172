// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package receiver accepts a single producer connection at a time, decodes
// the incoming stream into samples and publishes the newest one into a
// latest.Cell for consumers running at their own rate.
package receiver

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/decode"
	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

const (
	DefaultPollInterval   = time.Second
	DefaultErrorBackoff   = time.Second
	DefaultReadBufferSize = 1024
)

// Config contains configuration options for a Receiver.
type Config struct {
	Name           string        // used in log lines, e.g. "orientation"
	Address        string        // host:port to listen on
	PollInterval   time.Duration // accept deadline between shutdown checks
	ErrorBackoff   time.Duration // pause after an unexpected error
	ReadBufferSize int           // bytes per read
	ReadTimeout    time.Duration // 0 waits for the peer indefinitely
	Framing        decode.Framing
	MaxFrame       int // line framing only
}

// Option customizes a Receiver.
type Option func(*Receiver)

// WithLogger replaces log.Printf. Passing nil mutes the receiver.
func WithLogger(fn func(format string, v ...any)) Option {
	return func(r *Receiver) {
		if fn == nil {
			fn = func(string, ...any) {}
		}
		r.logf = fn
	}
}

// WithDecoder replaces the default JSON decoder.
func WithDecoder(d decode.Decoder) Option {
	return func(r *Receiver) {
		if d != nil {
			r.decoder = d
		}
	}
}

// WithCell publishes into an existing cell instead of a private one.
func WithCell(c *latest.Cell) Option {
	return func(r *Receiver) {
		if c != nil {
			r.cell = c
		}
	}
}

// WithSampleHandler registers fn to be called on the ingestion goroutine
// after every stored sample. fn must not block.
func WithSampleHandler(fn func(sample.Sample)) Option {
	return func(r *Receiver) {
		r.onSample = fn
	}
}

// WithListener serves on ln instead of binding Config.Address. The
// receiver takes ownership of ln and closes it on Stop.
func WithListener(ln net.Listener) Option {
	return func(r *Receiver) {
		r.ln = ln
	}
}

// Receiver is the long-lived listener. It is single use: once stopped it
// cannot be started again.
type Receiver struct {
	cfg      Config
	decoder  decode.Decoder
	cell     *latest.Cell
	framer   *decode.Framer
	logf     func(format string, v ...any)
	onSample func(sample.Sample)

	state atomic.Int32
	stats counters

	mu      sync.Mutex
	started bool
	ln      net.Listener
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates a receiver with the provided configuration. Zero durations
// and sizes fall back to the package defaults.
func New(cfg Config, opts ...Option) *Receiver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.Name == "" {
		cfg.Name = "receiver"
	}

	r := &Receiver{
		cfg:     cfg,
		decoder: decode.JSONDecoder{},
		cell:    latest.New(),
		logf:    log.Printf,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.framer = decode.NewFramer(cfg.Framing, cfg.MaxFrame)
	return r
}

// Start binds the configured address and spawns the ingestion goroutine.
// A bind failure is returned (matching ErrBind, and ErrAddrInUse when the
// port is taken) and leaves the receiver in StateFailed.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrStarted
	}
	r.started = true

	ln := r.ln
	var err error
	if ln == nil {
		ln, err = net.Listen("tcp", r.cfg.Address)
	}
	if err != nil {
		r.err = &BindError{Addr: r.cfg.Address, Err: err}
		r.setState(StateFailed)
		r.logf("%s: fatal: %v", r.cfg.Name, r.err)
		close(r.done)
		return r.err
	}
	r.ln = ln
	r.logf("%s: listening on %s", r.cfg.Name, ln.Addr())

	ctx, r.cancel = context.WithCancel(ctx)
	r.setState(StateAccepting)
	go func() {
		defer close(r.done)
		r.serve(ctx, ln)
	}()
	return nil
}

// Run binds and serves until ctx is cancelled or Stop is called. It returns
// the bind error, or nil after a clean shutdown.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-r.done
	return nil
}

// Stop requests shutdown, releases the bound port and waits for the
// ingestion goroutine to exit. It is safe to call more than once and
// before Start.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.started = true
		r.setState(StateStopped)
		close(r.done)
		r.mu.Unlock()
		return nil
	}
	cancel, ln := r.cancel, r.ln
	r.mu.Unlock()

	if cancel == nil {
		// Bind failed, nothing is running.
		return nil
	}
	cancel()

	var err error
	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	<-r.done
	return err
}

// Latest returns the newest decoded sample or the zero sample. It never
// blocks and never observes a partially written sample.
func (r *Receiver) Latest() sample.Sample { return r.cell.Load() }

// Snapshot returns the newest sample with its sequence number and time.
func (r *Receiver) Snapshot() latest.Snapshot { return r.cell.Snapshot() }

// Cell exposes the backing cell for consumers that share it.
func (r *Receiver) Cell() *latest.Cell { return r.cell }

// Name returns the configured name.
func (r *Receiver) Name() string { return r.cfg.Name }

// Addr returns the bound address, or nil before a successful Start.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// State returns the current state.
func (r *Receiver) State() State { return State(r.state.Load()) }

// Stats returns a copy of the cumulative counters.
func (r *Receiver) Stats() Stats { return r.stats.snapshot() }

// Done is closed when the receiver has stopped or failed to bind.
func (r *Receiver) Done() <-chan struct{} { return r.done }

// Err returns the fatal error that stopped the receiver, if any.
func (r *Receiver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Receiver) setState(s State) { r.state.Store(int32(s)) }

type deadlineSetter interface {
	SetDeadline(t time.Time) error
}

// serve is the accept loop. Only one session is serviced at a time.
func (r *Receiver) serve(ctx context.Context, ln net.Listener) {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	for {
		if ctx.Err() != nil {
			r.setState(StateStopped)
			r.logf("%s: stopped", r.cfg.Name)
			return
		}
		r.setState(StateAccepting)

		if d, ok := ln.(deadlineSetter); ok {
			_ = d.SetDeadline(time.Now().Add(r.cfg.PollInterval))
		}

		conn, err := ln.Accept()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, os.ErrDeadlineExceeded):
			case errors.Is(err, net.ErrClosed):
				r.setState(StateStopped)
				r.logf("%s: listener closed", r.cfg.Name)
				return
			case IsTransient(err):
				r.stats.transientErrors.Add(1)
				r.logf("%s: accept: %v", r.cfg.Name, err)
			default:
				r.stats.unexpectedErrors.Add(1)
				r.logf("%s: accept error: %v", r.cfg.Name, err)
				r.pause(ctx)
			}
			continue
		}

		r.stats.connections.Add(1)
		r.setState(StateConnected)

		err = r.handleSession(ctx, conn)
		r.stats.disconnects.Add(1)
		switch {
		case err == nil || ctx.Err() != nil:
		case IsTransient(err):
			r.stats.transientErrors.Add(1)
			r.logf("%s: connection lost: %v", r.cfg.Name, err)
		default:
			r.stats.unexpectedErrors.Add(1)
			r.logf("%s: session error: %v", r.cfg.Name, err)
			r.pause(ctx)
		}
	}
}

func (r *Receiver) pause(ctx context.Context) {
	timer := time.NewTimer(r.cfg.ErrorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
