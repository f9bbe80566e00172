// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrBind matches every failure to bind the listening socket. It is the
	// one fatal path of a receiver.
	ErrBind = errors.New("bind failed")
	// ErrAddrInUse matches a bind failure caused by another listener
	// already owning the address.
	ErrAddrInUse = errors.New("address already in use")
	// ErrStarted is returned when Start or Run is called twice.
	ErrStarted = errors.New("receiver already started")
)

// BindError reports a fatal bind failure.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	if errors.Is(e.Err, syscall.EADDRINUSE) {
		return fmt.Sprintf("bind %s: port is already in use, is another instance running? (%v)", e.Addr, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

func (e *BindError) Is(target error) bool {
	switch target {
	case ErrBind:
		return true
	case ErrAddrInUse:
		return errors.Is(e.Err, syscall.EADDRINUSE)
	}
	return false
}

// IsTransient reports whether err is a connection-level failure that should
// end the current session and return the listener to accepting: peer reset
// or abort, broken pipe, truncated stream or an I/O timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
