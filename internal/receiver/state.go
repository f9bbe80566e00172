// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import "sync/atomic"

// State is the position of a receiver in its accept-and-recover cycle.
type State int32

const (
	StateIdle State = iota
	StateAccepting
	StateConnected
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccepting:
		return "accepting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats are cumulative counters since the receiver was created.
type Stats struct {
	Connections      uint64 `json:"connections"`
	Disconnects      uint64 `json:"disconnects"`
	Samples          uint64 `json:"samples"`
	DecodeErrors     uint64 `json:"decode_errors"`
	TransientErrors  uint64 `json:"transient_errors"`
	UnexpectedErrors uint64 `json:"unexpected_errors"`
	BytesRead        uint64 `json:"bytes_read"`
}

type counters struct {
	connections      atomic.Uint64
	disconnects      atomic.Uint64
	samples          atomic.Uint64
	decodeErrors     atomic.Uint64
	transientErrors  atomic.Uint64
	unexpectedErrors atomic.Uint64
	bytesRead        atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Connections:      c.connections.Load(),
		Disconnects:      c.disconnects.Load(),
		Samples:          c.samples.Load(),
		DecodeErrors:     c.decodeErrors.Load(),
		TransientErrors:  c.transientErrors.Load(),
		UnexpectedErrors: c.unexpectedErrors.Load(),
		BytesRead:        c.bytesRead.Load(),
	}
}
