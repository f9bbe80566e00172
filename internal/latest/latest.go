// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package latest holds the most recent sample for rate-decoupled readers.
package latest

import (
	"sync/atomic"
	"time"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// Snapshot is an immutable view of the cell. Seq is 0 until the first Store.
type Snapshot struct {
	Sample sample.Sample `json:"sample"`
	Seq    uint64        `json:"seq"`
	At     time.Time     `json:"at"`
}

// Cell is a single-slot holder of the latest sample. Store swaps a freshly
// allocated snapshot in one atomic step, so readers see either the previous
// or the next complete sample. The zero Cell is ready to use.
//
// Intended for one writer; concurrent writers still never tear, but their
// sequence numbers may not follow store order.
type Cell struct {
	cur atomic.Pointer[Snapshot]
	seq atomic.Uint64
}

// New returns an empty cell.
func New() *Cell { return &Cell{} }

// Store replaces the held sample.
func (c *Cell) Store(s sample.Sample) {
	c.cur.Store(&Snapshot{
		Sample: s,
		Seq:    c.seq.Add(1),
		At:     time.Now(),
	})
}

// Load returns the latest sample, or the zero sample if nothing has been
// stored yet. It never blocks.
func (c *Cell) Load() sample.Sample {
	if p := c.cur.Load(); p != nil {
		return p.Sample
	}
	return sample.Sample{}
}

// Snapshot returns the latest sample together with its sequence number and
// store time.
func (c *Cell) Snapshot() Snapshot {
	if p := c.cur.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}
