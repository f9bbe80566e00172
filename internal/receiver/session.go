// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package receiver

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// handleSession reads from one accepted connection until the peer goes
// away, an I/O error occurs or ctx is cancelled. A clean close or shutdown
// returns nil. Decode errors never end the session.
func (r *Receiver) handleSession(ctx context.Context, conn net.Conn) error {
	peer := conn.RemoteAddr()
	r.logf("%s: connected by %s", r.cfg.Name, peer)

	// Unblocks a pending Read on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	r.framer.Reset()
	buf := make([]byte, r.cfg.ReadBufferSize)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if r.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		}

		n, err := conn.Read(buf)
		if n > 0 {
			r.stats.bytesRead.Add(uint64(n))
			r.handleChunk(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				r.logf("%s: %s disconnected", r.cfg.Name, peer)
				return nil
			}
			return err
		}
	}
}

// handleChunk frames and decodes one read and stores every good sample.
func (r *Receiver) handleChunk(chunk []byte) {
	frames, err := r.framer.Feed(chunk)
	if err != nil {
		r.stats.decodeErrors.Add(1)
		r.logf("%s: dropped partial message: %v", r.cfg.Name, err)
	}

	for _, frame := range frames {
		s, err := r.decoder.Decode(frame)
		if err != nil {
			r.stats.decodeErrors.Add(1)
			r.logf("%s: invalid message received: %v", r.cfg.Name, err)
			continue
		}
		r.cell.Store(s)
		r.stats.samples.Add(1)
		if r.onSample != nil {
			r.onSample(s)
		}
	}
}
