// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package decode

import (
	"bytes"
	"fmt"
)

// Framing selects how a byte stream is cut into messages.
type Framing string

const (
	// FramingRead treats every read as exactly one message.
	FramingRead Framing = "read"
	// FramingLine accumulates bytes across reads and emits one message per
	// newline-terminated line.
	FramingLine Framing = "line"
)

// DefaultMaxFrame bounds a partial line held by the line framer.
const DefaultMaxFrame = 4096

// ParseFraming validates a framing name.
func ParseFraming(s string) (Framing, error) {
	switch Framing(s) {
	case FramingRead, FramingLine:
		return Framing(s), nil
	case "":
		return FramingRead, nil
	default:
		return "", fmt.Errorf("unknown framing %q (want %q or %q)", s, FramingRead, FramingLine)
	}
}

// Framer cuts a stream of chunks into complete messages. It is owned by a
// single session and is not safe for concurrent use.
type Framer struct {
	mode     Framing
	maxFrame int
	buf      []byte
}

// NewFramer returns a framer for the given mode. maxFrame <= 0 uses
// DefaultMaxFrame.
func NewFramer(mode Framing, maxFrame int) *Framer {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	if mode == "" {
		mode = FramingRead
	}
	return &Framer{mode: mode, maxFrame: maxFrame}
}

// Mode returns the framing mode.
func (f *Framer) Mode() Framing { return f.mode }

// Reset drops any buffered partial message.
func (f *Framer) Reset() { f.buf = f.buf[:0] }

// Feed consumes one chunk and returns the complete messages it closes.
// Returned slices do not alias chunk. A *DecodeError is returned when a
// partial line outgrows the frame limit; the buffered bytes are discarded
// and framing resumes with the next chunk.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	if f.mode == FramingRead {
		if len(chunk) == 0 {
			return nil, nil
		}
		return [][]byte{append([]byte(nil), chunk...)}, nil
	}

	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(f.buf[:i], "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			frames = append(frames, append([]byte(nil), line...))
		}
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > f.maxFrame {
		dropped := f.buf
		f.buf = nil
		return frames, newDecodeError(dropped, fmt.Errorf("frame exceeds %d bytes without newline", f.maxFrame))
	}

	// Compact so the backing array does not grow with the stream.
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	} else {
		f.buf = append([]byte(nil), f.buf...)
	}
	return frames, nil
}
