// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package decode turns raw payloads received from a sensor producer into
// samples. Every failure is reported as a *DecodeError so callers can drop
// the payload and keep the connection.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("decode error")
	// ErrMissingField is wrapped when an axis is absent from the payload.
	ErrMissingField = errors.New("missing field")
)

// maxQuoted bounds how much of a bad payload ends up in error messages.
const maxQuoted = 64

// DecodeError describes a payload that could not be turned into a Sample.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	p := e.Payload
	if len(p) > maxQuoted {
		p = p[:maxQuoted]
	}
	return fmt.Sprintf("decode %q: %v", p, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func newDecodeError(payload []byte, err error) *DecodeError {
	return &DecodeError{Payload: append([]byte(nil), payload...), Err: err}
}

// Decoder parses exactly one self-contained message.
type Decoder interface {
	Decode(payload []byte) (sample.Sample, error)
}

// Codec names a wire encoding.
type Codec string

const (
	CodecJSON Codec = "json"
	CodecNMEA Codec = "nmea"
)

// ForCodec returns the decoder for the given codec.
func ForCodec(c Codec) (Decoder, error) {
	switch c {
	case CodecJSON, "":
		return JSONDecoder{}, nil
	case CodecNMEA:
		return NewNMEADecoder(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", c)
	}
}

// JSONDecoder decodes {"x": .., "y": .., "z": ..} objects. All three axes
// are required; unknown fields are ignored.
type JSONDecoder struct{}

type jsonSample struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func (JSONDecoder) Decode(payload []byte) (sample.Sample, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return sample.Sample{}, newDecodeError(payload, errors.New("empty payload"))
	}

	var js jsonSample
	if err := json.Unmarshal(trimmed, &js); err != nil {
		return sample.Sample{}, newDecodeError(payload, err)
	}

	var missing []string
	if js.X == nil {
		missing = append(missing, "x")
	}
	if js.Y == nil {
		missing = append(missing, "y")
	}
	if js.Z == nil {
		missing = append(missing, "z")
	}
	if len(missing) > 0 {
		return sample.Sample{}, newDecodeError(payload, fmt.Errorf("%w: %v", ErrMissingField, missing))
	}

	return sample.Sample{X: *js.X, Y: *js.Y, Z: *js.Z}, nil
}
