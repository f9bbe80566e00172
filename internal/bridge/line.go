// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/relabs-tech/inertial_receiver/internal/decode"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

var nmeaDecoder = decode.NewNMEADecoder()

// Normalize checks one line read from the board and returns the payload to
// forward. JSON lines are forwarded unchanged; $PXYZ sentences are
// converted to the JSON object the receivers expect.
func Normalize(line []byte) ([]byte, sample.Sample, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, sample.Sample{}, fmt.Errorf("empty line")
	}

	if line[0] == '$' {
		s, err := nmeaDecoder.Decode(line)
		if err != nil {
			return nil, sample.Sample{}, err
		}
		out, err := json.Marshal(s)
		if err != nil {
			return nil, sample.Sample{}, fmt.Errorf("marshal sample: %w", err)
		}
		return out, s, nil
	}

	s, err := decode.JSONDecoder{}.Decode(line)
	if err != nil {
		return nil, sample.Sample{}, err
	}
	return line, s, nil
}
