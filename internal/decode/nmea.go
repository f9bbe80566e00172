// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package decode

import (
	"bytes"
	"fmt"
	"strconv"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// TypeXYZ is the proprietary sentence type carrying one sample:
//
//	$PXYZ,<x>,<y>,<z>*hh
const TypeXYZ = "XYZ"

// XYZ is the parsed $PXYZ sentence.
type XYZ struct {
	nmea.BaseSentence
	X float64
	Y float64
	Z float64
}

func parseXYZ(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeXYZ)
	return XYZ{
		BaseSentence: s,
		X:            p.Float64(0, "x"),
		Y:            p.Float64(1, "y"),
		Z:            p.Float64(2, "z"),
	}, p.Err()
}

// NMEADecoder decodes $PXYZ sentences. The checksum is mandatory.
type NMEADecoder struct {
	parser *nmea.SentenceParser
}

// NewNMEADecoder returns a decoder with the XYZ sentence registered.
func NewNMEADecoder() *NMEADecoder {
	return &NMEADecoder{
		parser: &nmea.SentenceParser{
			CustomParsers: map[string]nmea.ParserFunc{
				TypeXYZ: parseXYZ,
			},
		},
	}
}

func (d *NMEADecoder) Decode(payload []byte) (sample.Sample, error) {
	line := string(bytes.TrimSpace(payload))
	if line == "" {
		return sample.Sample{}, newDecodeError(payload, fmt.Errorf("empty payload"))
	}

	sentence, err := d.parser.Parse(line)
	if err != nil {
		return sample.Sample{}, newDecodeError(payload, err)
	}

	xyz, ok := sentence.(XYZ)
	if !ok {
		return sample.Sample{}, newDecodeError(payload, fmt.Errorf("unexpected sentence type %q", sentence.DataType()))
	}
	return sample.Sample{X: xyz.X, Y: xyz.Y, Z: xyz.Z}, nil
}

// EncodeNMEA renders s as a checksummed $PXYZ sentence without line ending.
func EncodeNMEA(s sample.Sample) string {
	body := "P" + TypeXYZ + "," +
		strconv.FormatFloat(s.X, 'f', -1, 64) + "," +
		strconv.FormatFloat(s.Y, 'f', -1, 64) + "," +
		strconv.FormatFloat(s.Z, 'f', -1, 64)
	return "$" + body + "*" + nmea.Checksum(body)
}
