// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

type published struct {
	topic   string
	payload []byte
}

func TestTopicPublisher_OnlyNewSamples(t *testing.T) {
	cell := latest.New()
	var sent []published
	p := &topicPublisher{
		kind:  sample.Orientation,
		topic: "inertial/orientation",
		src:   cell,
		publish: func(topic string, payload []byte) error {
			sent = append(sent, published{topic, payload})
			return nil
		},
	}

	// Nothing stored yet.
	require.NoError(t, p.Render(sample.Sample{}))
	assert.Empty(t, sent)

	cell.Store(sample.Sample{X: 1})
	require.NoError(t, p.Render(sample.Sample{}))
	require.NoError(t, p.Render(sample.Sample{}))
	require.Len(t, sent, 1)
	assert.Equal(t, "inertial/orientation", sent[0].topic)

	var snap latest.Snapshot
	require.NoError(t, json.Unmarshal(sent[0].payload, &snap))
	assert.Equal(t, sample.Sample{X: 1}, snap.Sample)
	assert.Equal(t, uint64(1), snap.Seq)

	cell.Store(sample.Sample{X: 2})
	require.NoError(t, p.Render(sample.Sample{}))
	assert.Len(t, sent, 2)
}

func TestTopicPublisher_RetriesAfterError(t *testing.T) {
	cell := latest.New()
	cell.Store(sample.Sample{Y: 3})

	fail := true
	var calls int
	p := &topicPublisher{
		kind:  sample.Acceleration,
		topic: "inertial/accel",
		src:   cell,
		publish: func(string, []byte) error {
			calls++
			if fail {
				return errors.New("not connected")
			}
			return nil
		},
	}

	assert.Error(t, p.Render(sample.Sample{}))
	fail = false
	require.NoError(t, p.Render(sample.Sample{}))
	assert.Equal(t, 2, calls)
}

func TestPrintSnapshot(t *testing.T) {
	cell := latest.New()
	cell.Store(sample.Sample{X: 10, Y: 30})
	payload, err := json.Marshal(cell.Snapshot())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSnapshot(&buf, sample.Acceleration, payload))
	assert.Contains(t, buf.String(), "[ACCEL] PITCH= 10.00  ROLL= 30.00")
	assert.Contains(t, buf.String(), "seq=1")

	assert.Error(t, printSnapshot(&buf, sample.Orientation, []byte("nope")))
}
