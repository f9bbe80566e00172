// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/render"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// publishFunc sends one retained payload to topic.
type publishFunc func(topic string, payload []byte) error

func mqttPublish(client mqtt.Client) publishFunc {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, true, payload)
		token.Wait()
		return token.Error()
	}
}

type snapshotter interface {
	Snapshot() latest.Snapshot
}

// topicPublisher forwards a stream's latest snapshot to one topic, skipping
// ticks where nothing new arrived.
type topicPublisher struct {
	kind    sample.Kind
	topic   string
	src     snapshotter
	publish publishFunc
	lastSeq uint64
}

// Render implements render.Sink. The sample argument is ignored in favour
// of the full snapshot so the sequence number travels with it.
func (p *topicPublisher) Render(sample.Sample) error {
	snap := p.src.Snapshot()
	if snap.Seq == 0 || snap.Seq == p.lastSeq {
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("json marshal error (%s): %w", p.kind, err)
	}
	if err := p.publish(p.topic, payload); err != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", p.topic, err)
	}
	p.lastSeq = snap.Seq
	return nil
}

// RunMQTTPublisher starts both receivers and republishes every new sample
// to TOPIC_ORIENTATION and TOPIC_ACCEL at the render intervals.
func RunMQTTPublisher(ctx context.Context) error {
	log.Println("starting inertial-receiver MQTT publisher")
	cfg := config.Get()

	rs, err := startReceivers(ctx, cfg, sample.Orientation, sample.Acceleration)
	if err != nil {
		return err
	}
	defer stopReceivers(rs)

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDPublisher).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	publish := mqttPublish(client)
	loops := []*render.Loop{
		{
			Name:     "mqtt " + string(sample.Orientation),
			Interval: config.Millis(cfg.CubeRenderInterval),
			Source:   rs[sample.Orientation],
			Sink: &topicPublisher{
				kind: sample.Orientation, topic: cfg.TopicOrientation,
				src: rs[sample.Orientation], publish: publish,
			},
		},
		{
			Name:     "mqtt " + string(sample.Acceleration),
			Interval: config.Millis(cfg.AccelRenderInterval),
			Source:   rs[sample.Acceleration],
			Sink: &topicPublisher{
				kind: sample.Acceleration, topic: cfg.TopicAccel,
				src: rs[sample.Acceleration], publish: publish,
			},
		},
	}

	errc := make(chan error, len(loops))
	for _, l := range loops {
		go func(l *render.Loop) { errc <- l.Run(ctx) }(l)
	}

	var firstErr error
	for range loops {
		if err := <-errc; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	log.Println("MQTT publisher: shutting down")
	return firstErr
}
