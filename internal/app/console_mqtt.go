package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_receiver/internal/config"
	"github.com/relabs-tech/inertial_receiver/internal/latest"
	"github.com/relabs-tech/inertial_receiver/internal/render"
	"github.com/relabs-tech/inertial_receiver/internal/sample"
)

// printSnapshot decodes one published snapshot and prints its text view.
func printSnapshot(w io.Writer, kind sample.Kind, payload []byte) error {
	var snap latest.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("%s unmarshal error: %w", kind, err)
	}
	_, err := fmt.Fprintf(w, "%s  seq=%d\n", render.Describe(kind, snap.Sample), snap.Seq)
	return err
}

// RunConsoleMQTT subscribes to both stream topics and prints every message
// until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	topics := map[string]sample.Kind{
		cfg.TopicOrientation: sample.Orientation,
		cfg.TopicAccel:       sample.Acceleration,
	}
	for topic, kind := range topics {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := printSnapshot(os.Stdout, kind, msg.Payload()); err != nil {
				log.Printf("console: %v", err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			client.Disconnect(250)
			return token.Error()
		}
		log.Printf("console: subscribed to %s", topic)
	}

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
