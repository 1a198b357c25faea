package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// mqttPublisher is the part of mqtt.Client the sender needs.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSender publishes each notification as a JSON message at QoS 1.
type MQTTSender struct {
	client mqttPublisher
	topic  string
	now    func() time.Time
}

type mqttNotification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// DialMQTT connects to broker and returns a sender for topic. An empty
// clientID gets a random one.
func DialMQTT(broker, topic, clientID string, timeout time.Duration) (*MQTTSender, error) {
	if clientID == "" {
		clientID = "predictd-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt: connect %s: timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, err)
	}
	return newMQTTSender(client, topic), nil
}

func newMQTTSender(client mqttPublisher, topic string) *MQTTSender {
	return &MQTTSender{client: client, topic: topic, now: time.Now}
}

func (m *MQTTSender) Send(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(mqttNotification{Title: title, Message: message, SentAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("mqtt: marshal: %w", err)
	}
	tok := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt: publish %s: %w", m.topic, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", m.topic, err)
	}
	return nil
}

func (m *MQTTSender) Name() string { return "mqtt" }

// Close disconnects, allowing a quarter second for in-flight publishes.
func (m *MQTTSender) Close() { m.client.Disconnect(250) }
