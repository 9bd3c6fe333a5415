package signaling

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mistwave/filemesh/internal/envelope"
)

// mqttDisconnectGrace is the delay before publishing the retention-clearing
// message on disconnect, so the just-sent payload isn't lost to an
// immediate broker-side disconnect race.
const mqttDisconnectGrace = 5 * time.Second

// MQTT is the pub/sub signaling transport. The local topic is
// "<LocalName>/<Topic>"; the remote (subscribed) topic is
// "<RemoteName>/<Topic>".
type MQTT struct {
	Broker     string
	Port       uint16
	Topic      string
	LocalName  string
	RemoteName string
	KeepAlive  time.Duration
	Secret     *envelope.Secret

	client    mqtt.Client
	incoming  chan Message
	firstSend bool
}

// NewMQTT constructs an MQTT transport.
func NewMQTT(broker string, port uint16, topic, localName, remoteName string, keepAlive time.Duration, secret *envelope.Secret) *MQTT {
	return &MQTT{
		Broker:     broker,
		Port:       port,
		Topic:      topic,
		LocalName:  localName,
		RemoteName: remoteName,
		KeepAlive:  keepAlive,
		Secret:     secret,
		incoming:   make(chan Message, 8),
		firstSend:  true,
	}
}

func (m *MQTT) localTopic() string  { return fmt.Sprintf("%s/%s", m.LocalName, m.Topic) }
func (m *MQTT) remoteTopic() string { return fmt.Sprintf("%s/%s", m.RemoteName, m.Topic) }

func (m *MQTT) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", m.Broker, m.Port)).
		SetKeepAlive(m.KeepAlive).
		SetCleanSession(true).
		SetWill(m.localTopic(), "", 2, true)

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("signaling: mqtt: connect: %w", token.Error())
	}

	token := m.client.Subscribe(m.remoteTopic(), 2, func(_ mqtt.Client, msg mqtt.Message) {
		m.handleIncoming(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("signaling: mqtt: subscribe: %w", token.Error())
	}
	return nil
}

func (m *MQTT) handleIncoming(payload []byte) {
	if len(payload) == 0 {
		// The retained-erase marker left by a graceful disconnect or the
		// last-will; not a signaling message.
		return
	}

	text := string(payload)
	if m.Secret != nil {
		decrypted, err := envelope.Unwrap(*m.Secret, text)
		if err != nil {
			return
		}
		text = decrypted
	}

	msg, err := Decode([]byte(text))
	if err != nil {
		return
	}
	m.incoming <- msg
}

// Send publishes at QoS 2. The first outgoing message (carrying the local
// role UUID) is retained so a late subscriber still observes it; every
// subsequent message is published without retention.
func (m *MQTT) Send(ctx context.Context, msg Message) error {
	encoded, err := Encode(msg)
	if err != nil {
		return err
	}
	text := string(encoded)
	if m.Secret != nil {
		wrapped, err := envelope.Wrap(*m.Secret, text)
		if err != nil {
			return fmt.Errorf("signaling: mqtt: wrap: %w", err)
		}
		text = wrapped
	}

	retain := m.firstSend
	m.firstSend = false

	token := m.client.Publish(m.localTopic(), 2, retain, text)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("signaling: mqtt: publish: %w", token.Error())
	}
	return nil
}

func (m *MQTT) Receive(ctx context.Context) (Message, bool, error) {
	select {
	case msg := <-m.incoming:
		return msg, true, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}

// Disconnect waits out the publish grace period, then publishes an empty
// retained message on the local topic (clearing retention, pre-empting the
// last will) before tearing down the client.
func (m *MQTT) Disconnect(ctx context.Context) error {
	select {
	case <-time.After(mqttDisconnectGrace):
	case <-ctx.Done():
	}

	token := m.client.Publish(m.localTopic(), 2, true, "")
	token.Wait()

	m.client.Disconnect(250)
	return nil
}
