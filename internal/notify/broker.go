package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/meneses-pt/goals.zone/internal/globaltime"
)

// BrokerMessage is the JSON body published to AMQP and MQTT destinations.
type BrokerMessage struct {
	ID      string    `json:"id"`
	Event   string    `json:"event"`
	MatchID int64     `json:"match_id"`
	RuleID  int64     `json:"rule_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

func newBrokerMessage(d Delivery) ([]byte, string, error) {
	msg := BrokerMessage{
		ID:      uuid.NewString(),
		Event:   d.Kind.String(),
		MatchID: d.MatchID,
		RuleID:  d.Rule.ID,
		Message: d.Message,
		SentAt:  globaltime.UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, "", fmt.Errorf("marshal broker message: %w", err)
	}
	return body, msg.ID, nil
}

// AMQPNotifier publishes to a topic exchange; the rule's webhook url is the routing key.
type AMQPNotifier struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPNotifier(url, exchange string) *AMQPNotifier {
	return &AMQPNotifier{url: url, exchange: exchange}
}

func (n *AMQPNotifier) Deliver(_ context.Context, d Delivery) error {
	body, id, err := newBrokerMessage(d)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Publish(n.exchange, d.Rule.WebhookURL, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    globaltime.UTC(),
		Body:         body,
	}); err != nil {
		n.closeConn()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) channel() (*amqp.Channel, error) {
	if n.conn == nil || n.conn.IsClosed() {
		conn, err := amqp.DialConfig(n.url, amqp.Config{Heartbeat: 30 * time.Second, Locale: "en_US"})
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		n.conn = conn
	}
	ch, err := n.conn.Channel()
	if err != nil {
		n.closeConn()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", n.exchange, err)
	}
	return ch, nil
}

func (n *AMQPNotifier) closeConn() {
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closeConn()
	return nil
}

// MQTTNotifier publishes with QoS 1; the rule's webhook url is the topic.
type MQTTNotifier struct {
	client  mqtt.Client
	timeout time.Duration
}

// NewMQTTNotifier connects to broker and keeps the session with auto reconnect.
func NewMQTTNotifier(broker, clientID string, timeout time.Duration) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("%s-%d", clientID, time.Now().Unix()))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTNotifier{client: client, timeout: timeout}, nil
}

func (n *MQTTNotifier) Deliver(_ context.Context, d Delivery) error {
	if d.Rule.WebhookURL == "" {
		return fmt.Errorf("rule %d has no mqtt topic", d.Rule.ID)
	}
	body, _, err := newBrokerMessage(d)
	if err != nil {
		return err
	}
	token := n.client.Publish(d.Rule.WebhookURL, 1, false, body)
	if !token.WaitTimeout(n.timeout) {
		return fmt.Errorf("mqtt publish %s: timed out", d.Rule.WebhookURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", d.Rule.WebhookURL, err)
	}
	return nil
}

func (n *MQTTNotifier) Close() error {
	if n.client != nil && n.client.IsConnected() {
		n.client.Disconnect(250)
	}
	return nil
}
