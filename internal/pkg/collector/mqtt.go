package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTTSender publishes each sample with QoS 1 to
// <prefix>/<email>/samples. Delivery is confirmed by the broker's PUBACK.
type MQTTSender struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

func NewMQTTSender(cfg MQTTConfig) (*MQTTSender, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(cfg.Timeout).
		SetOnConnectHandler(func(mqtt.Client) {
			slog.Info("Connected to MQTT broker", "broker", cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(cfg.Timeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	return &MQTTSender{client: client, prefix: cfg.TopicPrefix, timeout: cfg.Timeout}, nil
}

// Send implements tracking.Sender.
func (s *MQTTSender) Send(ctx context.Context, sample tracking.LocationSample) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt broker not connected")
	}

	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", tracking.ErrUploadRejected, err)
	}

	token := s.client.Publish(Topic(s.prefix, sample.Email), 1, false, payload)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish sample: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out waiting for broker acknowledgement")
	}
}

func (s *MQTTSender) Close() {
	s.client.Disconnect(250)
}

// Topic is where samples for email are published.
func Topic(prefix, email string) string {
	if prefix == "" {
		prefix = "hris/tracking"
	}
	return prefix + "/" + email + "/samples"
}
