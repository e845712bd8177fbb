package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const mqttConnectTimeout = 10 * time.Second

type MQTTConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
}

// mqttPublisher is the part of mqtt.Client the exporter uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTExporter publishes reports as JSON on <topic>/stats.
type MQTTExporter struct {
	client mqttPublisher
	topic  string
}

func NewMQTTExporter(cfg MQTTConfig, logger *zap.Logger) (*MQTTExporter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("myo-goes-live-" + uuid.NewString())
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("[mqtt] connection lost", zap.Error(err), zap.String("broker", cfg.Broker))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("[mqtt] connected", zap.String("broker", cfg.Broker))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connecting to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", cfg.Broker, err)
	}
	return newMQTTExporter(client, cfg.Topic), nil
}

func newMQTTExporter(client mqttPublisher, topic string) *MQTTExporter {
	return &MQTTExporter{client: client, topic: topic + "/stats"}
}

func (m *MQTTExporter) Name() string { return "mqtt" }

func (m *MQTTExporter) Export(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return errors.Join(errors.New("mqtt publish not acknowledged"), ctx.Err())
	}
}

func (m *MQTTExporter) Close() error {
	m.client.Disconnect(250)
	return nil
}
