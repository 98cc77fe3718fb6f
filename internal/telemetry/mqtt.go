// Package telemetry mirrors device status to an MQTT broker.
package telemetry

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/vmorsell/microrail-remote/internal/status"
	"github.com/vmorsell/microrail-remote/pkg/model"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	disconnectWait = 250 // milliseconds

	qos      = 0
	retained = true
)

// Publisher is the subset of mqtt.Client used by Mirror.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Mirror republishes every status it is given.
type Mirror struct {
	logger    *zap.Logger
	publisher Publisher
	topic     string
}

func NewMirror(logger *zap.Logger, publisher Publisher, topic string) *Mirror {
	return &Mirror{
		logger:    logger.With(zap.String("topic", topic)),
		publisher: publisher,
		topic:     topic,
	}
}

// Publish is suitable as a link observer. Failures are logged only.
func (m *Mirror) Publish(s model.Status) {
	payload, err := status.Encode(s)
	if err != nil {
		m.logger.Error("failed to encode status", zap.Error(err))
		return
	}

	token := m.publisher.Publish(m.topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			m.logger.Warn("status publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			m.logger.Warn("failed to publish status", zap.Error(err))
		}
	}()
}

// Dial connects to broker. An empty clientID is replaced with a random one.
func Dial(logger *zap.Logger, broker, clientID string) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "microrail-remote-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", zap.String("broker", broker), zap.String("clientID", clientID))
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return client, nil
}

// Disconnect closes client, allowing in-flight publishes a short grace period.
func Disconnect(client mqtt.Client) {
	client.Disconnect(disconnectWait)
}
