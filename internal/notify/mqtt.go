package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const defaultMQTTTimeout = 10 * time.Second

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

// MQTTPayload is the retained message published per cycle.
type MQTTPayload struct {
	Text   string    `json:"text"`
	Mute   bool      `json:"mute"`
	SentAt time.Time `json:"sent_at"`
}

// MQTT publishes the summary as a retained message so late subscribers see
// the latest state.
type MQTT struct {
	cfg    MQTTConfig
	logger zerolog.Logger

	mu     sync.Mutex
	client mqtt.Client
	now    func() time.Time
}

// NewMQTT creates the sink. The broker connection is opened on first Send.
func NewMQTT(cfg MQTTConfig, logger zerolog.Logger) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMQTTTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "camwatch"
	}
	m := &MQTT{cfg: cfg, logger: logger, now: time.Now}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
	})
	m.client = mqtt.NewClient(opts)
	return m
}

func (m *MQTT) Name() string { return "mqtt" }

// Send publishes the summary and waits for the broker acknowledgement.
func (m *MQTT) Send(ctx context.Context, text string, mute bool) error {
	if err := m.ensureConnected(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(MQTTPayload{Text: text, Mute: mute, SentAt: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	token := m.client.Publish(m.cfg.Topic, m.cfg.QoS, true, payload)
	return waitToken(ctx, token, m.cfg.Timeout, "publish")
}

func (m *MQTT) ensureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client.IsConnected() {
		return nil
	}
	return waitToken(ctx, m.client.Connect(), m.cfg.Timeout, "connect")
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}

var errTokenTimeout = errors.New("mqtt operation timed out")

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration, op string) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt %s: %w", op, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("mqtt %s: %w", op, errTokenTimeout)
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt %s: %w", op, err)
		}
		return nil
	}
}
