// Package session propagates a signed-in operator's session across
// devices and processes through a retained message-bus document. The
// retained payload maps device ids to encrypted credential blobs; only the
// primary instance (the one that logged in) mutates it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/security"
	"hangarcore/pkg/telemetry"
)

// StartupWait is how long startup blocks for the retained session document
// before falling through to the login screen. A message arriving after the
// timeout but before login still takes effect.
const StartupWait = 2 * time.Second

// SessionMap is the retained document: device id to base64 ciphertext.
// The empty payload is equivalent to the empty map.
type SessionMap map[string]string

// BrokerConfig is the MQTT connection configuration.
type BrokerConfig struct {
	Broker   string
	Port     int
	Enabled  bool
	Username string
	Password string
	ClientID string
}

// Broadcaster subscribes to the retained session topic and publishes
// session updates when this instance is primary.
type Broadcaster struct {
	Keeper   *security.Keeper
	DeviceID string
	Topic    string

	client mqtt.Client
	// events carries parsed retained payloads off the network goroutine;
	// consumers apply them on their own loop.
	events chan SessionMap

	mu     sync.Mutex
	latest SessionMap
}

// NewBroadcaster wires a broadcaster; call Connect before use.
func NewBroadcaster(keeper *security.Keeper, deviceID, topic string) *Broadcaster {
	return &Broadcaster{
		Keeper:   keeper,
		DeviceID: deviceID,
		Topic:    topic,
		events:   make(chan SessionMap, 8),
		latest:   SessionMap{},
	}
}

// Connect dials the broker and subscribes to the session topic. A disabled
// or unreachable bus is not fatal: the broadcaster stays disconnected and
// startup falls through to login.
func (b *Broadcaster) Connect(ctx context.Context, cfg BrokerConfig) error {
	if !cfg.Enabled || cfg.Broker == "" {
		logger.Log.Info("session_bus_disabled")
		return nil
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "hangarcore-" + b.DeviceID
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		telemetry.SessionBusConnected.Set(1)
		logger.Log.Info("session_bus_connected", zap.String("topic", b.Topic))
		c.Subscribe(b.Topic, 1, b.onMessage)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		telemetry.SessionBusConnected.Set(0)
		logger.Log.Warn("session_bus_disconnected", zap.Error(err))
	})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("session bus connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("session bus connect: %w", err)
	}
	return nil
}

// onMessage runs on the paho network goroutine; it only parses and hands
// off, never touches shared state directly.
func (b *Broadcaster) onMessage(_ mqtt.Client, msg mqtt.Message) {
	m := SessionMap{}
	payload := msg.Payload()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &m); err != nil {
			logger.Log.Warn("session_payload_invalid", zap.Error(err))
			return
		}
	}
	select {
	case b.events <- m:
	default:
		logger.Log.Warn("session_event_dropped")
	}
}

// Events exposes parsed retained payloads for the host loop.
func (b *Broadcaster) Events() <-chan SessionMap { return b.events }

// Apply records the latest retained payload and attempts to recover this
// device's session token from it. Decrypt failure means "no session":
// route to login, log at error.
func (b *Broadcaster) Apply(m SessionMap) (string, bool) {
	b.mu.Lock()
	b.latest = m
	b.mu.Unlock()

	encoded, ok := m[b.DeviceID]
	if !ok {
		return "", false
	}
	token, err := b.Keeper.DecryptToken(encoded)
	if err != nil {
		logger.Log.Error("session_decrypt_failed", zap.String("device", b.DeviceID), zap.Error(err))
		return "", false
	}
	return token, true
}

// AwaitStartup blocks for the retained session document and returns this
// device's decrypted token when present. After StartupWait (or ctx
// cancellation) it reports no session and the caller shows login.
func (b *Broadcaster) AwaitStartup(ctx context.Context) (string, bool) {
	timer := time.NewTimer(StartupWait)
	defer timer.Stop()
	for {
		select {
		case m := <-b.events:
			if token, ok := b.Apply(m); ok {
				return token, true
			}
			// retained payload without our device: login
			return "", false
		case <-timer.C:
			logger.Log.Info("session_startup_timeout")
			return "", false
		case <-ctx.Done():
			return "", false
		}
	}
}

// PublishSession encrypts the token and republishes the retained document
// with this device's entry set. Primary instances only.
func (b *Broadcaster) PublishSession(token string) error {
	encoded, err := b.Keeper.EncryptToken(token)
	if err != nil {
		return fmt.Errorf("encrypt session token: %w", err)
	}

	b.mu.Lock()
	m := SessionMap{}
	for k, v := range b.latest {
		m[k] = v
	}
	m[b.DeviceID] = encoded
	b.latest = m
	b.mu.Unlock()

	return b.publish(m)
}

// ClearAllSessions publishes an empty retained payload. Only call when
// certain no other device holds an active session; a concurrent login from
// another device would be wiped. Normal shutdown never calls this; the
// session expires by the token's own mechanism.
func (b *Broadcaster) ClearAllSessions() error {
	b.mu.Lock()
	b.latest = SessionMap{}
	b.mu.Unlock()
	return b.publish(SessionMap{})
}

func (b *Broadcaster) publish(m SessionMap) error {
	if b.client == nil || !b.client.IsConnected() {
		// bus down: skip the publish, never block shutdown
		logger.Log.Warn("session_publish_skipped")
		return nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	token := b.client.Publish(b.Topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("session publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("session publish: %w", err)
	}
	logger.Log.Info("session_published", zap.Int("devices", len(m)))
	return nil
}

// ConnectionState reports whether the bus is currently connected; exposed
// to the GUI.
func (b *Broadcaster) ConnectionState() bool {
	return b.client != nil && b.client.IsConnected()
}

// Close disconnects from the broker without mutating the retained
// document.
func (b *Broadcaster) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	telemetry.SessionBusConnected.Set(0)
}
