package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

// Logger is the optional logging dependency. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler receives one inbound message on a paho goroutine. A
// returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

type route struct {
	qos     byte
	handler MessageHandler
}

// Client is a paho connection that remembers its subscriptions and
// re-applies them after every reconnect. Safe for concurrent use.
type Client struct {
	paho      pahomqtt.Client
	cfg       config.MQTTConfig
	connected atomic.Bool

	mu           sync.RWMutex
	routes       map[string]route
	onConnect    func()
	onDisconnect func(error)
	logger       Logger
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{cfg: cfg, routes: make(map[string]route)}
}

// Connect dials the broker and blocks until the first CONNACK or
// defaultConnectTimeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connectedHook() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lostHook(err) })
	c.paho = pahomqtt.NewClient(opts)

	tok := c.paho.Connect()
	if !tok.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: no CONNACK within %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The paho OnConnect hook may not have run yet.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) connectedHook() {
	c.connected.Store(true)

	c.mu.RLock()
	for topic, r := range c.routes {
		c.paho.Subscribe(topic, r.qos, c.adapt(r.handler))
	}
	hook := c.onConnect
	c.mu.RUnlock()

	c.announce("online", "")
	if hook != nil {
		hook()
	}
}

func (c *Client) lostHook(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	hook, logger := c.onDisconnect, c.logger
	c.mu.RUnlock()

	if logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}
	if hook != nil {
		hook(err)
	}
}

// announce publishes the retained service presence message.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	return c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, status, reason))
}

// Close marks the service offline and disconnects. It is a no-op for a
// client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.announce("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMillis)
	c.connected.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known link state.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// SetOnConnect registers a callback for every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback for a lost connection.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets where handler failures are reported.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) adapt(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(h, msg.Topic(), msg.Payload())
	}
}

// dispatch runs h, turning a panic into a logged error so one bad message
// cannot kill paho's router goroutine.
func (c *Client) dispatch(h MessageHandler, topic string, payload []byte) {
	c.mu.RLock()
	logger := c.logger
	c.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("MQTT handler panicked", "topic", topic, "panic", r)
		}
	}()

	if err := h(topic, payload); err != nil && logger != nil {
		logger.Warn("MQTT handler failed", "topic", topic, "error", err)
	}
}
