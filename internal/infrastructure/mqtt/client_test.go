package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-facility-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// disconnectedClient is a Client that never connected.
func disconnectedClient() *Client {
	return newClient(testConfig())
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.ThermostatState("tstat-1"), "graylogic/facility/state/thermostat/tstat-1"},
		{topics.AllThermostatStates(), "graylogic/facility/state/thermostat/+"},
		{topics.ThermostatCommand("tstat-1"), "graylogic/facility/command/thermostat/tstat-1"},
		{topics.Manifest("site-001"), "graylogic/facility/manifest/site-001"},
		{topics.SystemStatus(), "graylogic/facility/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestThermostatIDFromStateTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"graylogic/facility/state/thermostat/tstat-1", "tstat-1", true},
		{"graylogic/facility/state/thermostat/", "", false},
		{"graylogic/facility/state/thermostat/a/b", "", false},
		{"graylogic/facility/command/thermostat/tstat-1", "", false},
	}
	for _, tt := range tests {
		got, ok := ThermostatIDFromStateTopic(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ThermostatIDFromStateTopic(%q) = %q, %v", tt.topic, got, ok)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "facility"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "graylogic-facility-test" || opts.Username != "facility" || opts.Password != "secret" {
		t.Errorf("identity = %s/%s", opts.ClientID, opts.Username)
	}
	if !opts.AutoReconnect || opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("reconnect = %v/%v", opts.AutoReconnect, opts.MaxReconnectInterval)
	}
	if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != (Topics{}).SystemStatus() {
		t.Errorf("LWT = %v %v %q", opts.WillEnabled, opts.WillRetained, opts.WillTopic)
	}
	if opts.TLSConfig != nil {
		t.Error("TLS configured without broker.tls")
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	tlsOpts := buildClientOptions(cfg)
	if tlsOpts.Servers[0].String() != "ssl://127.0.0.1:8883" || tlsOpts.TLSConfig == nil {
		t.Errorf("TLS options = %v", tlsOpts.Servers)
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal(statusPayload("svc", "offline", "graceful_shutdown"), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Status != "offline" || msg.ClientID != "svc" || msg.Reason != "graceful_shutdown" || msg.Timestamp == "" {
		t.Errorf("status = %+v", msg)
	}
}

func TestPublishValidation(t *testing.T) {
	c := disconnectedClient()
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "a/b", []byte("x"), 1, ErrNotConnected},
		{"nil payload not connected", "a/b", nil, 0, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := disconnectedClient()
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic err = %v", err)
	}
	if err := c.Subscribe("a/b", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("invalid qos err = %v", err)
	}
	if err := c.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler err = %v", err)
	}
	if err := c.Subscribe("a/b", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected err = %v", err)
	}
	if c.SubscriptionCount() != 0 || c.HasSubscription("a/b") {
		t.Error("failed subscription was tracked")
	}
	if err := c.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe err = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	c := disconnectedClient()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() err = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) err = %v", err)
	}
}

func TestCloseNeverConnected(t *testing.T) {
	if err := disconnectedClient().Close(); err != nil {
		t.Errorf("Close() err = %v", err)
	}
}

func TestDispatch(t *testing.T) {
	c := disconnectedClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var got []byte
	c.dispatch(func(_ string, payload []byte) error {
		got = payload
		return nil
	}, "t", []byte("ok"))
	if string(got) != "ok" {
		t.Errorf("handler payload = %q", got)
	}

	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)

	if len(logger.warns) != 1 || len(logger.errors) != 1 {
		t.Errorf("warns=%v errors=%v, want one of each", logger.warns, logger.errors)
	}
}

// TestPublishSubscribeRoundtrip needs a broker; set GRAYLOGIC_TEST_MQTT_PORT to run it.
func TestPublishSubscribeRoundtrip(t *testing.T) {
	portEnv := os.Getenv("GRAYLOGIC_TEST_MQTT_PORT")
	if portEnv == "" {
		t.Skip("GRAYLOGIC_TEST_MQTT_PORT not set")
	}
	port, err := strconv.Atoi(portEnv)
	if err != nil {
		t.Fatalf("bad port %q", portEnv)
	}

	cfg := testConfig()
	cfg.Broker.Port = port
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	received := make(chan string, 1)
	err = client.Subscribe(Topics{}.AllThermostatStates(), 1, func(topic string, _ []byte) error {
		id, _ := ThermostatIDFromStateTopic(topic)
		received <- id
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := client.Publish(Topics{}.ThermostatState("tstat-9"), []byte(`{"temperature":70}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case id := <-received:
		if id != "tstat-9" {
			t.Errorf("received id %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
