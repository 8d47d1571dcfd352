package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/influxdb"
)

// testConfig points at a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "facility",
		BatchSize:     50,
		FlushInterval: 1,
	}
}

func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("RUN_INTEGRATION not set, skipping InfluxDB integration test")
	}
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
	if client.IsConnected() {
		t.Error("nil client reports connected")
	}
	// Writes on a nil client are dropped.
	client.WriteManifestSummary("site-001", false, 1, 1, 0, time.Second, time.Now())
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteTelemetry(t *testing.T) {
	client := connectOrSkip(t)

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	now := time.Now()
	temp, target := 66.5, 68.0
	client.WriteManifestSummary("site-it", false, 3, 2, 0, 40*time.Millisecond, now)
	client.WriteThermostatDirective("site-it", "tstat-it", "heat", &temp, &target, now)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestClose_Disconnects(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}
