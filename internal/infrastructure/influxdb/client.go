package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 50
	fallbackFlushInterval = 10 * time.Second
)

// pointWriter is the part of api.WriteAPI the client needs.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client writes compile telemetry through the non-blocking, batched write
// API. Safe for concurrent use.
type Client struct {
	influx influxdb2.Client
	writer pointWriter
	open   atomic.Bool

	mu      sync.Mutex
	onError func(error)
}

// newClient wraps an already-prepared writer.
func newClient(influx influxdb2.Client, w pointWriter) *Client {
	c := &Client{influx: influx, writer: w}
	c.open.Store(true)
	return c
}

// Connect pings the server and starts the batched writer. It returns
// ErrDisabled when influxdb.enabled is false.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batch).
			SetFlushInterval(uint(flush.Milliseconds())))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	writeAPI := influx.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(influx, writeAPI)
	go c.forwardErrors(writeAPI.Errors())
	return c, nil
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	healthy, err := influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server reports unhealthy")
	}
	return nil
}

// forwardErrors drains the write API's error channel until Close.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.Lock()
		fn := c.onError
		c.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError registers a callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// IsConnected reports whether writes are being accepted.
func (c *Client) IsConnected() bool {
	return c != nil && c.open.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.influx == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.influx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush blocks until buffered points are sent. No-op once closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}

// Close flushes and releases the client. Safe on a nil or closed client.
func (c *Client) Close() error {
	if c == nil || !c.open.CompareAndSwap(true, false) {
		return nil
	}
	c.writer.Flush()
	if c.influx != nil {
		c.influx.Close()
	}
	return nil
}
