package devicestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
)

// Subscriber is the MQTT dependency of the Ingestor. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging dependency.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Ingestor copies thermostat state messages into the repository.
type Ingestor struct {
	repo    Repository
	sub     Subscriber
	qos     byte
	logger  Logger
	now     func() time.Time
	timeout time.Duration
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets the ingestor's logger.
func WithLogger(l Logger) IngestorOption {
	return func(i *Ingestor) { i.logger = l }
}

// WithClock overrides the time source used to stamp readings.
func WithClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) { i.now = now }
}

const defaultWriteTimeout = 5 * time.Second

// NewIngestor creates an Ingestor subscribing at the given QoS.
func NewIngestor(repo Repository, sub Subscriber, qos byte, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		repo:    repo,
		sub:     sub,
		qos:     qos,
		logger:  noopLogger{},
		now:     time.Now,
		timeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start subscribes to every thermostat state topic.
func (i *Ingestor) Start() error {
	if err := i.sub.Subscribe(mqtt.Topics{}.AllThermostatStates(), i.qos, i.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to thermostat states: %w", err)
	}
	return nil
}

// Stop unsubscribes.
func (i *Ingestor) Stop() error {
	return i.sub.Unsubscribe(mqtt.Topics{}.AllThermostatStates())
}

// HandleMessage parses one state message and records it. Readings for
// thermostats the entity store does not know are dropped.
func (i *Ingestor) HandleMessage(topic string, payload []byte) error {
	id, ok := mqtt.ThermostatIDFromStateTopic(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidReading, topic)
	}

	var p ReadingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	if p.Temperature == nil && p.Setpoint == nil {
		return fmt.Errorf("%w: neither temperature nor setpoint present", ErrInvalidReading)
	}

	readAt := i.now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	err := i.repo.RecordReading(ctx, thermostat.Reading{
		ThermostatID:   id,
		Temperature:    p.Temperature,
		ActualSetpoint: p.Setpoint,
		ReadAt:         &readAt,
	})
	if errors.Is(err, ErrUnknownThermostat) {
		i.logger.Warn("reading for unknown thermostat dropped", "thermostat_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	i.logger.Debug("thermostat reading recorded", "thermostat_id", id)
	return nil
}
