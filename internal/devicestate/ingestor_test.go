package devicestate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/mqtt"
)

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	unsubs  []string
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic, f.qos, f.handler = topic, qos, handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	f.unsubs = append(f.unsubs, topic)
	return nil
}

func TestIngestor_Start(t *testing.T) {
	repo := setupTestDB(t)
	sub := &fakeSubscriber{}
	ing := NewIngestor(repo, sub, 1)

	if err := ing.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sub.topic != "graylogic/facility/state/thermostat/+" || sub.qos != 1 {
		t.Errorf("subscribed to %q at qos %d", sub.topic, sub.qos)
	}
	if sub.handler == nil {
		t.Fatal("no handler registered")
	}

	if err := ing.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(sub.unsubs) != 1 || sub.unsubs[0] != sub.topic {
		t.Errorf("unsubscribed = %v", sub.unsubs)
	}
}

func TestIngestor_StartError(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("not connected")}
	ing := NewIngestor(nil, sub, 1)

	if err := ing.Start(); err == nil {
		t.Error("Start should fail when subscribe fails")
	}
}

func TestIngestor_HandleMessage(t *testing.T) {
	repo := setupTestDB(t)
	at := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	ing := NewIngestor(repo, &fakeSubscriber{}, 1, WithClock(func() time.Time { return at }))

	topic := mqtt.Topics{}.ThermostatState("tstat-1")
	if err := ing.HandleMessage(topic, []byte(`{"temperature": 69.5, "setpoint": 72}`)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	state, err := repo.GetState(context.Background(), "tstat-1")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if *state.Reading.Temperature != 69.5 || *state.Reading.ActualSetpoint != 72 {
		t.Errorf("reading = %+v", state.Reading)
	}
	if state.Reading.ReadAt == nil || !state.Reading.ReadAt.Equal(at) {
		t.Errorf("ReadAt = %v, want %v", state.Reading.ReadAt, at)
	}
}

func TestIngestor_HandleMessageRejects(t *testing.T) {
	repo := setupTestDB(t)
	ing := NewIngestor(repo, &fakeSubscriber{}, 1)

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"wrong topic", "graylogic/facility/system/status", `{"temperature": 70}`},
		{"bad json", mqtt.Topics{}.ThermostatState("tstat-1"), `{temperature`},
		{"empty reading", mqtt.Topics{}.ThermostatState("tstat-1"), `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ing.HandleMessage(tt.topic, []byte(tt.payload)); !errors.Is(err, ErrInvalidReading) {
				t.Errorf("err = %v, want ErrInvalidReading", err)
			}
		})
	}
}

func TestIngestor_UnknownThermostatDropped(t *testing.T) {
	repo := setupTestDB(t)
	ing := NewIngestor(repo, &fakeSubscriber{}, 1)

	err := ing.HandleMessage(mqtt.Topics{}.ThermostatState("ghost"), []byte(`{"temperature": 70}`))
	if err != nil {
		t.Errorf("HandleMessage for unknown thermostat = %v, want nil", err)
	}
}
