// Package push applies compiled manifests to equipment over MQTT.
//
// Each zoned thermostat's directive goes to its command topic and the
// whole manifest is published to the site's manifest topic. Push never
// changes the manifest; the compiler records the outcome alongside it.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Publisher is the MQTT dependency. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Command is the payload published to a thermostat's command topic.
type Command struct {
	ThermostatID   string            `json:"thermostat_id"`
	SiteID         string            `json:"site_id"`
	Date           timeutil.Date     `json:"date"`
	Action         thermostat.Action `json:"action"`
	Directive      string            `json:"directive"`
	Phase          thermostat.Phase  `json:"phase,omitempty"`
	HeatSetpoint   *float64          `json:"heat_setpoint,omitempty"`
	CoolSetpoint   *float64          `json:"cool_setpoint,omitempty"`
	TargetSetpoint *float64          `json:"target_setpoint,omitempty"`
	HVACMode       string            `json:"hvac_mode,omitempty"`
	FanMode        string            `json:"fan_mode,omitempty"`
}

// Config controls QoS and retention.
type Config struct {
	QoS            byte
	RetainManifest bool
}

// Pusher publishes manifests. It implements manifest.Pusher.
type Pusher struct {
	pub Publisher
	cfg Config
}

// New creates a Pusher.
func New(pub Publisher, cfg Config) *Pusher {
	return &Pusher{pub: pub, cfg: cfg}
}

// Push publishes every zoned directive and then the manifest. It keeps
// going after a failed publish and returns all failures joined.
func (p *Pusher) Push(ctx context.Context, m *manifest.Manifest) error {
	if !p.pub.IsConnected() {
		return mqtt.ErrNotConnected
	}

	var errs []error
	for _, entry := range m.Thermostats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.HasZone() {
			continue
		}
		payload, err := json.Marshal(commandFor(m, entry))
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding command for %s: %w", entry.ThermostatID, err))
			continue
		}
		topic := mqtt.Topics{}.ThermostatCommand(entry.ThermostatID)
		if err := p.pub.Publish(topic, payload, p.cfg.QoS, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", topic, err))
		}
	}

	doc, err := manifest.Encode(m)
	if err != nil {
		errs = append(errs, fmt.Errorf("encoding manifest: %w", err))
		return errors.Join(errs...)
	}
	topic := mqtt.Topics{}.Manifest(m.SiteID)
	if err := p.pub.Publish(topic, doc, p.cfg.QoS, p.cfg.RetainManifest); err != nil {
		errs = append(errs, fmt.Errorf("publishing %s: %w", topic, err))
	}
	return errors.Join(errs...)
}

func commandFor(m *manifest.Manifest, e manifest.ThermostatEntry) Command {
	d := e.Directive
	cmd := Command{
		ThermostatID:   e.ThermostatID,
		SiteID:         m.SiteID,
		Date:           m.Date,
		Action:         d.Action,
		Directive:      d.Message,
		Phase:          d.Phase,
		HeatSetpoint:   d.HeatSetpoint,
		CoolSetpoint:   d.CoolSetpoint,
		TargetSetpoint: d.TargetSetpoint,
	}
	if e.Setpoints != nil {
		cmd.HVACMode = e.Setpoints.HVACMode
		cmd.FanMode = e.Setpoints.FanMode
	}
	return cmd
}
