package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-facility/internal/astro"
	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/smartstart"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
	"github.com/nerrad567/gray-logic-facility/internal/weather"
)

// EventCompiled is the event type and WebSocket channel for compiled manifests.
const EventCompiled = "manifest.compiled"

// Entities is the read side of the entity store. facility.Repository
// satisfies it.
type Entities interface {
	GetSite(ctx context.Context, id string) (*facility.Site, error)
	ListWeeklyHours(ctx context.Context, siteID string) ([]hours.WeeklyHours, error)
	ListExceptionRules(ctx context.Context, siteID string) ([]hours.ExceptionRule, error)
	ListEquipment(ctx context.Context, siteID string) ([]equipment.Entry, error)
	ListZones(ctx context.Context, siteID string) ([]thermostat.Zone, error)
	ListProfiles(ctx context.Context) ([]thermostat.Profile, error)
	ListThermostats(ctx context.Context, siteID string) ([]thermostat.Device, error)
}

// StateStore reads thermostat readings and stores directives.
// devicestate.Repository satisfies it.
type StateStore interface {
	ListReadings(ctx context.Context, siteID string) (map[string]thermostat.Reading, error)
	WriteDirective(ctx context.Context, thermostatID string, d thermostat.Directive, at time.Time) error
}

// WeatherSource supplies weather snapshots and geocoding.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
	Geocode(ctx context.Context, city string) (*weather.Location, error)
}

// SunCalculator supplies sun times for a location and date.
type SunCalculator interface {
	SunTimes(lat, lon float64, d timeutil.Date, loc *time.Location) astro.SunTimes
}

// Pusher applies a manifest to equipment.
type Pusher interface {
	Push(ctx context.Context, m *Manifest) error
}

// EventPublisher emits keyed events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Broadcaster sends a payload to WebSocket subscribers of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Metrics records compile outcomes.
type Metrics interface {
	ObserveCompile(siteID string, duration time.Duration, err error)
	ObserveDirective(action string)
	ObservePush(status string)
	ObserveEntryErrors(siteID string, n int)
}

// Telemetry writes time-series points for a compiled manifest.
type Telemetry interface {
	WriteManifestSummary(siteID string, closed bool, equipment, thermostats, errs int, duration time.Duration, at time.Time)
	WriteThermostatDirective(siteID, thermostatID, action string, temperature, target *float64, at time.Time)
}

// Logger is the logging dependency.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result is the outcome of one compilation.
type Result struct {
	Record   *Record
	Manifest *Manifest
}

// Compiler compiles and stores manifests.
//
// Thread Safety: Compile may be called concurrently for different sites.
// Concurrent compiles of the same (site, date) race only on the upsert,
// which SQLite serialises.
type Compiler struct {
	entities Entities
	state    StateStore
	repo     Repository

	sun        SunCalculator
	weather    WeatherSource
	smartStart *smartstart.Calculator
	pusher     Pusher
	events     EventPublisher
	hub        Broadcaster
	metrics    Metrics
	telemetry  Telemetry

	unit    string
	timeout time.Duration
	logger  Logger
	now     func() time.Time
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithSunCalculator overrides the default astronomical calculator.
func WithSunCalculator(s SunCalculator) Option { return func(c *Compiler) { c.sun = s } }

// WithWeather enables weather snapshots and city geocoding.
func WithWeather(w WeatherSource) Option { return func(c *Compiler) { c.weather = w } }

// WithSmartStart enables preconditioning estimates.
func WithSmartStart(s *smartstart.Calculator) Option { return func(c *Compiler) { c.smartStart = s } }

// WithPusher enables MQTT push. Without one, push status is "skipped".
func WithPusher(p Pusher) Option { return func(c *Compiler) { c.pusher = p } }

// WithEventPublisher enables event bus publishing.
func WithEventPublisher(p EventPublisher) Option { return func(c *Compiler) { c.events = p } }

// WithBroadcaster enables WebSocket broadcast.
func WithBroadcaster(b Broadcaster) Option { return func(c *Compiler) { c.hub = b } }

// WithMetrics enables metrics.
func WithMetrics(m Metrics) Option { return func(c *Compiler) { c.metrics = m } }

// WithTelemetry enables time-series telemetry.
func WithTelemetry(t Telemetry) Option { return func(c *Compiler) { c.telemetry = t } }

// WithUnit sets the temperature unit used in directive messages.
func WithUnit(unit string) Option { return func(c *Compiler) { c.unit = unit } }

// WithTimeout bounds each Compile call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Compiler) { c.timeout = d } }

// WithLogger sets the compiler's logger.
func WithLogger(l Logger) Option { return func(c *Compiler) { c.logger = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(c *Compiler) { c.now = now } }

// NewCompiler creates a Compiler over the given stores.
func NewCompiler(entities Entities, state StateStore, repo Repository, opts ...Option) *Compiler {
	c := &Compiler{
		entities: entities,
		state:    state,
		repo:     repo,
		sun:      astro.NewCalculator(),
		unit:     thermostat.DefaultUnit,
		logger:   noopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the current date in the site's time zone.
func (c *Compiler) Today(site facility.Site) timeutil.Date {
	loc, _ := site.Location()
	return timeutil.Today(c.now(), loc)
}

// ResolveHours returns a site's effective hours for a date without
// compiling or storing anything.
func (c *Compiler) ResolveHours(ctx context.Context, siteID string, date timeutil.Date) (*hours.Resolution, error) {
	if _, err := c.entities.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	weekly, err := c.entities.ListWeeklyHours(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("loading weekly hours: %w", err)
	}
	rules, err := c.entities.ListExceptionRules(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("loading exception rules: %w", err)
	}
	res := hours.Resolve(date, weekly, rules)
	return &res, nil
}

// Compile builds, stores and distributes the manifest for one site and
// date. It fails only when the site or its hours cannot be read or the
// upsert fails; everything after the upsert is best effort.
func (c *Compiler) Compile(ctx context.Context, siteID string, date timeutil.Date) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.now()
	res, err := c.compile(ctx, siteID, date)
	duration := c.now().Sub(start)

	if c.metrics != nil {
		c.metrics.ObserveCompile(siteID, duration, err)
	}
	if err != nil {
		c.logger.Error("manifest compile failed", "site_id", siteID, "date", date.String(), "error", err)
		return nil, err
	}

	c.logger.Info("manifest compiled",
		"site_id", siteID,
		"date", date.String(),
		"closed", res.Manifest.Hours.Hours.Closed,
		"equipment", len(res.Manifest.Equipment),
		"thermostats", len(res.Manifest.Thermostats),
		"errors", len(res.Manifest.Errors),
		"push_status", res.Record.PushStatus,
		"duration", duration,
	)

	if c.metrics != nil {
		c.metrics.ObserveEntryErrors(siteID, len(res.Manifest.Errors))
	}
	if c.telemetry != nil {
		c.writeTelemetry(res, duration)
	}
	return res, nil
}

func (c *Compiler) compile(ctx context.Context, siteID string, date timeutil.Date) (*Result, error) {
	site, err := c.entities.GetSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	in, err := c.gather(ctx, *site, date)
	if err != nil {
		return nil, err
	}

	m := Assemble(in)
	doc, err := Encode(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	compiledAt := c.now().UTC().Truncate(time.Second)
	rec, err := c.repo.Upsert(ctx, siteID, date, doc, compiledAt)
	if err != nil {
		return nil, err
	}

	res := &Result{Record: rec, Manifest: m}
	c.fanOut(ctx, res, compiledAt)
	return res, nil
}

// gather reads every input concurrently. Only weekly hours and exception
// rules are required; other failures become manifest errors or notes.
func (c *Compiler) gather(ctx context.Context, site facility.Site, date timeutil.Date) (Inputs, error) {
	in := Inputs{
		Site:       site,
		Date:       date,
		Unit:       c.unit,
		SmartStart: c.smartStart,
	}

	var equipmentErr, zonesErr, profilesErr, devicesErr, readingsErr error
	var profiles []thermostat.Profile
	var geo geoResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weekly, err := c.entities.ListWeeklyHours(gctx, site.ID)
		if err != nil {
			return fmt.Errorf("loading weekly hours: %w", err)
		}
		in.Weekly = weekly
		return nil
	})
	g.Go(func() error {
		rules, err := c.entities.ListExceptionRules(gctx, site.ID)
		if err != nil {
			return fmt.Errorf("loading exception rules: %w", err)
		}
		in.Rules = rules
		return nil
	})
	g.Go(func() error {
		in.Equipment, equipmentErr = c.entities.ListEquipment(gctx, site.ID)
		return nil
	})
	g.Go(func() error {
		in.Zones, zonesErr = c.entities.ListZones(gctx, site.ID)
		return nil
	})
	g.Go(func() error {
		profiles, profilesErr = c.entities.ListProfiles(gctx)
		return nil
	})
	g.Go(func() error {
		in.Thermostats, devicesErr = c.entities.ListThermostats(gctx, site.ID)
		return nil
	})
	g.Go(func() error {
		in.Readings, readingsErr = c.state.ListReadings(gctx, site.ID)
		return nil
	})
	g.Go(func() error {
		geo = c.locate(gctx, site, date)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}

	in.Profiles = make(map[string]thermostat.Profile, len(profiles))
	for _, p := range profiles {
		in.Profiles[p.ID] = p
	}

	for _, f := range []struct {
		what string
		err  error
	}{
		{"equipment", equipmentErr},
		{"zones", zonesErr},
		{"profiles", profilesErr},
		{"thermostats", devicesErr},
		{"readings", readingsErr},
	} {
		if f.err != nil {
			in.Errors = append(in.Errors, EntryError{Kind: KindInput, ID: f.what, Message: f.err.Error()})
		}
	}

	in.Sun = geo.sun
	in.Weather = geo.weather
	in.Notes = geo.notes
	return in, nil
}

type geoResult struct {
	sun     *astro.SunTimes
	weather *weather.Snapshot
	notes   []string
}

// locate resolves coordinates, then sun times and weather. A site with
// no usable location gets neither, which is a degraded but valid result.
func (c *Compiler) locate(ctx context.Context, site facility.Site, date timeutil.Date) geoResult {
	var r geoResult

	loc, ok := site.Location()
	if !ok {
		r.notes = append(r.notes, fmt.Sprintf("unknown timezone %q, using UTC", site.Timezone))
	}

	var lat, lon float64
	switch {
	case site.HasCoordinates():
		lat, lon = *site.Latitude, *site.Longitude
	case site.City != nil && *site.City != "" && c.weather != nil:
		found, err := c.weather.Geocode(ctx, *site.City)
		if err != nil {
			c.logger.Warn("geocoding failed", "site_id", site.ID, "city", *site.City, "error", err)
			r.notes = append(r.notes, "geocoding failed: sun times and weather omitted")
			return r
		}
		lat, lon = found.Latitude, found.Longitude
		r.notes = append(r.notes, fmt.Sprintf("coordinates geocoded from city %q", *site.City))
	default:
		r.notes = append(r.notes, "no coordinates: sun times and weather omitted")
		return r
	}

	sun := c.sun.SunTimes(lat, lon, date, loc)
	r.sun = &sun

	if c.weather != nil {
		snap, err := c.weather.Current(ctx, lat, lon)
		if err != nil {
			c.logger.Warn("weather unavailable", "site_id", site.ID, "error", err)
			r.notes = append(r.notes, "weather unavailable")
		} else {
			r.weather = snap
		}
	}
	return r
}

// fanOut runs the post-persistence steps in order. None of them can fail
// the compilation.
func (c *Compiler) fanOut(ctx context.Context, res *Result, compiledAt time.Time) {
	c.writeBack(ctx, res.Manifest, compiledAt)
	c.push(ctx, res, compiledAt)
	summary := res.Summary()
	c.publish(ctx, summary)
	if c.hub != nil {
		c.hub.Broadcast(EventCompiled, summary)
	}
	if c.metrics != nil {
		for _, t := range res.Manifest.Thermostats {
			c.metrics.ObserveDirective(string(t.Directive.Action))
		}
		c.metrics.ObservePush(string(res.Record.PushStatus))
	}
}

// writeBack stores each zoned thermostat's directive. No-zone entries are
// never written so they cannot replace a live directive.
func (c *Compiler) writeBack(ctx context.Context, m *Manifest, at time.Time) {
	for _, t := range m.Thermostats {
		if !t.HasZone() {
			continue
		}
		err := c.state.WriteDirective(ctx, t.ThermostatID, t.Directive, at)
		if err != nil {
			c.logger.Warn("directive write-back failed", "site_id", m.SiteID, "thermostat_id", t.ThermostatID, "error", err)
		}
	}
}

func (c *Compiler) push(ctx context.Context, res *Result, at time.Time) {
	status := PushSkipped
	var pushErr *string

	if c.pusher != nil {
		if err := c.pusher.Push(ctx, res.Manifest); err != nil {
			msg := err.Error()
			status, pushErr = PushFailed, &msg
			c.logger.Warn("manifest push failed", "site_id", res.Record.SiteID, "error", err)
		} else {
			status = PushSent
		}
	}

	if err := c.repo.UpdatePushStatus(ctx, res.Record.ID, status, pushErr, at); err != nil {
		c.logger.Error("recording push status failed", "manifest_id", res.Record.ID, "error", err)
		return
	}
	res.Record.PushStatus = status
	res.Record.PushError = pushErr
	if status == PushSent || status == PushFailed {
		t := at
		res.Record.PushedAt = &t
	}
}

func (c *Compiler) publish(ctx context.Context, s Summary) {
	if c.events == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		Summary
	}{Type: EventCompiled, Summary: s})
	if err != nil {
		c.logger.Error("encoding manifest event failed", "error", err)
		return
	}
	if err := c.events.Publish(ctx, s.SiteID, payload); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("manifest event publish failed", "site_id", s.SiteID, "error", err)
	}
}

func (c *Compiler) writeTelemetry(res *Result, duration time.Duration) {
	m := res.Manifest
	at := res.Record.CompiledAt
	c.telemetry.WriteManifestSummary(m.SiteID, m.Hours.Hours.Closed,
		len(m.Equipment), len(m.Thermostats), len(m.Errors), duration, at)
	for _, t := range m.Thermostats {
		if !t.HasZone() {
			continue
		}
		c.telemetry.WriteThermostatDirective(m.SiteID, t.ThermostatID, string(t.Directive.Action),
			t.Directive.CurrentTemperature, t.Directive.TargetSetpoint, at)
	}
}

// Summary is the compact event form of a compile result.
func (res *Result) Summary() Summary {
	m := res.Manifest
	return Summary{
		ManifestID:      res.Record.ID,
		SiteID:          m.SiteID,
		Date:            m.Date,
		Closed:          m.Hours.Hours.Closed,
		EquipmentCount:  len(m.Equipment),
		ThermostatCount: len(m.Thermostats),
		ErrorCount:      len(m.Errors),
		PushStatus:      res.Record.PushStatus,
		CompiledAt:      res.Record.CompiledAt,
	}
}
