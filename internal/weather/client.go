package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default settings.
const (
	DefaultBaseURL      = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultTimeout      = 10 * time.Second
	defaultStaleness    = 30 * time.Minute
	defaultCacheTTL     = 24 * time.Hour
	maxResponseSize     = 1 << 20
)

const currentFields = "temperature_2m,relative_humidity_2m,cloud_cover,wind_speed_10m,weather_code,is_day,shortwave_radiation"

// Config holds client settings.
type Config struct {
	BaseURL      string
	GeocodingURL string
	Timeout      time.Duration
	Staleness    time.Duration
	CacheTTL     time.Duration

	// TemperatureUnit is "F" or "C".
	TemperatureUnit string
}

// Logger is the logging dependency.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Client fetches and caches weather snapshots.
//
// Thread Safety: safe for concurrent use when the Cache is.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      Cache
	logger     Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client's logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client. A nil cache uses a MemoryCache.
func NewClient(cfg Config, cache Cache, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = DefaultGeocodingURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Staleness <= 0 {
		cfg.Staleness = defaultStaleness
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     noopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the weather at a location, preferring a fresh cached
// snapshot and falling back to a stale one when the request fails.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	key := snapshotKey(lat, lon)

	cached := c.cached(ctx, key)
	if cached != nil && c.now().Sub(cached.FetchedAt) < c.cfg.Staleness {
		return cached, nil
	}

	snap, err := c.fetch(ctx, lat, lon)
	if err != nil {
		if cached != nil {
			c.logger.Warn("weather fetch failed, using stale snapshot",
				"key", key, "fetched_at", cached.FetchedAt, "error", err)
			cached.Stale = true
			return cached, nil
		}
		return nil, err
	}

	if data, mErr := json.Marshal(snap); mErr == nil {
		if sErr := c.cache.Set(ctx, key, data, c.cfg.CacheTTL); sErr != nil {
			c.logger.Warn("caching weather snapshot failed", "key", key, "error", sErr)
		}
	}
	return snap, nil
}

// Geocode resolves a city name to coordinates. Results are cached.
func (c *Client) Geocode(ctx context.Context, city string) (*Location, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrNoCoordinates
	}
	key := "geo:" + strings.ToLower(city)

	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var loc Location
		if json.Unmarshal(data, &loc) == nil {
			return &loc, nil
		}
	}

	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("format", "json")

	var resp geocodingResponse
	if err := c.getJSON(ctx, c.cfg.GeocodingURL, q, &resp); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", city, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	}

	loc := resp.Results[0]
	if data, err := json.Marshal(loc); err == nil {
		if sErr := c.cache.Set(ctx, key, data, 0); sErr != nil {
			c.logger.Warn("caching geocode failed", "city", city, "error", sErr)
		}
	}
	return &loc, nil
}

func (c *Client) cached(ctx context.Context, key string) *Snapshot {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("weather cache read failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s.Stale = false
	return &s
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", currentFields)
	if strings.EqualFold(c.cfg.TemperatureUnit, "F") {
		q.Set("temperature_unit", "fahrenheit")
	}

	var resp openMeteoResponse
	if err := c.getJSON(ctx, c.cfg.BaseURL, q, &resp); err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}

	cur := resp.Current
	return &Snapshot{
		Latitude:           lat,
		Longitude:          lon,
		Temperature:        cur.Temperature,
		Humidity:           cur.Humidity,
		CloudCover:         cur.CloudCover,
		WindSpeed:          cur.WindSpeed,
		WeatherCode:        cur.WeatherCode,
		IsDay:              cur.IsDay == 1,
		ShortwaveRadiation: cur.ShortwaveRadiation,
		Illuminance:        estimateIlluminance(cur.ShortwaveRadiation),
		FetchedAt:          c.now().UTC().Truncate(time.Second),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// snapshotKey rounds to two decimals (~1 km) so nearby sites share an entry.
func snapshotKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f,%.2f", lat, lon)
}
