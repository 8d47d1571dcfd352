package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastBody = `{
	"latitude": 51.5,
	"longitude": -0.12,
	"current": {
		"time": "2026-03-02T09:00",
		"temperature_2m": 48.2,
		"relative_humidity_2m": 81,
		"cloud_cover": 75,
		"wind_speed_10m": 9.4,
		"weather_code": 3,
		"is_day": 1,
		"shortwave_radiation": 210
	}
}`

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newForecastServer(t *testing.T, hits *int32, status *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if code := atomic.LoadInt32(status); code != http.StatusOK {
			w.WriteHeader(int(code))
			_, _ = w.Write([]byte(`{"error":true,"reason":"unavailable"}`))
			return
		}
		assert.Equal(t, "51.5000", r.URL.Query().Get("latitude"))
		assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		assert.Contains(t, r.URL.Query().Get("current"), "shortwave_radiation")
		_, _ = w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrent_ParsesSnapshot(t *testing.T) {
	var hits, status int32 = 0, http.StatusOK
	srv := newForecastServer(t, &hits, &status)
	clk := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	c := NewClient(Config{BaseURL: srv.URL, TemperatureUnit: "F"}, nil, WithClock(clk.now))

	snap, err := c.Current(context.Background(), 51.5, -0.12)
	require.NoError(t, err)

	assert.Equal(t, 48.2, snap.Temperature)
	assert.Equal(t, 81.0, snap.Humidity)
	assert.Equal(t, 3, snap.WeatherCode)
	assert.True(t, snap.IsDay)
	assert.Equal(t, 210*IlluminancePerWattM2, snap.Illuminance)
	assert.Equal(t, clk.t, snap.FetchedAt)
	assert.False(t, snap.Stale)
}

func TestCurrent_ReusesFreshSnapshot(t *testing.T) {
	var hits, status int32 = 0, http.StatusOK
	srv := newForecastServer(t, &hits, &status)
	clk := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	c := NewClient(Config{BaseURL: srv.URL, TemperatureUnit: "F", Staleness: 30 * time.Minute}, nil, WithClock(clk.now))
	ctx := context.Background()

	_, err := c.Current(ctx, 51.5, -0.12)
	require.NoError(t, err)

	clk.advance(29 * time.Minute)
	_, err = c.Current(ctx, 51.5, -0.12)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "fresh snapshot should be reused")

	clk.advance(2 * time.Minute)
	_, err = c.Current(ctx, 51.5, -0.12)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "stale snapshot should be refetched")
}

func TestCurrent_FallsBackToStale(t *testing.T) {
	var hits, status int32 = 0, http.StatusOK
	srv := newForecastServer(t, &hits, &status)
	clk := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	c := NewClient(Config{BaseURL: srv.URL, TemperatureUnit: "F"}, nil, WithClock(clk.now))
	ctx := context.Background()

	first, err := c.Current(ctx, 51.5, -0.12)
	require.NoError(t, err)

	atomic.StoreInt32(&status, http.StatusServiceUnavailable)
	clk.advance(time.Hour)

	snap, err := c.Current(ctx, 51.5, -0.12)
	require.NoError(t, err)
	assert.True(t, snap.Stale)
	assert.Equal(t, first.FetchedAt, snap.FetchedAt)
	assert.Equal(t, first.Temperature, snap.Temperature)
}

func TestCurrent_ErrorWithoutCache(t *testing.T) {
	var hits, status int32 = 0, http.StatusInternalServerError
	srv := newForecastServer(t, &hits, &status)
	c := NewClient(Config{BaseURL: srv.URL}, nil)

	_, err := c.Current(context.Background(), 51.5, -0.12)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestGeocode(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("name") == "Atlantis" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"name":"Leeds","latitude":53.7965,"longitude":-1.5478,"timezone":"Europe/London"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{GeocodingURL: srv.URL}, nil)
	ctx := context.Background()

	loc, err := c.Geocode(ctx, "Leeds")
	require.NoError(t, err)
	assert.Equal(t, 53.7965, loc.Latitude)
	assert.Equal(t, "Europe/London", loc.Timezone)

	_, err = c.Geocode(ctx, "leeds ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "geocode result should be cached")

	_, err = c.Geocode(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrCityNotFound)

	_, err = c.Geocode(ctx, "  ")
	assert.ErrorIs(t, err, ErrNoCoordinates)
}

func TestMemoryCache_Expiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clk.now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	clk.advance(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestEstimateIlluminance(t *testing.T) {
	assert.Equal(t, 0.0, estimateIlluminance(-5))
	assert.Equal(t, 0.0, estimateIlluminance(0))
	assert.Equal(t, 12000.0, estimateIlluminance(100))
}
