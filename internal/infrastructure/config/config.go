package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the facility service configuration. Values come from built-in
// defaults, then the YAML file, then GRAYLOGIC_* environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
	Compiler   CompilerConfig   `yaml:"compiler"`
	Weather    WeatherConfig    `yaml:"weather"`
	SmartStart SmartStartConfig `yaml:"smart_start"`
	Push       PushConfig       `yaml:"push"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatabaseConfig locates the facility SQLite file.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig configures the broker used for sensor ingestion and manifest push.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig addresses the broker.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds optional broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds HTTP server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout bounds reading a request, headers included.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return seconds(t.Read) }

// WriteTimeout bounds writing a response.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }

// IdleTimeout bounds how long a keep-alive connection may sit unused.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return seconds(t.Idle) }

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains /ws settings. Intervals are in seconds.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// PingPeriod is how often the server pings an idle subscriber.
func (w WebSocketConfig) PingPeriod() time.Duration { return seconds(w.PingInterval) }

// ReadDeadline is how long a subscriber may stay silent, pongs included,
// before it is dropped.
func (w WebSocketConfig) ReadDeadline() time.Duration {
	return seconds(w.PingInterval + w.PongTimeout)
}

// InfluxDBConfig configures compile telemetry export.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// RedisConfig contains the weather cache connection settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TTLHours bounds how long a snapshot survives in Redis. It is much
	// longer than the staleness threshold so a stale value can still be
	// served when the weather API is down.
	TTLHours int `yaml:"ttl_hours"`
}

// KafkaConfig contains manifest event publishing settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig selects log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig groups API authentication settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig configures HMAC-signed bearer tokens. AccessTokenTTL is in minutes.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// CompilerConfig controls scheduled manifest compilation.
type CompilerConfig struct {
	// Interval is the number of seconds between scheduled runs. Zero disables the scheduler.
	Interval int `yaml:"interval"`
	// Timeout bounds a single (site, date) compilation, in seconds.
	Timeout int `yaml:"timeout"`
	// Concurrency caps how many sites compile at once.
	Concurrency int `yaml:"concurrency"`
	// TemperatureUnit is "F" or "C"; it only affects directive messages and weather units.
	TemperatureUnit string `yaml:"temperature_unit"`
	RunOnStart      bool   `yaml:"run_on_start"`
}

// WeatherConfig contains Open-Meteo client settings.
type WeatherConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BaseURL          string `yaml:"base_url"`
	GeocodingURL     string `yaml:"geocoding_url"`
	StalenessMinutes int    `yaml:"staleness_minutes"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// SmartStartConfig contains the preconditioning estimator settings.
type SmartStartConfig struct {
	Enabled        bool    `yaml:"enabled"`
	DegreesPerHour float64 `yaml:"degrees_per_hour"`
	MaxMinutes     int     `yaml:"max_minutes"`
}

// PushConfig controls MQTT publication of compiled manifests.
type PushConfig struct {
	Enabled        bool `yaml:"enabled"`
	QoS            int  `yaml:"qos"`
	RetainManifest bool `yaml:"retain_manifest"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load builds a Config from defaults, the YAML file at path and the
// environment, in that order of precedence, then validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig is a configuration that runs against local brokers. It has
// no JWT secret, so it never validates on its own.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./data/facility.db", WALMode: true, BusyTimeout: 5},
		MQTT: MQTTConfig{
			Enabled:   true,
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "graylogic-facility"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30, Write: 60, Idle: 60},
		},
		WebSocket: WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Redis:     RedisConfig{Addr: "localhost:6379", TTLHours: 24},
		Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "facility.manifests"},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Security:  SecurityConfig{JWT: JWTConfig{AccessTokenTTL: 15}},
		Compiler: CompilerConfig{
			Interval:        900,
			Timeout:         30,
			Concurrency:     4,
			TemperatureUnit: "F",
			RunOnStart:      true,
		},
		Weather: WeatherConfig{
			Enabled:          true,
			BaseURL:          "https://api.open-meteo.com/v1/forecast",
			GeocodingURL:     "https://geocoding-api.open-meteo.com/v1/search",
			StalenessMinutes: 30,
			TimeoutSeconds:   10,
		},
		SmartStart: SmartStartConfig{Enabled: true, DegreesPerHour: 4, MaxMinutes: 180},
		Push:       PushConfig{Enabled: true, QoS: 1, RetainManifest: true},
		Metrics:    MetricsConfig{Enabled: true},
	}
}

// envOverrides maps GRAYLOGIC_* variables onto fields. Empty variables
// are skipped; so are values that do not parse.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"GRAYLOGIC_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"GRAYLOGIC_MQTT_HOST", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"GRAYLOGIC_MQTT_USERNAME", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"GRAYLOGIC_MQTT_PASSWORD", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"GRAYLOGIC_API_HOST", func(c *Config, v string) { c.API.Host = v }},
	{"GRAYLOGIC_API_PORT", func(c *Config, v string) {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}},
	{"GRAYLOGIC_INFLUXDB_TOKEN", func(c *Config, v string) { c.InfluxDB.Token = v }},
	{"GRAYLOGIC_REDIS_ADDR", func(c *Config, v string) { c.Redis.Addr = v }},
	{"GRAYLOGIC_REDIS_PASSWORD", func(c *Config, v string) { c.Redis.Password = v }},
	{"GRAYLOGIC_KAFKA_BROKERS", func(c *Config, v string) { c.Kafka.Brokers = splitList(v) }},
	{"GRAYLOGIC_JWT_SECRET", func(c *Config, v string) { c.Security.JWT.Secret = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

// splitList turns "a, b,,c" into [a b c].
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// minJWTSecretLength is the shortest accepted HMAC signing secret.
const minJWTSecretLength = 32

// Validate reports every problem at once, joined into a single error.
func (c *Config) Validate() error {
	var problems []string
	report := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	report(c.Database.Path != "", "database.path is required")
	report(validQoS(c.MQTT.QoS), "mqtt.qos must be 0, 1, or 2")
	report(validQoS(c.Push.QoS), "push.qos must be 0, 1, or 2")
	report(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")

	c.Compiler.check(report)
	c.Weather.check(report)
	report(!c.SmartStart.Enabled || c.SmartStart.DegreesPerHour > 0,
		"smart_start.degrees_per_hour must be positive")
	report(!c.Redis.Enabled || c.Redis.Addr != "", "redis.addr is required when redis is enabled")
	report(!c.Kafka.Enabled || (len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""),
		"kafka.brokers and kafka.topic are required when kafka is enabled")

	switch secret := c.Security.JWT.Secret; {
	case secret == "":
		problems = append(problems, "security.jwt.secret is required (set GRAYLOGIC_JWT_SECRET)")
	case len(secret) < minJWTSecretLength:
		problems = append(problems, fmt.Sprintf("security.jwt.secret must be at least %d characters", minJWTSecretLength))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (cc CompilerConfig) check(report func(bool, string)) {
	report(cc.Interval >= 0, "compiler.interval must not be negative")
	report(cc.Timeout >= 1, "compiler.timeout must be at least 1 second")
	report(cc.Concurrency >= 1, "compiler.concurrency must be at least 1")
	unit := strings.ToUpper(cc.TemperatureUnit)
	report(unit == "F" || unit == "C", "compiler.temperature_unit must be F or C")
}

func (wc WeatherConfig) check(report func(bool, string)) {
	report(!wc.Enabled || wc.BaseURL != "", "weather.base_url is required when weather is enabled")
	report(wc.StalenessMinutes >= 1, "weather.staleness_minutes must be at least 1")
}

func validQoS(q int) bool { return q >= 0 && q <= 2 }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// CompileInterval is the scheduler period. Zero disables scheduling.
func (c *Config) CompileInterval() time.Duration { return seconds(c.Compiler.Interval) }

// CompileTimeout bounds one (site, date) compilation.
func (c *Config) CompileTimeout() time.Duration { return seconds(c.Compiler.Timeout) }

// WeatherStaleness is the age past which a cached snapshot is refetched.
func (c *Config) WeatherStaleness() time.Duration {
	return time.Duration(c.Weather.StalenessMinutes) * time.Minute
}
