// Gray Logic Facility - daily operations manifest compiler.
//
// The service resolves each site's operating hours for a date, schedules
// its equipment and decides what every thermostat should do, then stores
// the result as a daily manifest and pushes it to the building over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/api"
	"github.com/nerrad567/gray-logic-facility/internal/astro"
	"github.com/nerrad567/gray-logic-facility/internal/devicestate"
	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/cache"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/eventbus"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/push"
	"github.com/nerrad567/gray-logic-facility/internal/scheduler"
	"github.com/nerrad567/gray-logic-facility/internal/smartstart"
	"github.com/nerrad567/gray-logic-facility/internal/weather"
	"github.com/nerrad567/gray-logic-facility/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, blocks until ctx is cancelled and then shuts
// down in reverse order via defers.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // Startup wiring is linear
	log := logging.Default()
	log.Info("starting Gray Logic Facility",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	facilityRepo := facility.NewSQLiteRepository(db.DB)
	stateRepo := devicestate.NewSQLiteRepository(db.DB)
	manifestRepo := manifest.NewSQLiteRepository(db.DB)

	health := map[string]api.HealthChecker{"database": db}

	compilerOpts := []manifest.Option{
		manifest.WithSunCalculator(astro.NewCalculator()),
		manifest.WithUnit(cfg.Compiler.TemperatureUnit),
		manifest.WithTimeout(cfg.CompileTimeout()),
		manifest.WithLogger(log.Component("compiler")),
	}

	// MQTT: thermostat state in, manifests out
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		health["mqtt"] = mqttClient

		ingestor := devicestate.NewIngestor(stateRepo, mqttClient, byte(cfg.MQTT.QoS),
			devicestate.WithLogger(log.Component("devicestate")))
		if startErr := ingestor.Start(); startErr != nil {
			return fmt.Errorf("starting thermostat state ingestion: %w", startErr)
		}
		defer func() {
			if stopErr := ingestor.Stop(); stopErr != nil {
				log.Warn("error stopping thermostat state ingestion", "error", stopErr)
			}
		}()

		if cfg.Push.Enabled {
			pusher := push.New(mqttClient, push.Config{
				QoS:            byte(cfg.Push.QoS),
				RetainManifest: cfg.Push.RetainManifest,
			})
			compilerOpts = append(compilerOpts, manifest.WithPusher(pusher))
			log.Info("manifest push enabled", "qos", cfg.Push.QoS, "retain", cfg.Push.RetainManifest)
		}
	} else {
		log.Warn("MQTT disabled: thermostat readings will not update and manifests will not be pushed")
	}

	// Weather, with Redis as the shared cache when available
	if cfg.Weather.Enabled {
		var weatherCache weather.Cache
		redisCache, cacheErr := cache.Connect(ctx, cfg.Redis)
		switch {
		case cacheErr == nil:
			weatherCache = redisCache
			health["redis"] = redisCache
			defer func() {
				if closeErr := redisCache.Close(); closeErr != nil {
					log.Error("error closing Redis", "error", closeErr)
				}
			}()
			log.Info("weather cache using Redis", "addr", cfg.Redis.Addr)
		case errors.Is(cacheErr, cache.ErrDisabled):
			log.Info("weather cache using memory")
		default:
			log.Warn("Redis unavailable, weather cache using memory", "error", cacheErr)
		}

		weatherClient := weather.NewClient(weather.Config{
			BaseURL:         cfg.Weather.BaseURL,
			GeocodingURL:    cfg.Weather.GeocodingURL,
			Timeout:         time.Duration(cfg.Weather.TimeoutSeconds) * time.Second,
			Staleness:       cfg.WeatherStaleness(),
			CacheTTL:        time.Duration(cfg.Redis.TTLHours) * time.Hour,
			TemperatureUnit: cfg.Compiler.TemperatureUnit,
		}, weatherCache, weather.WithLogger(log.Component("weather")))
		compilerOpts = append(compilerOpts, manifest.WithWeather(weatherClient))
	}

	if cfg.SmartStart.Enabled {
		calc, ssErr := smartstart.New(cfg.SmartStart.DegreesPerHour, cfg.SmartStart.MaxMinutes)
		if ssErr != nil {
			return fmt.Errorf("configuring smart start: %w", ssErr)
		}
		compilerOpts = append(compilerOpts, manifest.WithSmartStart(calc))
	}

	// Kafka event bus (optional)
	publisher, err := eventbus.NewKafkaPublisher(cfg.Kafka)
	switch {
	case err == nil:
		compilerOpts = append(compilerOpts, manifest.WithEventPublisher(publisher))
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error("error closing Kafka publisher", "error", closeErr)
			}
		}()
		log.Info("Kafka event bus enabled", "topic", publisher.Topic())
	case errors.Is(err, eventbus.ErrDisabled):
		log.Info("Kafka event bus disabled")
	default:
		return fmt.Errorf("creating Kafka publisher: %w", err)
	}

	// InfluxDB telemetry (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case err == nil:
		influxClient.SetOnError(func(writeErr error) {
			log.Warn("InfluxDB write failed", "error", writeErr)
		})
		compilerOpts = append(compilerOpts, manifest.WithTelemetry(influxClient))
		health["influxdb"] = influxClient
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	default:
		// Telemetry is not required to compile manifests.
		log.Warn("InfluxDB unavailable, continuing without telemetry", "error", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		compilerOpts = append(compilerOpts, manifest.WithMetrics(collector))
	}

	hub := api.NewHub(log.Component("websocket"))
	compilerOpts = append(compilerOpts, manifest.WithBroadcaster(hub))

	compiler := manifest.NewCompiler(facilityRepo, stateRepo, manifestRepo, compilerOpts...)

	// HTTP API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log.Component("api"),
		Sites:     facilityRepo,
		Compiler:  compiler,
		Manifests: manifestRepo,
		Metrics:   collector,
		Health:    health,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	// Scheduled compilation
	if interval := cfg.CompileInterval(); interval > 0 {
		sched := scheduler.New(facilityRepo, compiler, scheduler.Config{
			Interval:    interval,
			Concurrency: cfg.Compiler.Concurrency,
			RunOnStart:  cfg.Compiler.RunOnStart,
			Logger:      log.Component("scheduler"),
		})
		sched.Start(ctx)
		defer sched.Stop()
		log.Info("compile scheduler started", "interval", interval, "concurrency", cfg.Compiler.Concurrency)
	} else {
		log.Info("compile scheduler disabled, manifests compile on request only")
	}

	if healthErr := healthCheck(ctx, health); healthErr != nil {
		log.Warn("startup health check failed", "error", healthErr)
	}

	log.Info("Gray Logic Facility started", "api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	<-ctx.Done()
	log.Info("shutdown signal received, stopping services")

	return nil
}

// healthCheck runs every registered check once with a shared deadline.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// getConfigPath returns GRAYLOGIC_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
