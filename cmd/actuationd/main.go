// Gray Logic Actuation - device actuation daemon
//
// This is the main entry point for the actuation daemon. It accepts
// dispatch requests over MQTT and HTTP, arbitrates them per actuator and
// sends the resulting commands to protocol bridges over MQTT.
//
// For the engine itself, see internal/actuation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	_ "github.com/nerrad567/gray-logic-actuation/migrations"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/api"
	"github.com/nerrad567/gray-logic-actuation/internal/backend"
	"github.com/nerrad567/gray-logic-actuation/internal/dispatch"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-actuation/internal/pattern"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic Actuation",
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

	catalogue, err := dispatch.CatalogueFromConfig(cfg.Devices)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	log.Info("actuators enumerated",
		"devices", len(catalogue.Devices()),
		"actuators", len(catalogue.Actuators()),
	)

	// Dispatch history
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	runID := uuid.NewString()
	history := dispatch.NewSQLiteRepository(db.DB, runID)
	log.Info("database ready", "path", cfg.Database.Path, "run_id", runID)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Engine
	hw := backend.NewMQTT(mqttClient, backend.Options{
		QoS:   mqttClient.QoS(),
		Rate:  cfg.MQTT.CommandRate,
		Burst: cfg.MQTT.CommandBurst,
	}, log.Component("backend"))

	scheduler, worker := actuation.New(hw, actuation.Settings{Resolution: cfg.GetResolution()}, log.Component("actuation"))
	if influxClient != nil {
		worker.SetRecorder(influxClient)
	}
	workerCtx, stopWorker := startWorker(ctx, worker, log)
	defer stopWorker()

	var patterns *pattern.Generator
	if cfg.Patterns.Dir != "" {
		patterns = pattern.New(pattern.Options{
			Dir:       cfg.Patterns.Dir,
			Timeout:   cfg.GetScriptTimeout(),
			MaxPoints: cfg.Patterns.MaxPoints,
		}, log.Component("pattern"))
		log.Info("pattern scripts enabled", "dir", cfg.Patterns.Dir)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(workerCtx)

	// Optional dependencies are only set when present so the service sees
	// nil interfaces rather than typed nil pointers.
	deps := dispatch.Deps{
		Scheduler: scheduler,
		Catalogue: catalogue,
		Repo:      history,
		Status:    mqttClient,
		Hub:       hub,
		Stopper:   hw,
		Logger:    log.Component("dispatch"),
	}
	if patterns != nil {
		deps.Patterns = patterns
	}
	if influxClient != nil {
		deps.Events = influxClient
	}
	service, err := dispatch.NewService(deps)
	if err != nil {
		return fmt.Errorf("creating dispatch service: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.GetStopTimeout())
		defer cancel()
		log.Info("stopping dispatches")
		if closeErr := service.Close(closeCtx); closeErr != nil {
			log.Error("error stopping dispatches", "error", closeErr)
		}
		stopWorker()
	}()

	var topics mqtt.Topics
	qos := mqttClient.QoS()
	if err := mqttClient.Subscribe(topics.Dispatch(), qos, service.HandleDispatch); err != nil {
		return fmt.Errorf("subscribing to dispatch topic: %w", err)
	}
	if err := mqttClient.Subscribe(topics.Stop(), qos, service.HandleStop); err != nil {
		return fmt.Errorf("subscribing to stop topic: %w", err)
	}
	log.Info("listening for dispatches", "dispatch", topics.Dispatch(), "stop", topics.Stop())

	if cfg.API.Enabled {
		apiDeps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Service:  service,
			Hub:      hub,
			Version:  version,
		}
		if patterns != nil {
			apiDeps.Patterns = patterns
		}
		server, apiErr := api.New(apiDeps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, dispatches and the
	// worker, InfluxDB, MQTT, database.
	return nil
}

// startWorker runs the actuation worker on a context that outlives ctx, so
// dispatches can still be stopped during shutdown. The returned stop cancels
// the worker and blocks until it and its in-flight moves have returned; it
// may be called more than once.
func startWorker(ctx context.Context, worker *actuation.Worker, log *logging.Logger) (context.Context, func()) {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		if runErr := worker.Run(workerCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("actuation worker stopped", "error", runErr)
		}
	}()
	return workerCtx, func() {
		cancel()
		<-worker.Done()
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
