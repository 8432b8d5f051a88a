// Gray Logic Modbus Bridge
//
// This is the main entry point for the Modbus command bridge. The bridge
// subscribes to inverter parameter command topics on MQTT, translates each
// numeric command into holding-register writes using the register
// definitions of the enabled capability groups, and writes them to a Deye
// inverter over Modbus TCP or RTU.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-modbus/internal/api"
	"github.com/nerrad567/gray-logic-modbus/internal/audit"
	"github.com/nerrad567/gray-logic-modbus/internal/bridges/modbus"
	"github.com/nerrad567/gray-logic-modbus/internal/command"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-modbus/internal/register"
	"github.com/nerrad567/gray-logic-modbus/migrations"
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
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Modbus Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Last thing to run on shutdown
	log.Info("configuration loaded",
		"path", configPath,
		"bridge_id", cfg.Bridge.ID,
		"instance_index", cfg.Bridge.InstanceIndex,
	)

	registry, err := loadRegistry(cfg.Registers, log)
	if err != nil {
		return err
	}

	// Command log (optional)
	var recorders command.MultiRecorder
	var db *database.DB
	var commandLog *audit.SQLiteRepository
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		commandLog = audit.NewSQLiteRepository(db.DB)
		recorders = append(recorders, commandLog)
		log.Info("command log ready", "path", db.Path())
	} else {
		log.Info("command log disabled")
	}

	// Command metrics (optional)
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
		recorders = append(recorders, influxdb.NewCommandRecorder(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Modbus transport
	modbusClient, err := modbus.Connect(cfg.Modbus)
	if err != nil {
		return fmt.Errorf("connecting to Modbus device: %w", err)
	}
	defer func() {
		log.Info("closing Modbus connection")
		if closeErr := modbusClient.Close(); closeErr != nil {
			log.Error("error closing Modbus", "error", closeErr)
		}
	}()
	modbusClient.SetLogger(log.With("component", "modbus"))
	log.Info("Modbus connected",
		"url", modbusClient.URL(),
		"unit_id", cfg.Modbus.UnitID,
		"timeout", cfg.GetModbusTimeout(),
	)

	// Message bus
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
	mqttClient.SetLogger(log.With("component", "mqtt"))
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

	// Command processors
	opts := command.Options{
		Registry:      registry,
		Subscriber:    mqttClient,
		Writer:        modbusClient,
		InstanceIndex: cfg.Bridge.InstanceIndex,
		Logger:        log.With("component", "command"),
	}
	if len(recorders) > 0 {
		opts.Recorder = recorders
	}

	set, err := command.NewDefaultSet(opts)
	if err != nil {
		return fmt.Errorf("creating command processors: %w", err)
	}
	if err := set.Initialize(ctx); err != nil {
		return fmt.Errorf("initialising command processors: %w", err)
	}
	logProcessors(log, set.Describe())

	// Introspection API (optional)
	if cfg.API.Enabled {
		srv, err := startAPI(ctx, cfg, log, set, modbusClient, mqttClient, influxClient, db, commandLog)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API, MQTT (stops commands), Modbus, InfluxDB, database.

	stats := modbusClient.Stats()
	log.Info("Gray Logic Modbus Bridge stopped",
		"writes_ok", stats.WritesOK,
		"writes_failed", stats.WritesFailed,
	)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadRegistry loads the register definition file and keeps the
// definitions of the enabled capability groups.
//
// Enabled groups that no definition in the file belongs to are logged at
// warn level; they usually mean a typo in registers.groups.
func loadRegistry(cfg config.RegistersConfig, log *logging.Logger) (*register.Registry, error) {
	defs, err := register.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("loading register definitions: %w", err)
	}

	known := make(map[string]bool)
	for _, d := range defs {
		for _, g := range d.Groups {
			known[g] = true
		}
	}
	for _, g := range cfg.Groups {
		if !known[g] {
			log.Warn("enabled capability group has no register definitions", "group", g, "file", cfg.File)
		}
	}

	registry := register.NewRegistry(defs, cfg.Groups)
	log.Info("register definitions loaded",
		"file", cfg.File,
		"defined", len(defs),
		"active", registry.Len(),
		"groups", registry.EnabledGroups(),
	)
	return registry, nil
}

// openDatabase opens the command log database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return nil, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	return db, nil
}

// logProcessors reports the binding of every processor once at startup.
func logProcessors(log *logging.Logger, infos []command.Info) {
	bound := 0
	for _, info := range infos {
		if info.Bound {
			bound++
		}
		log.Info("command processor ready",
			"processor", info.ID,
			"topic_suffix", info.TopicSuffix,
			"group", info.Group,
			"bound", info.Bound,
		)
	}
	log.Info("command processors initialised", "total", len(infos), "bound", bound)
}

// startAPI creates and starts the introspection API.
//
// Parameters:
//   - ctx: Context for the listener bind
//   - cfg: Application configuration
//   - log: Logger instance
//   - set: Processor set to describe
//   - modbusClient, mqttClient: Components reported on /health
//   - influxClient: Reported on /health when metrics are enabled, else nil
//   - db, commandLog: Command log, both nil when the database is disabled
//
// Returns:
//   - *api.Server: Running server
//   - error: If the server cannot be created or bound
func startAPI(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	set *command.Set,
	modbusClient *modbus.Client,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	db *database.DB,
	commandLog *audit.SQLiteRepository,
) (*api.Server, error) {
	deps := api.Deps{
		Config:     cfg.API,
		Logger:     log.With("component", "api"),
		Processors: set,
		Modbus:     modbusClient,
		Health:     healthChecks(modbusClient, mqttClient, influxClient, db),
		Version:    version,
	}
	if db != nil {
		deps.Commands = commandLog
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server started",
		"address", srv.Addr(),
		"read_timeout", cfg.GetReadTimeout(),
		"write_timeout", cfg.GetWriteTimeout(),
		"idle_timeout", cfg.GetIdleTimeout(),
	)
	return srv, nil
}

// healthChecks names the components reported on /api/v1/health. Optional
// components are only listed when enabled.
func healthChecks(
	modbusClient *modbus.Client,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	db *database.DB,
) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{
		"mqtt":   mqttClient,
		"modbus": modbusClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	if db != nil {
		checks["database"] = db
	}
	return checks
}
