// Gray Logic CAN - DBC database builder and frame decoder
//
// This is the main entry point for the Gray Logic CAN service. It:
//   - Replays recorded DBC construction journals into a database model
//   - Stores each build as a snapshot in the SQLite catalog
//   - Optionally decodes CAN frames received over MQTT using the latest snapshot
//   - Optionally serves the catalog over a read-only HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-can/migrations"

	"github.com/nerrad567/gray-logic-can/internal/api"
	"github.com/nerrad567/gray-logic-can/internal/bridges/can"
	"github.com/nerrad567/gray-logic-can/internal/catalog"
	"github.com/nerrad567/gray-logic-can/internal/dbc"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/mdns"
	"github.com/nerrad567/gray-logic-can/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-can/internal/journal"
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
//
//nolint:gocognit,gocyclo // linear startup sequence
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic CAN",
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

	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := catalog.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build from journals, or fall back to the last stored snapshot
	current, snapshotID, err := loadDatabase(ctx, cfg, repo, influxClient, log)
	if err != nil {
		return err
	}
	reload := &reloader{cfg: cfg, repo: repo, influx: influxClient, log: log}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
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
	} else {
		log.Info("MQTT disabled")
	}

	// Start CAN bridge (if enabled)
	var bridge *can.Bridge
	if cfg.CAN.Bridge {
		bridge, err = startCANBridge(ctx, cfg, current, mqttClient, influxClient, log)
		if err != nil {
			return fmt.Errorf("starting CAN bridge: %w", err)
		}
		defer func() {
			log.Info("stopping CAN bridge")
			bridge.Stop()
		}()
		reload.bridge = bridge
	} else {
		log.Info("CAN bridge disabled")
	}

	// Start API server (if enabled)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:       cfg.API,
			Logger:       log,
			Catalog:      repo,
			DatabaseName: cfg.CAN.DatabaseName,
			Version:      version,
		}
		if bridge != nil {
			deps.Bridge = bridge
		}
		server, apiErr := api.New(deps)
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
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

		if cfg.API.MDNS.Enabled {
			adv, mdnsErr := mdns.Advertise(cfg.API.MDNS, cfg.API.Port, advertisedInfo(cfg, snapshotID))
			if mdnsErr != nil {
				log.Warn("mdns advertisement failed", "error", mdnsErr)
			} else {
				defer adv.Shutdown()
				reload.advertiser = adv
				log.Info("advertising API over mdns", "instance", cfg.API.MDNS.Instance, "service", mdns.ServiceType)
			}
		}
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for signals", "reload", "SIGHUP")

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	reload.serve(ctx, hangup)

	log.Info("shutdown signal received, cleaning up")
	log.Info("Gray Logic CAN stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CAN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CAN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadDatabase replays the configured journals into one builder and saves
// the result as a new snapshot. With no journals configured it loads the
// latest stored snapshot instead; a missing snapshot yields nil. The
// snapshot id is returned with the database.
func loadDatabase(ctx context.Context, cfg *config.Config, repo catalog.Repository, influxClient *influxdb.Client, log *logging.Logger) (*dbc.Database, string, error) {
	name := cfg.CAN.DatabaseName

	if len(cfg.CAN.Journals) == 0 {
		snap, err := repo.Latest(ctx, name)
		if errors.Is(err, catalog.ErrSnapshotNotFound) {
			log.Warn("no journals configured and no stored snapshot", "database", name)
			return nil, "", nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("finding latest snapshot: %w", err)
		}
		db, err := repo.LoadDatabase(ctx, snap.ID)
		if err != nil {
			return nil, "", fmt.Errorf("loading snapshot %s: %w", snap.ID, err)
		}
		log.Info("loaded stored snapshot",
			"database", name,
			"snapshot", snap.ID,
			"created_at", snap.CreatedAt,
		)
		return db, snap.ID, nil
	}

	built, stats, err := buildFromJournals(cfg.CAN.Journals, log)
	if err != nil {
		return nil, "", err
	}

	snap, err := repo.Save(ctx, name, built)
	if err != nil {
		return nil, "", fmt.Errorf("saving snapshot: %w", err)
	}
	log.Info("DBC database built",
		"database", name,
		"snapshot", snap.ID,
		"nodes", snap.NodeCount,
		"messages", snap.MessageCount,
		"signals", snap.SignalCount,
		"dropped", stats.Dropped,
		"defaulted", stats.Defaulted,
	)

	if influxClient != nil {
		influxClient.WriteBuildStats(name, stats)
		influxClient.Flush()
	}
	return built, snap.ID, nil
}

// databaseSwapper is the part of the bridge a reload touches.
type databaseSwapper interface {
	SetDatabase(db *dbc.Database)
}

// infoUpdater is the part of the mDNS advertiser a reload touches.
type infoUpdater interface {
	Update(info mdns.Info)
}

// reloader rebuilds the database on demand and hands the result to the
// running bridge and advertiser. The API needs no notice; it serves the
// latest snapshot on every request.
type reloader struct {
	cfg    *config.Config
	repo   catalog.Repository
	influx *influxdb.Client
	log    *logging.Logger

	bridge     databaseSwapper
	advertiser infoUpdater
}

// serve reloads once per value on hangup until ctx is done.
func (r *reloader) serve(ctx context.Context, hangup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := r.reload(ctx); err != nil {
				r.log.Error("database reload failed, keeping current database", "error", err)
			}
		}
	}
}

func (r *reloader) reload(ctx context.Context) error {
	r.log.Info("reloading CAN database", "journals", len(r.cfg.CAN.Journals))
	built, snapshotID, err := loadDatabase(ctx, r.cfg, r.repo, r.influx, r.log)
	if err != nil {
		return err
	}
	if built == nil {
		return nil
	}
	if r.bridge != nil {
		r.bridge.SetDatabase(built)
	}
	if r.advertiser != nil {
		r.advertiser.Update(advertisedInfo(r.cfg, snapshotID))
	}
	return nil
}

func advertisedInfo(cfg *config.Config, snapshotID string) mdns.Info {
	return mdns.Info{
		Version:  version,
		Database: cfg.CAN.DatabaseName,
		Bus:      cfg.CAN.Bus,
		Snapshot: snapshotID,
	}
}

// buildFromJournals replays each journal in order into a single builder.
func buildFromJournals(paths []string, log *logging.Logger) (*dbc.Database, dbc.Stats, error) {
	builder := dbc.NewBuilder()
	builder.SetLogger(log)

	for _, path := range paths {
		j, err := journal.Load(path)
		if err != nil {
			return nil, dbc.Stats{}, fmt.Errorf("loading journal: %w", err)
		}
		if err := j.Replay(builder); err != nil {
			return nil, dbc.Stats{}, fmt.Errorf("replaying journal %s: %w", path, err)
		}
		log.Info("journal replayed", "path", path, "name", j.Name, "events", len(j.Events))
	}

	built := builder.Build()
	return built, builder.Stats(), nil
}

// startCANBridge creates and starts the frame decoding bridge.
func startCANBridge(ctx context.Context, cfg *config.Config, current *dbc.Database, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*can.Bridge, error) {
	if mqttClient == nil {
		return nil, errors.New("CAN bridge requires MQTT")
	}
	if current == nil {
		log.Warn("CAN bridge starting without a database; every frame will be unknown")
	}

	opts := can.BridgeOptions{
		Bus:            cfg.CAN.Bus,
		Database:       current,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Logger:         log,
		HealthInterval: cfg.GetHealthInterval(),
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	bridge, err := can.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating CAN bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return nil, err
	}
	log.Info("CAN bridge started", "bus", cfg.CAN.Bus, "topic", mqtt.Topics{}.CANFrame(cfg.CAN.Bus))
	return bridge, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are skipped when disabled (nil).
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the CAN bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - CAN bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements can.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements can.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements can.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements can.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
