package main

import (
	"bytes"
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-modbus/internal/api"
	"github.com/nerrad567/gray-logic-modbus/internal/bridges/modbus"
	"github.com/nerrad567/gray-logic-modbus/internal/command"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/mqtt"
)

// The concrete infrastructure types must satisfy the interfaces they are
// wired into by run.
var (
	_ command.Subscriber      = (*mqtt.Client)(nil)
	_ command.RegisterWriter  = (*modbus.Client)(nil)
	_ command.Logger          = (*logging.Logger)(nil)
	_ api.HealthChecker       = (*mqtt.Client)(nil)
	_ api.HealthChecker       = (*modbus.Client)(nil)
	_ api.HealthChecker       = (*database.DB)(nil)
	_ api.HealthChecker       = (*influxdb.Client)(nil)
	_ api.ModbusStatsProvider = (*modbus.Client)(nil)
	_ api.ProcessorDescriber  = (*command.Set)(nil)
)

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "test", buf)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const registersYAML = `
registers:
  - name: Grid charge current
    topic_suffix: grid_charge
    groups: [deye_sg01hp3_grid_charge]
    kind: u16
    address: 0x10
    min: 0
    max: 1000
  - name: Battery max charge current
    topic_suffix: settings/battery/max_charge_current
    groups: [deye_battery_control]
    kind: u16
    address: 0x28
    scale: 0.1
`

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want a config loading error", err)
	}
}

// TestRun_InvalidRegisterFile verifies run stops before connecting
// anything when the register file is invalid.
func TestRun_InvalidRegisterFile(t *testing.T) {
	dir := t.TempDir()
	registers := writeFile(t, dir, "registers.yaml", `
registers:
  - name: broken
    topic_suffix: ""
    kind: u64
`)
	configPath := writeFile(t, dir, "config.yaml", `
bridge:
  id: test-bridge
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
registers:
  file: "`+registers+`"
  groups: [deye_sg01hp3_grid_charge]
database:
  enabled: false
logging:
  level: error
  format: text
  output: stdout
`)
	t.Setenv("GRAYLOGIC_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with an invalid register file")
	}
	if !strings.Contains(err.Error(), "loading register definitions") {
		t.Errorf("error = %v, want a register loading error", err)
	}
}

// TestRun_ModbusUnreachable verifies startup fails when the device cannot
// be reached, after the command log was opened.
func TestRun_ModbusUnreachable(t *testing.T) {
	dir := t.TempDir()
	registers := writeFile(t, dir, "registers.yaml", registersYAML)
	configPath := writeFile(t, dir, "config.yaml", `
bridge:
  id: test-bridge
modbus:
  mode: tcp
  tcp_host: "127.0.0.1"
  tcp_port: 1
  timeout: 200
registers:
  file: "`+registers+`"
  groups: [deye_sg01hp3_grid_charge]
database:
  enabled: true
  path: "`+filepath.Join(dir, "data", "bridge.db")+`"
logging:
  level: error
  format: text
  output: stdout
`)
	t.Setenv("GRAYLOGIC_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the Modbus device is unreachable")
	}
	if !strings.Contains(err.Error(), "connecting to Modbus device") {
		t.Errorf("error = %v, want a Modbus connection error", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "data", "bridge.db")); statErr != nil {
		t.Errorf("command log database not created: %v", statErr)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/modbus.yaml")
	if got := getConfigPath(); got != "/etc/graylogic/modbus.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "registers.yaml", registersYAML)

	var buf bytes.Buffer
	registry, err := loadRegistry(config.RegistersConfig{
		File:   path,
		Groups: []string{"deye_sg01hp3_grid_charge", "deye_typo_group"},
	}, testLogger(&buf))
	if err != nil {
		t.Fatalf("loadRegistry() error = %v", err)
	}

	if registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", registry.Len())
	}
	if defs := registry.Find("grid_charge", "deye_sg01hp3_grid_charge"); len(defs) != 1 {
		t.Errorf("Find(grid_charge) = %d definitions, want 1", len(defs))
	}

	out := buf.String()
	if !strings.Contains(out, "enabled capability group has no register definitions") ||
		!strings.Contains(out, "deye_typo_group") {
		t.Errorf("missing unknown group warning in log:\n%s", out)
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	_, err := loadRegistry(config.RegistersConfig{File: filepath.Join(t.TempDir(), "none.yaml")}, testLogger(&buf))
	if err == nil {
		t.Fatal("loadRegistry() should fail for a missing file")
	}
}

func TestOpenDatabase(t *testing.T) {
	db, err := openDatabase(context.Background(), config.DatabaseConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "bridge.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM command_log").Scan(&n); err != nil {
		t.Errorf("command_log not migrated: %v", err)
	}
}

func TestLogProcessors(t *testing.T) {
	var buf bytes.Buffer
	logProcessors(testLogger(&buf), []command.Info{
		{ID: "grid_charge", Bound: true},
		{ID: "battery_max_charge_current"},
	})

	out := buf.String()
	if strings.Count(out, "command processor ready") != 2 {
		t.Errorf("expected one line per processor:\n%s", out)
	}
	if !strings.Contains(out, "total=2") || !strings.Contains(out, "bound=1") {
		t.Errorf("missing summary line:\n%s", out)
	}
}

func TestHealthChecks(t *testing.T) {
	tests := []struct {
		name   string
		influx *influxdb.Client
		db     *database.DB
		want   []string
	}{
		{"required only", nil, nil, []string{"modbus", "mqtt"}},
		{"with influxdb", &influxdb.Client{}, nil, []string{"influxdb", "modbus", "mqtt"}},
		{"with database", nil, &database.DB{}, []string{"database", "modbus", "mqtt"}},
		{"all", &influxdb.Client{}, &database.DB{}, []string{"database", "influxdb", "modbus", "mqtt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := healthChecks(&modbus.Client{}, &mqtt.Client{}, tt.influx, tt.db)
			got := slices.Sorted(maps.Keys(checks))
			if !slices.Equal(got, tt.want) {
				t.Errorf("healthChecks() keys = %v, want %v", got, tt.want)
			}
		})
	}
}
