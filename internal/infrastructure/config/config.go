package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Modbus bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Modbus    ModbusConfig    `yaml:"modbus"`
	Registers RegistersConfig `yaml:"registers"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BridgeConfig contains bridge identity settings.
type BridgeConfig struct {
	// ID uniquely identifies this bridge instance in logs and status messages.
	ID string `yaml:"id"`

	// InstanceIndex selects which logical device this bridge controls.
	// It namespaces every command topic.
	InstanceIndex int `yaml:"instance_index"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is prepended to every topic the bridge uses.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// ModbusConfig contains Modbus transport settings.
type ModbusConfig struct {
	// Mode is the transport: "tcp", "rtu" or "rtuovertcp".
	Mode string `yaml:"mode"`

	TCPHost string `yaml:"tcp_host"`
	TCPPort int    `yaml:"tcp_port"`

	RTUDevice   string `yaml:"rtu_device"`
	RTUBaud     int    `yaml:"rtu_baud"`
	RTUDataBits int    `yaml:"rtu_data_bits"`
	// RTUParity is "none", "even" or "odd".
	RTUParity   string `yaml:"rtu_parity"`
	RTUStopBits int    `yaml:"rtu_stop_bits"`

	// UnitID is the Modbus slave address of the device.
	UnitID int `yaml:"unit_id"`

	// Timeout is the per-transaction timeout (milliseconds).
	Timeout int `yaml:"timeout"`
}

// RegistersConfig points at the register definition file and selects
// which capability groups are active.
type RegistersConfig struct {
	// File is a YAML (.yaml/.yml) or TOML (.toml) register definition file.
	File string `yaml:"file"`

	// Groups lists the enabled capability groups.
	Groups []string `yaml:"groups"`
}

// DatabaseConfig contains SQLite command log settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the introspection HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Used when output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_MQTT_HOST, GRAYLOGIC_MODBUS_TCP_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:            "modbus-bridge-01",
			InstanceIndex: 1,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-modbus",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "graylogic/inverter",
		},
		Modbus: ModbusConfig{
			Mode:        "tcp",
			TCPHost:     "localhost",
			TCPPort:     502,
			RTUBaud:     9600,
			RTUDataBits: 8,
			RTUParity:   "none",
			RTUStopBits: 1,
			UnitID:      1,
			Timeout:     1000,
		},
		Registers: RegistersConfig{
			File: "configs/registers.yaml",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/modbus-bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/modbus-bridge.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("GRAYLOGIC_BRIDGE_INSTANCE_INDEX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bridge.InstanceIndex = n
		}
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Modbus
	if v := os.Getenv("GRAYLOGIC_MODBUS_TCP_HOST"); v != "" {
		cfg.Modbus.TCPHost = v
	}
	if v := os.Getenv("GRAYLOGIC_MODBUS_RTU_DEVICE"); v != "" {
		cfg.Modbus.RTUDevice = v
	}

	// Registers
	if v := os.Getenv("GRAYLOGIC_REGISTERS_FILE"); v != "" {
		cfg.Registers.File = v
	}
	if v := os.Getenv("GRAYLOGIC_REGISTERS_GROUPS"); v != "" {
		cfg.Registers.Groups = splitList(v)
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// splitList splits a comma or space separated list, dropping empty entries.
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.InstanceIndex < 0 {
		errs = append(errs, "bridge.instance_index must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
		errs = append(errs, "mqtt.topic_prefix must not contain wildcards")
	}

	// Modbus validation
	switch c.Modbus.Mode {
	case "tcp", "rtuovertcp":
		if c.Modbus.TCPHost == "" {
			errs = append(errs, "modbus.tcp_host is required for "+c.Modbus.Mode+" mode")
		}
		if c.Modbus.TCPPort < 1 || c.Modbus.TCPPort > 65535 {
			errs = append(errs, "modbus.tcp_port must be between 1 and 65535")
		}
	case "rtu":
		if c.Modbus.RTUDevice == "" {
			errs = append(errs, "modbus.rtu_device is required for rtu mode")
		}
		if c.Modbus.RTUBaud <= 0 {
			errs = append(errs, "modbus.rtu_baud must be positive")
		}
	default:
		errs = append(errs, "modbus.mode must be tcp, rtu, or rtuovertcp")
	}
	if c.Modbus.UnitID < 0 || c.Modbus.UnitID > 247 {
		errs = append(errs, "modbus.unit_id must be between 0 and 247")
	}

	// Registers
	if c.Registers.File == "" {
		errs = append(errs, "registers.file is required")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetModbusTimeout returns the Modbus transaction timeout as a Duration.
func (c *Config) GetModbusTimeout() time.Duration {
	return time.Duration(c.Modbus.Timeout) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
