package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Databases   int               `mapstructure:"databases"`
	GC          GCConfig          `mapstructure:"gc"`
	Log         LogConfig         `mapstructure:"log"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// GCConfig defines the parameters for the background active expiration
type GCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`          // how often to run the background check
	SamplesPerCheck int           `mapstructure:"samples_per_check"` // how many keys to check per loop
	MatchThreshold  float64       `mapstructure:"match_threshold"`   // 0.0-1.0. if expired/scanned > threshold, repeat immediately
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PersistenceConfig defines settings of the append log and snapshot methods
type PersistenceConfig struct {
	AppendLog AppendLogConfig `mapstructure:"append_log"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
}

// AppendLogConfig defines settings of the append-only command log
type AppendLogConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Fsync    string `mapstructure:"fsync"` // always, everysec, no
}

// SnapshotConfig defines settings of the snapshot file
type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Interval string `mapstructure:"interval"`
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("MOONBEAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used by in-process instances that never
// touch a config file
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: "6380"},
		Databases: 16,
		GC: GCConfig{
			Enabled:         false,
			Interval:        100 * time.Millisecond,
			SamplesPerCheck: 20,
			MatchThreshold:  0.25,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "6380")

	viper.SetDefault("databases", 16)

	// GC
	viper.SetDefault("gc.enabled", true)
	viper.SetDefault("gc.interval", "100ms")
	viper.SetDefault("gc.samples_per_check", 20)
	viper.SetDefault("gc.match_threshold", 0.25)

	// Logger
	viper.SetDefault("log.level", "debug")
	viper.SetDefault("log.format", "json")

	// Persistence
	viper.SetDefault("persistence.append_log.enabled", false)
	viper.SetDefault("persistence.append_log.filename", "appendonly.log")
	viper.SetDefault("persistence.append_log.fsync", "everysec")

	viper.SetDefault("persistence.snapshot.enabled", false)
	viper.SetDefault("persistence.snapshot.filename", "dump.mb")
	viper.SetDefault("persistence.snapshot.interval", "")
}

// RuntimeDefaults seeds the CONFIG GET/SET map. Only keys listed here are
// settable; CONFIG SET of anything else is rejected.
func RuntimeDefaults() map[string]string {
	return map[string]string{
		"maxmemory":                 "0",
		"maxmemory-policy":          "noeviction",
		"notify-keyspace-events":    "",
		"databases":                 "16",
		"save":                      "3600 1 300 100 60 10000",
		"appendonly":                "no",
		"timeout":                   "0",
		"tcp-keepalive":             "300",
		"requirepass":               "",
		"hash-max-listpack-entries": "128",
		"hash-max-listpack-value":   "64",
		"list-max-listpack-size":    "128",
		"set-max-intset-entries":    "512",
		"set-max-listpack-entries":  "128",
		"set-max-listpack-value":    "64",
		"zset-max-listpack-entries": "128",
		"zset-max-listpack-value":   "64",
		"proto-max-bulk-len":        "536870912",
	}
}

// MaxmemoryPolicies enumerates the accepted eviction policy names
var MaxmemoryPolicies = []string{
	"noeviction",
	"allkeys-lru",
	"allkeys-lfu",
	"allkeys-random",
	"volatile-lru",
	"volatile-lfu",
	"volatile-random",
	"volatile-ttl",
}
