// Package config loads the engine's configuration (spec §6 "Configuration
// keys" plus the ambient store/cache/logging settings a deployment needs),
// grounded on SoySergo-location_microservice's internal/config package:
// viper reads a .env file plus the process environment into a typed struct,
// with defaults applied for anything left unset.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine's complete runtime configuration.
type Config struct {
	Engine   EngineConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
}

// EngineConfig covers every key spec §6 names for the Mutation Engine and
// Geometry Adapter.
type EngineConfig struct {
	// MaxUndosDuringEdit bounds the Version Manager's bounded-undo window;
	// 0 disables undo purge entirely.
	MaxUndosDuringEdit int

	// FixUnassignedMinPercent (0-100) gates FixUnassigned's adjacency pass.
	FixUnassignedMinPercent float64

	// FixUnassignedComparatorSubject names the subject FixUnassigned
	// minimizes when choosing which adjacent district absorbs a unit.
	FixUnassignedComparatorSubject string

	// SimplifyThresholdDefault is the projection-unit tolerance passed to
	// the geometry kernel's simplify(tolerance, preserve_topology) contract;
	// this H3-grounded module does not use it directly (CompactCells has no
	// tolerance parameter) but it's retained as a configuration key so a
	// future non-H3 geometry kernel binding can honor it.
	SimplifyThresholdDefault float64

	// DefaultSRID is the shared spatial reference id the geometry kernel
	// API assumes (spec §6). Retained for the same forward-compatibility
	// reason as SimplifyThresholdDefault.
	DefaultSRID int
}

// DatabaseConfig configures the Postgres-backed Plan Store.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Score Cache's backing store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig configures the zap logger construction in package logging.
type LogConfig struct {
	Level string // "debug", "info", "warn", "error"
	JSON  bool   // true for production JSON encoding, false for console
}

// Load reads configuration from a .env file (if present) and the process
// environment, applying spec-mandated defaults for anything left unset.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			MaxUndosDuringEdit:             viper.GetInt("MAX_UNDOS_DURING_EDIT"),
			FixUnassignedMinPercent:        viper.GetFloat64("FIX_UNASSIGNED_MIN_PERCENT"),
			FixUnassignedComparatorSubject: viper.GetString("FIX_UNASSIGNED_COMPARATOR_SUBJECT"),
			SimplifyThresholdDefault:       viper.GetFloat64("SIMPLIFY_THRESHOLD_DEFAULT"),
			DefaultSRID:                    viper.GetInt("DEFAULT_SRID"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			JSON:  viper.GetBool("LOG_JSON"),
		},
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.FixUnassignedMinPercent == 0 {
		cfg.Engine.FixUnassignedMinPercent = 99
	}
	if cfg.Engine.FixUnassignedComparatorSubject == "" {
		cfg.Engine.FixUnassignedComparatorSubject = "TotalPopulation"
	}
	if cfg.Engine.SimplifyThresholdDefault == 0 {
		cfg.Engine.SimplifyThresholdDefault = 100
	}
	if cfg.Engine.DefaultSRID == 0 {
		cfg.Engine.DefaultSRID = 3785
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// DSN renders the Postgres connection string for the Database config.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode,
	)
}

// RedisAddr renders the Redis client address for the Redis config.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
