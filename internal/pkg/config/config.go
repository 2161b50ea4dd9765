package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oskarena/landgrab/internal/core/usecases"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Tracking    TrackingConfig    `mapstructure:"tracking"`
	Exploration ExplorationConfig `mapstructure:"exploration"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// TemporalConfig points at the workflow engine. When disabled, claims are
// persisted directly instead of going through the upload saga.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

// TrackingConfig tunes the claim engine. Defaults mirror
// usecases.DefaultTrackingParams.
type TrackingConfig struct {
	MinPointGapM         float64 `mapstructure:"min_point_gap_m"`
	SoftSpeedKMH         float64 `mapstructure:"soft_speed_kmh"`
	HardSpeedKMH         float64 `mapstructure:"hard_speed_kmh"`
	ClosureMinPoints     int     `mapstructure:"closure_min_points"`
	ClosureThresholdM    float64 `mapstructure:"closure_threshold_m"`
	MinPathLengthM       float64 `mapstructure:"min_path_length_m"`
	MinAreaM2            float64 `mapstructure:"min_area_m2"`
	SeamWindow           int     `mapstructure:"seam_window"`
	SafeDistanceM        float64 `mapstructure:"safe_distance_m"`
	CautionDistanceM     float64 `mapstructure:"caution_distance_m"`
	WarningDistanceM     float64 `mapstructure:"warning_distance_m"`
	SampleIntervalSec    int     `mapstructure:"sample_interval_sec"`
	CollisionIntervalSec int     `mapstructure:"collision_interval_sec"`
}

// Params converts the config section into engine parameters.
func (t TrackingConfig) Params() usecases.TrackingParams {
	return usecases.TrackingParams{
		MinPointGapM:      t.MinPointGapM,
		SoftSpeedKMH:      t.SoftSpeedKMH,
		HardSpeedKMH:      t.HardSpeedKMH,
		ClosureMinPoints:  t.ClosureMinPoints,
		ClosureThresholdM: t.ClosureThresholdM,
		MinPathLengthM:    t.MinPathLengthM,
		MinAreaM2:         t.MinAreaM2,
		SeamWindow:        t.SeamWindow,
		SafeDistanceM:     t.SafeDistanceM,
		CautionDistanceM:  t.CautionDistanceM,
		WarningDistanceM:  t.WarningDistanceM,
		SampleInterval:    time.Duration(t.SampleIntervalSec) * time.Second,
		CollisionInterval: time.Duration(t.CollisionIntervalSec) * time.Second,
	}
}

// ExplorationConfig tunes the free-roam tracker. Defaults mirror
// usecases.DefaultExplorationParams.
type ExplorationConfig struct {
	MaxAccuracyM   float64 `mapstructure:"max_accuracy_m"`
	MinIntervalSec int     `mapstructure:"min_interval_sec"`
	MaxJumpM       float64 `mapstructure:"max_jump_m"`
	SpeedLimitKMH  float64 `mapstructure:"speed_limit_kmh"`
	GraceSec       int     `mapstructure:"grace_sec"`
}

// Params converts the config section into engine parameters.
func (e ExplorationConfig) Params() usecases.ExplorationParams {
	return usecases.ExplorationParams{
		MaxAccuracyM:  e.MaxAccuracyM,
		MinInterval:   time.Duration(e.MinIntervalSec) * time.Second,
		MaxJumpM:      e.MaxJumpM,
		SpeedLimitKMH: e.SpeedLimitKMH,
		Grace:         time.Duration(e.GraceSec) * time.Second,
	}
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "turf")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "landgrab")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "claims-queue")
	v.SetDefault("temporal.enabled", false)

	v.SetDefault("tracking.min_point_gap_m", 10)
	v.SetDefault("tracking.soft_speed_kmh", 15)
	v.SetDefault("tracking.hard_speed_kmh", 30)
	v.SetDefault("tracking.closure_min_points", 10)
	v.SetDefault("tracking.closure_threshold_m", 30)
	v.SetDefault("tracking.min_path_length_m", 50)
	v.SetDefault("tracking.min_area_m2", 100)
	v.SetDefault("tracking.seam_window", 2)
	v.SetDefault("tracking.safe_distance_m", 100)
	v.SetDefault("tracking.caution_distance_m", 50)
	v.SetDefault("tracking.warning_distance_m", 25)
	v.SetDefault("tracking.sample_interval_sec", 2)
	v.SetDefault("tracking.collision_interval_sec", 10)

	v.SetDefault("exploration.max_accuracy_m", 50)
	v.SetDefault("exploration.min_interval_sec", 1)
	v.SetDefault("exploration.max_jump_m", 100)
	v.SetDefault("exploration.speed_limit_kmh", 30)
	v.SetDefault("exploration.grace_sec", 10)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LANDGRAB_DATABASE_HOST → database.host
	v.SetEnvPrefix("LANDGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Tracking.HardSpeedKMH <= c.Tracking.SoftSpeedKMH {
		errs = append(errs, "tracking.hard_speed_kmh must exceed tracking.soft_speed_kmh")
	}
	if c.Tracking.SafeDistanceM <= c.Tracking.CautionDistanceM ||
		c.Tracking.CautionDistanceM <= c.Tracking.WarningDistanceM {
		errs = append(errs, "tracking distance bands must be strictly decreasing: safe > caution > warning")
	}
	if c.Tracking.ClosureMinPoints < 3 {
		errs = append(errs, "tracking.closure_min_points must be at least 3")
	}
	if c.Exploration.GraceSec <= 0 {
		errs = append(errs, "exploration.grace_sec must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
