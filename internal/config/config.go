package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds application configuration
type AppConfig struct {
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	TokenExpiration time.Duration
}

// ========================================
// AGENT
// ========================================

type AgentConfig struct {
	App         AppConfig
	Storage     StorageConfig
	Collector   CollectorClientConfig
	Settings    SettingsConfig
	Platform    PlatformConfig
	Tracking    TrackingConfig
	ControlAddr string
}

type StorageConfig struct {
	Path string
}

type CollectorClientConfig struct {
	Transport string // http or mqtt
	URL       string
	Token     string
	Timeout   time.Duration

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
}

type SettingsConfig struct {
	File string
	URL  string
}

type PlatformConfig struct {
	PermissionFile      string
	PermissionAutoGrant bool
	BatteryRoot         string
	OriginLatitude      float64
	OriginLongitude     float64
}

type TrackingConfig struct {
	SampleInterval           time.Duration
	LowBatteryInterval       time.Duration
	LowBatteryThreshold      float64
	CaptureTimeout           time.Duration
	LowBatteryCaptureTimeout time.Duration
	LowBatteryMaxAge         time.Duration
	SettingsPollInterval     time.Duration
	VerdictTTL               time.Duration
	PermissionTTL            time.Duration
	PermissionPollInterval   time.Duration
	DrainInterval            time.Duration
	WatchdogInterval         time.Duration
	BackgroundInterval       time.Duration
	DedupeWindow             time.Duration
	DedupeDistance           float64
	QueueCapacity            int
	IdentityTTL              time.Duration
	UploadMaxAttempts        int
}

// LoadAgent reads the agent configuration from the environment, after
// loading envFile if it exists.
func LoadAgent(envFile string) (*AgentConfig, error) {
	loadEnvFile(envFile)

	r := &envReader{}
	config := &AgentConfig{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Path: getEnv("AGENT_DB_PATH", "data/agent.db"),
		},
		Collector: CollectorClientConfig{
			Transport:       strings.ToLower(getEnv("COLLECTOR_TRANSPORT", "http")),
			URL:             getEnv("COLLECTOR_URL", "http://localhost:8080/api/v1/locations"),
			Token:           getEnv("COLLECTOR_TOKEN", ""),
			Timeout:         r.duration("COLLECTOR_TIMEOUT", 10*time.Second),
			MQTTBroker:      getEnv("MQTT_BROKER", ""),
			MQTTClientID:    getEnv("MQTT_CLIENT_ID", "hris-tracking-agent"),
			MQTTUsername:    getEnv("MQTT_USERNAME", ""),
			MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
			MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "hris/tracking"),
		},
		Settings: SettingsConfig{
			File: getEnv("SETTINGS_FILE", ""),
			URL:  getEnv("SETTINGS_URL", ""),
		},
		Platform: PlatformConfig{
			PermissionFile:      getEnv("PERMISSION_FILE", "data/permissions.json"),
			PermissionAutoGrant: r.boolean("PERMISSION_AUTO_GRANT", false),
			BatteryRoot:         getEnv("BATTERY_SYSFS_ROOT", "/sys/class/power_supply"),
			OriginLatitude:      r.float("SIM_ORIGIN_LAT", -6.2088),
			OriginLongitude:     r.float("SIM_ORIGIN_LON", 106.8456),
		},
		Tracking: TrackingConfig{
			SampleInterval:           r.duration("SAMPLE_INTERVAL", 20*time.Second),
			LowBatteryInterval:       r.duration("LOW_BATTERY_INTERVAL", 30*time.Second),
			LowBatteryThreshold:      r.float("LOW_BATTERY_THRESHOLD", 0.2),
			CaptureTimeout:           r.duration("CAPTURE_TIMEOUT", 10*time.Second),
			LowBatteryCaptureTimeout: r.duration("LOW_BATTERY_CAPTURE_TIMEOUT", 20*time.Second),
			LowBatteryMaxAge:         r.duration("LOW_BATTERY_MAX_AGE", time.Minute),
			SettingsPollInterval:     r.duration("SETTINGS_POLL_INTERVAL", time.Minute),
			VerdictTTL:               r.duration("VERDICT_TTL", 10*time.Second),
			PermissionTTL:            r.duration("PERMISSION_TTL", time.Minute),
			PermissionPollInterval:   r.duration("PERMISSION_POLL_INTERVAL", time.Minute),
			DrainInterval:            r.duration("DRAIN_INTERVAL", 30*time.Second),
			WatchdogInterval:         r.duration("WATCHDOG_INTERVAL", time.Minute),
			BackgroundInterval:       r.duration("BACKGROUND_INTERVAL", time.Minute),
			DedupeWindow:             r.duration("DEDUPE_WINDOW", 5*time.Second),
			DedupeDistance:           r.float("DEDUPE_DISTANCE", 10),
			QueueCapacity:            r.integer("QUEUE_CAPACITY", 50),
			IdentityTTL:              r.duration("IDENTITY_TTL", 24*time.Hour),
			UploadMaxAttempts:        r.integer("UPLOAD_MAX_ATTEMPTS", 3),
		},
		ControlAddr: getEnv("CONTROL_ADDR", "127.0.0.1:8765"),
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *AgentConfig) Validate() error {
	switch c.Collector.Transport {
	case "http":
		if c.Collector.URL == "" {
			return fmt.Errorf("COLLECTOR_URL is required")
		}
	case "mqtt":
		if c.Collector.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required when COLLECTOR_TRANSPORT=mqtt")
		}
	default:
		return fmt.Errorf("COLLECTOR_TRANSPORT must be http or mqtt, got %q", c.Collector.Transport)
	}

	if c.Settings.File == "" && c.Settings.URL == "" {
		return fmt.Errorf("SETTINGS_FILE or SETTINGS_URL is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("AGENT_DB_PATH is required")
	}

	t := c.Tracking
	for name, d := range map[string]time.Duration{
		"SAMPLE_INTERVAL":          t.SampleInterval,
		"LOW_BATTERY_INTERVAL":     t.LowBatteryInterval,
		"CAPTURE_TIMEOUT":          t.CaptureTimeout,
		"SETTINGS_POLL_INTERVAL":   t.SettingsPollInterval,
		"PERMISSION_POLL_INTERVAL": t.PermissionPollInterval,
		"DRAIN_INTERVAL":           t.DrainInterval,
		"WATCHDOG_INTERVAL":        t.WatchdogInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if t.LowBatteryThreshold < 0 || t.LowBatteryThreshold > 1 {
		return fmt.Errorf("LOW_BATTERY_THRESHOLD must be between 0 and 1")
	}
	if t.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive")
	}
	if t.UploadMaxAttempts <= 0 {
		return fmt.Errorf("UPLOAD_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// ========================================
// COLLECTOR
// ========================================

type CollectorConfig struct {
	App          AppConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Port         int
	SettingsFile string
	CORSOrigins  []string
}

// LoadCollector reads the collector service configuration.
func LoadCollector(envFile string) (*CollectorConfig, error) {
	loadEnvFile(envFile)

	r := &envReader{}
	config := &CollectorConfig{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     r.integer("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "hris_tracking"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET_KEY", ""),
			TokenExpiration: r.duration("DEVICE_TOKEN_EXPIRATION", 90*24*time.Hour),
		},
		Port:         r.integer("APP_PORT", 8080),
		SettingsFile: getEnv("SETTINGS_FILE", "settings.json"),
		CORSOrigins:  getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *CollectorConfig) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.TokenExpiration <= 0 {
		return fmt.Errorf("DEVICE_TOKEN_EXPIRATION must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *CollectorConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ParseLogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func loadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		slog.Debug("No env file loaded", "path", path, "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

// envReader parses typed values and collects every parse error.
type envReader struct {
	errs []error
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func (r *envReader) integer(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func (r *envReader) boolean(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
