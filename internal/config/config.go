package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/common/config"
)

// Config risk engine configuration
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	HTTP struct {
		Addr            string        // listen address, default ":8080"
		ShutdownTimeout time.Duration // graceful shutdown, default 10s
	}

	Pipeline struct {
		ConsumerGroup string        // Redis Streams consumer group, default "alpha-risk"
		ConsumerName  string        // consumer name prefix, default hostname
		Workers       int           // workers per stream, default 4
		BatchSize     int64         // entries per XREADGROUP, default 10
		Block         time.Duration // XREADGROUP block, default 5s
	}

	Cache struct {
		ActiveAlertsKeyPrefix string // default "alpha:case:"
		ActiveAlertsSuffix    string // default ":active-alerts"
		ActiveAlertsTTL       time.Duration
	}

	Notification struct {
		MailGatewayURL   string // empty disables email delivery (rows are marked failed)
		MailGatewayToken string
		MailFrom         string
		Timeout          time.Duration
		PushEnabled      bool   // push critical alerts over MQTT
		PushTopicPrefix  string // default "alpha/clinicians/"
	}

	Scheduler struct {
		Enabled           bool
		Timezone          string // default "America/Mexico_City"
		CleanupSpec       string // default "0 2 * * *"
		RefreshSpec       string // default "0 3 * * 1"
		ResolvedRetention time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "alpha")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "alpha-risk")
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ShutdownTimeout = 10 * time.Second

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "alpha-risk"
	}
	cfg.Pipeline.ConsumerGroup = getEnv("PIPELINE_CONSUMER_GROUP", "alpha-risk")
	cfg.Pipeline.ConsumerName = getEnv("PIPELINE_CONSUMER_NAME", hostname)
	cfg.Pipeline.BatchSize = 10
	cfg.Pipeline.Block = 5 * time.Second

	cfg.Cache.ActiveAlertsKeyPrefix = getEnv("CACHE_ACTIVE_ALERTS_PREFIX", "alpha:case:")
	cfg.Cache.ActiveAlertsSuffix = ":active-alerts"
	cfg.Cache.ActiveAlertsTTL = 24 * time.Hour

	cfg.Notification.MailGatewayURL = getEnv("MAIL_GATEWAY_URL", "")
	cfg.Notification.MailGatewayToken = getEnv("MAIL_GATEWAY_TOKEN", "")
	cfg.Notification.MailFrom = getEnv("MAIL_FROM", "alertas@alpha.local")
	cfg.Notification.Timeout = 10 * time.Second
	cfg.Notification.PushTopicPrefix = getEnv("PUSH_TOPIC_PREFIX", "alpha/clinicians/")

	cfg.Scheduler.Timezone = getEnv("SCHEDULER_TIMEZONE", "America/Mexico_City")
	cfg.Scheduler.CleanupSpec = getEnv("SCHEDULER_CLEANUP_SPEC", "0 2 * * *")
	cfg.Scheduler.RefreshSpec = getEnv("SCHEDULER_REFRESH_SPEC", "0 3 * * 1")

	var err error
	if cfg.Pipeline.Workers, err = getEnvInt("PIPELINE_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Pipeline.Workers < 1 {
		return nil, fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Notification.PushEnabled, err = getEnvBool("PUSH_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Scheduler.Enabled, err = getEnvBool("SCHEDULER_ENABLED", true); err != nil {
		return nil, err
	}
	retentionDays, err := getEnvInt("RESOLVED_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	cfg.Scheduler.ResolvedRetention = time.Duration(retentionDays) * 24 * time.Hour

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
