// Package config provides configuration loading and validation for the
// SnapLink reaper. Supports YAML files with environment variable overrides.
package config

import (
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore/s3"
	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
	"github.com/makwanagautam41/SnapLink-sub001/internal/notify"
	"github.com/makwanagautam41/SnapLink-sub001/internal/reaper"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore/postgres"
)

// Config holds all configuration for the reaper process.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	MediaStore    MediaStoreConfig    `yaml:"mediaStore"`
	Notifier      NotifierConfig      `yaml:"notifier"`
	Reaper        ReaperConfig        `yaml:"reaper"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"SNAPLINK_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"maxOpenConns" env:"SNAPLINK_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"maxIdleConns" env:"SNAPLINK_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" env:"SNAPLINK_DATABASE_CONN_MAX_LIFETIME"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout" env:"SNAPLINK_DATABASE_CONNECT_TIMEOUT"`
}

type MediaStoreConfig struct {
	Endpoint     string `yaml:"endpoint" env:"SNAPLINK_S3_ENDPOINT"`
	Bucket       string `yaml:"bucket" env:"SNAPLINK_S3_BUCKET"`
	Region       string `yaml:"region" env:"SNAPLINK_S3_REGION"`
	AccessKey    string `yaml:"accessKey" env:"SNAPLINK_S3_ACCESS_KEY"`
	SecretKey    string `yaml:"secretKey" env:"SNAPLINK_S3_SECRET_KEY"`
	UsePathStyle bool   `yaml:"usePathStyle" env:"SNAPLINK_S3_USE_PATH_STYLE"`
	ImagePrefix  string `yaml:"imagePrefix" env:"SNAPLINK_S3_IMAGE_PREFIX"`
	VideoPrefix  string `yaml:"videoPrefix" env:"SNAPLINK_S3_VIDEO_PREFIX"`
	MaxAttempts  int    `yaml:"maxAttempts" env:"SNAPLINK_S3_MAX_ATTEMPTS"`
}

type NotifierConfig struct {
	// Backend is "log", "smtp" or "kafka".
	Backend string      `yaml:"backend" env:"SNAPLINK_NOTIFIER_BACKEND"`
	From    string      `yaml:"from" env:"SNAPLINK_NOTIFIER_FROM"`
	SMTP    SMTPConfig  `yaml:"smtp"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

type SMTPConfig struct {
	Host      string        `yaml:"host" env:"SNAPLINK_SMTP_HOST"`
	Port      int           `yaml:"port" env:"SNAPLINK_SMTP_PORT"`
	Username  string        `yaml:"username" env:"SNAPLINK_SMTP_USERNAME"`
	Password  string        `yaml:"password" env:"SNAPLINK_SMTP_PASSWORD"`
	TLSPolicy string        `yaml:"tlsPolicy" env:"SNAPLINK_SMTP_TLS_POLICY"`
	Timeout   time.Duration `yaml:"timeout" env:"SNAPLINK_SMTP_TIMEOUT"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" env:"SNAPLINK_KAFKA_BROKERS"`
	Topic    string   `yaml:"topic" env:"SNAPLINK_KAFKA_TOPIC"`
	ClientID string   `yaml:"clientId" env:"SNAPLINK_KAFKA_CLIENT_ID"`
}

type ReaperConfig struct {
	Stories  StoriesConfig  `yaml:"stories"`
	Accounts AccountsConfig `yaml:"accounts"`
	// ShutdownTimeout is how long Stop waits for in-flight ticks.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SNAPLINK_SHUTDOWN_TIMEOUT"`
}

type StoriesConfig struct {
	Enabled     bool          `yaml:"enabled" env:"SNAPLINK_STORIES_ENABLED"`
	Schedule    string        `yaml:"schedule" env:"SNAPLINK_STORIES_SCHEDULE"`
	Retention   time.Duration `yaml:"retention" env:"SNAPLINK_STORIES_RETENTION"`
	OpTimeout   time.Duration `yaml:"opTimeout" env:"SNAPLINK_STORIES_OP_TIMEOUT"`
	TickTimeout time.Duration `yaml:"tickTimeout" env:"SNAPLINK_STORIES_TICK_TIMEOUT"`
}

type AccountsConfig struct {
	Enabled         bool          `yaml:"enabled" env:"SNAPLINK_ACCOUNTS_ENABLED"`
	Schedule        string        `yaml:"schedule" env:"SNAPLINK_ACCOUNTS_SCHEDULE"`
	OperatorAddress string        `yaml:"operatorAddress" env:"SNAPLINK_OPERATOR_ADDRESS"`
	OpTimeout       time.Duration `yaml:"opTimeout" env:"SNAPLINK_ACCOUNTS_OP_TIMEOUT"`
	TickTimeout     time.Duration `yaml:"tickTimeout" env:"SNAPLINK_ACCOUNTS_TICK_TIMEOUT"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"logLevel" env:"SNAPLINK_LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" env:"SNAPLINK_LOG_FORMAT"`
	// HealthAddr serves /healthz and /readyz, and /metrics unless
	// MetricsAddr is set.
	HealthAddr string `yaml:"healthAddr" env:"SNAPLINK_HEALTH_ADDR"`
	// MetricsAddr serves /metrics on a separate listener when set.
	MetricsAddr     string        `yaml:"metricsAddr" env:"SNAPLINK_METRICS_ADDR"`
	StaleAfter      time.Duration `yaml:"staleAfter" env:"SNAPLINK_STALE_AFTER"`
	BacklogInterval time.Duration `yaml:"backlogInterval" env:"SNAPLINK_BACKLOG_INTERVAL"`
	Profiling       bool          `yaml:"profiling" env:"SNAPLINK_PROFILING"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		MediaStore: MediaStoreConfig{
			Region:      "us-east-1",
			ImagePrefix: "images/",
			VideoPrefix: "videos/",
		},
		Notifier: NotifierConfig{
			Backend: notify.BackendLog,
			From:    "snaplink-reaper@localhost",
			SMTP: SMTPConfig{
				Port:      587,
				TLSPolicy: "mandatory",
				Timeout:   15 * time.Second,
			},
			Kafka: KafkaConfig{
				Topic:    "snaplink.operator-notifications",
				ClientID: "snaplink-reaper",
			},
		},
		Reaper: ReaperConfig{
			Stories: StoriesConfig{
				Enabled:     true,
				Schedule:    "0 * * * *",
				Retention:   model.StoryRetention,
				OpTimeout:   reaper.DefaultOpTimeout,
				TickTimeout: 50 * time.Minute,
			},
			Accounts: AccountsConfig{
				Enabled:     true,
				Schedule:    "0 * * * *",
				OpTimeout:   reaper.DefaultOpTimeout,
				TickTimeout: 50 * time.Minute,
			},
			ShutdownTimeout: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       "json",
			HealthAddr:      ":9090",
			StaleAfter:      30 * time.Second,
			BacklogInterval: time.Minute,
		},
	}
}

// Postgres returns the record store connection settings.
func (c DatabaseConfig) Postgres() postgres.Config {
	return postgres.Config{
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnectTimeout:  c.ConnectTimeout,
	}
}

// S3 returns the media store settings.
func (c MediaStoreConfig) S3() s3.Config {
	return s3.Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKey,
		SecretAccessKey: c.SecretKey,
		UsePathStyle:    c.UsePathStyle,
		ImagePrefix:     c.ImagePrefix,
		VideoPrefix:     c.VideoPrefix,
		MaxAttempts:     c.MaxAttempts,
	}
}

// Notify returns the notifier settings.
func (c NotifierConfig) Notify() notify.Config {
	return notify.Config{
		Backend: c.Backend,
		From:    c.From,
		SMTP: notify.SMTPConfig{
			Host:      c.SMTP.Host,
			Port:      c.SMTP.Port,
			Username:  c.SMTP.Username,
			Password:  c.SMTP.Password,
			TLSPolicy: c.SMTP.TLSPolicy,
			Timeout:   c.SMTP.Timeout,
		},
		Kafka: notify.KafkaConfig{
			Brokers:  c.Kafka.Brokers,
			Topic:    c.Kafka.Topic,
			ClientID: c.Kafka.ClientID,
		},
	}
}

// StoryReaper returns the story reaper settings.
func (c StoriesConfig) StoryReaper() reaper.StoryConfig {
	return reaper.StoryConfig{
		Retention: c.Retention,
		OpTimeout: c.OpTimeout,
	}
}

// AccountReaper returns the account reaper settings.
func (c AccountsConfig) AccountReaper() reaper.AccountConfig {
	return reaper.AccountConfig{
		OperatorAddress: c.OperatorAddress,
		OpTimeout:       c.OpTimeout,
	}
}
