package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/makwanagautam41/SnapLink-sub001/internal/notify"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "SNAPLINK_CONFIG"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads the file named by SNAPLINK_CONFIG, or starts from defaults
// when it is unset, then applies environment overrides and validates.
func Load() (*Config, error) {
	cfg, err := LoadNoValidate()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadNoValidate is Load without validation. The status subcommand uses
// it so a half-configured deployment can still be inspected.
func LoadNoValidate() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFromPathNoValidate(path)
	}
	cfg := Default()
	if err := cfg.applyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads a YAML file over the defaults, applies environment
// overrides and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadFromPathNoValidate(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPathNoValidate is LoadFromPath without validation.
func LoadFromPathNoValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.applyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over Default(). Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Database.DSN == "" {
		fail("database.dsn is required")
	}
	if c.MediaStore.Bucket == "" {
		fail("mediaStore.bucket is required")
	}

	stories := c.Reaper.Stories
	if stories.Enabled {
		if _, err := cron.ParseStandard(stories.Schedule); err != nil {
			fail("reaper.stories.schedule %q: %v", stories.Schedule, err)
		}
		if stories.Retention <= 0 {
			fail("reaper.stories.retention must be positive, got %s", stories.Retention)
		}
	}

	accounts := c.Reaper.Accounts
	if accounts.Enabled {
		if _, err := cron.ParseStandard(accounts.Schedule); err != nil {
			fail("reaper.accounts.schedule %q: %v", accounts.Schedule, err)
		}
		if accounts.OperatorAddress == "" {
			fail("reaper.accounts.operatorAddress is required when the account reaper is enabled")
		} else if _, err := mail.ParseAddress(accounts.OperatorAddress); err != nil {
			fail("reaper.accounts.operatorAddress %q: %v", accounts.OperatorAddress, err)
		}
	}

	for name, d := range map[string]time.Duration{
		"reaper.stories.opTimeout":    stories.OpTimeout,
		"reaper.stories.tickTimeout":  stories.TickTimeout,
		"reaper.accounts.opTimeout":   accounts.OpTimeout,
		"reaper.accounts.tickTimeout": accounts.TickTimeout,
	} {
		if d < 0 {
			fail("%s must not be negative, got %s", name, d)
		}
	}
	if c.Reaper.ShutdownTimeout <= 0 {
		fail("reaper.shutdownTimeout must be positive, got %s", c.Reaper.ShutdownTimeout)
	}

	switch c.Notifier.Backend {
	case "", notify.BackendLog:
	case notify.BackendSMTP:
		if c.Notifier.SMTP.Host == "" {
			fail("notifier.smtp.host is required for the smtp backend")
		}
		switch c.Notifier.SMTP.TLSPolicy {
		case "", "mandatory", "opportunistic", "none":
		default:
			fail("notifier.smtp.tlsPolicy %q is not one of mandatory, opportunistic, none", c.Notifier.SMTP.TLSPolicy)
		}
	case notify.BackendKafka:
		if len(c.Notifier.Kafka.Brokers) == 0 {
			fail("notifier.kafka.brokers is required for the kafka backend")
		}
		if c.Notifier.Kafka.Topic == "" {
			fail("notifier.kafka.topic is required for the kafka backend")
		}
	default:
		fail("notifier.backend %q is not one of log, smtp, kafka", c.Notifier.Backend)
	}

	switch c.Observability.LogFormat {
	case "", "json", "text":
	default:
		fail("observability.logFormat %q is not one of json, text", c.Observability.LogFormat)
	}

	return errors.Join(errs...)
}

// applyEnv overrides fields tagged `env:"NAME"` with set variables.
// A nil environ reads the process environment.
func (c *Config) applyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	c.Notifier.Kafka.Brokers = compact(c.Notifier.Kafka.Brokers)
	return nil
}

// compact trims list items and drops empty ones.
func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
