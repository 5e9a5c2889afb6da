package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/jmehdipour/formdesk/internal/db"
	"github.com/jmehdipour/formdesk/internal/submitter"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Site       SiteConfig      `mapstructure:"site"`
	Helpdesk   HelpdeskConfig  `mapstructure:"helpdesk"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// Pool returns the connection pool options for this database.
func (d DatabaseConfig) Pool() db.PoolOpts {
	return db.PoolOpts{
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// GuardTTL is how long a processed (submission, feed) pair is remembered.
	GuardTTL time.Duration `mapstructure:"guard_ttl"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type SiteConfig struct {
	URL string `mapstructure:"url"`
}

type HelpdeskConfig struct {
	Vendor           string        `mapstructure:"vendor"`
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	APISecret        string        `mapstructure:"api_secret"`
	DefaultMailboxID string        `mapstructure:"default_mailbox_id"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (FORMDESK_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (FORMDESK_HELPDESK_API_KEY, ...)
	v.SetEnvPrefix("FORMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings returns the helpdesk settings the submitter runs with.
func (c Config) Settings() submitter.Settings {
	return submitter.Settings{
		Vendor:         strings.TrimSpace(c.Helpdesk.Vendor),
		BaseURL:        strings.TrimRight(strings.TrimSpace(c.Helpdesk.BaseURL), "/"),
		APIKey:         c.Helpdesk.APIKey,
		APISecret:      c.Helpdesk.APISecret,
		DefaultMailbox: c.Helpdesk.DefaultMailboxID,
		SiteURL:        c.Site.URL,
		Timeout:        c.Helpdesk.Timeout,
	}
}
