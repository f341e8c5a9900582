// Package config loads the directory service settings from a YAML file,
// lets DIRECTORY_* environment variables override secrets and connection
// details, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/directory/internal/directory/db"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DIRECTORY_"

// DefaultPath is used when DIRECTORY_CONFIG is not set.
var DefaultPath = filepath.Join("internal", "directory", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int    `yaml:"GRPC_PORT"`
	HTTPPort int    `yaml:"HTTP_PORT"`
	LogLevel string `yaml:"LOG_LEVEL"`

	DBDriver         string        `yaml:"DB_DRIVER"`
	DBDSN            string        `yaml:"DB_DSN"`
	DBHost           string        `yaml:"DB_HOST"`
	DBPort           int           `yaml:"DB_PORT"`
	DBUser           string        `yaml:"DB_USER"`
	DBPassword       string        `yaml:"DB_PASSWORD"`
	DBName           string        `yaml:"DB_NAME"`
	DBSSLMode        string        `yaml:"DB_SSLMODE"`
	DBMaxOpenConns   int           `yaml:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns   int           `yaml:"DB_MAX_IDLE_CONNS"`
	DBConnectTimeout time.Duration `yaml:"DB_CONNECT_TIMEOUT"`

	KafkaBrokers  []string `yaml:"KAFKA_BROKERS"`
	Topic         string   `yaml:"TOPIC"`
	ConsumerGroup string   `yaml:"CONSUMER_GROUP"`

	JWTSecret string        `yaml:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"TOKEN_TTL"`
}

// Load reads the file at path, or DIRECTORY_CONFIG, or DefaultPath, in
// that order of preference.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		GRPCPort:         50051,
		HTTPPort:         8080,
		LogLevel:         "info",
		DBDriver:         db.DriverPostgres,
		DBPort:           5432,
		DBSSLMode:        "disable",
		DBConnectTimeout: 30 * time.Second,
		Topic:            "directory-events",
		ConsumerGroup:    "directory-eventlog",
		TokenTTL:         24 * time.Hour,
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("DB_DRIVER", &c.DBDriver)
	str("DB_DSN", &c.DBDSN)
	str("DB_HOST", &c.DBHost)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("JWT_SECRET", &c.JWTSecret)
	str("TOPIC", &c.Topic)
	str("LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup(envPrefix + "KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if err := num("GRPC_PORT", &c.GRPCPort); err != nil {
		return err
	}
	if err := num("HTTP_PORT", &c.HTTPPort); err != nil {
		return err
	}
	return num("DB_PORT", &c.DBPort)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	if !validPort(c.GRPCPort) {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if !validPort(c.HTTPPort) {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort))
	}
	if c.GRPCPort == c.HTTPPort {
		errs = append(errs, errors.New("GRPC_PORT and HTTP_PORT must differ"))
	}
	switch c.DBDriver {
	case db.DriverPostgres:
		if c.DBDSN == "" && (c.DBHost == "" || c.DBName == "" || c.DBUser == "") {
			errs = append(errs, errors.New("postgres needs DB_DSN or DB_HOST, DB_NAME and DB_USER"))
		}
	case db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if len(c.KafkaBrokers) > 0 && c.Topic == "" {
		errs = append(errs, errors.New("TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}

// Database returns the store settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:       c.DBDriver,
		DSN:          c.DBDSN,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		DBName:       c.DBName,
		SSLMode:      c.DBSSLMode,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
	}
}
