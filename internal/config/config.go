package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"gym-access-go/pkg/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr   string `env:"HTTP_ADDR" env-default:"127.0.0.1:8080"`
	Env        string `env:"ENV" env-default:"development"`
	AdminToken string `env:"ADMIN_TOKEN"`
	Timezone   string `env:"GYM_TIMEZONE" env-default:"America/Argentina/Buenos_Aires"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`

	Log       LogConfig
	DB        DBConfig
	Engine    EngineConfig
	Kiosk     KioskConfig
	Telemetry TelemetryConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

type DBConfig struct {
	Driver          string        `env:"DB_DRIVER" env-default:"sqlite"`
	Path            string        `env:"DB_PATH" env-default:"gym_access.db"`
	DSN             string        `env:"DB_DSN"`
	BusyTimeout     time.Duration `env:"DB_BUSY_TIMEOUT" env-default:"5s"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"4"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"2"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

// EngineConfig bounds the retry loop around contended transactions.
type EngineConfig struct {
	MaxRetries   int           `env:"ENGINE_MAX_RETRIES" env-default:"4"`
	RetryInitial time.Duration `env:"ENGINE_RETRY_INITIAL" env-default:"20ms"`
}

type KioskConfig struct {
	RatePerSecond float64 `env:"KIOSK_RATE_PER_SECOND" env-default:"5"`
	Burst         int     `env:"KIOSK_RATE_BURST" env-default:"10"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" env-default:"gym-access"`
}

// Load reads an optional .env file and then the process environment.
func Load(log logger.Logger) (Config, error) {
	if err := loadDotEnv(log); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case DriverSQLite:
		if strings.TrimSpace(c.DB.Path) == "" {
			return errors.New("config: DB_PATH is required for sqlite")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			return errors.New("config: DB_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Engine.MaxRetries < 0 {
		return errors.New("config: ENGINE_MAX_RETRIES must be >= 0")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: GYM_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the time zone that defines "today" at the front desk.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) LoggerOptions() logger.Options {
	return logger.Options{Env: c.Env, Level: c.Log.Level, Format: c.Log.Format}
}
