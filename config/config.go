// Package config reads ticketbooth settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	APIURL      string        `long:"api-url" env:"TICKETBOOTH_API_URL" description:"base URL of the ticketing API"`
	RefreshURL  string        `long:"refresh-url" env:"TICKETBOOTH_REFRESH_URL" description:"token refresh endpoint, relative to the API URL or absolute" default:"/auth/refresh"`
	HTTPTimeout time.Duration `long:"http-timeout" env:"TICKETBOOTH_HTTP_TIMEOUT" default:"15s"`

	SessionBackend string `long:"session-backend" env:"TICKETBOOTH_SESSION_BACKEND" choice:"file" choice:"redis" choice:"memory" default:"file"`
	SessionFile    string `long:"session-file" env:"TICKETBOOTH_SESSION_FILE" description:"credentials file, defaults to the user config dir"`
	SessionKey     string `long:"session-key" env:"TICKETBOOTH_SESSION_KEY" default:"ticketbooth:session"`

	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR"`
	PostgresURL string `long:"postgres-url" env:"POSTGRES_URL"`

	HTTPAddr       string `long:"http-addr" env:"TICKETBOOTH_HTTP_ADDR" default:":8080"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT"`
	LogLevel       string `long:"log-level" env:"TICKETBOOTH_LOG_LEVEL" default:"info"`
}

// Load reads the configuration. Variables already set in the environment win
// over the ones from envFiles; missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not load %s: %w", file, err)
		}
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(nil); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid TICKETBOOTH_API_URL %q", c.APIURL)
	}
	switch c.SessionBackend {
	case SessionBackendFile, SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unknown TICKETBOOTH_SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionBackend == SessionBackendRedis && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for the redis session backend")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("TICKETBOOTH_HTTP_TIMEOUT must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid TICKETBOOTH_LOG_LEVEL: %w", err)
	}

	return nil
}

// ServeRequirements reports what the wallet service needs besides the CLI settings.
func (c Config) ServeRequirements() error {
	if c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required to serve the wallet")
	}
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required to serve the wallet")
	}
	return nil
}

func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
