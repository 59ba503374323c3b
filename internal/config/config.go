// Package config holds the server configuration. Parsing and env
// binding live in cmd/server; this package only validates.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

type Config struct {
	Bind    string
	Port    int
	DataDir string
	// BaseURL is the externally reachable root used in issued media
	// URLs and join QR codes. Defaults to http://{bind}:{port}.
	BaseURL string

	RoundDuration    time.Duration
	QuestionCooldown time.Duration
	PositionInterval time.Duration

	Verbose bool
}

func Default() Config {
	return Config{
		Bind:             "0.0.0.0",
		Port:             8080,
		DataDir:          "./data",
		RoundDuration:    10 * time.Minute,
		QuestionCooldown: 180 * time.Second,
		PositionInterval: 2 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data directory must not be empty")
	}
	if c.RoundDuration <= 0 {
		return errors.New("round duration must be positive")
	}
	if c.QuestionCooldown < 0 {
		return errors.New("question cooldown must not be negative")
	}
	if c.PositionInterval <= 0 {
		return errors.New("position interval must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// ExternalURL resolves the advertised base URL.
func (c *Config) ExternalURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "http://" + c.Addr()
}
