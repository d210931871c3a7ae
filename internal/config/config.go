package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/quizzz-live/backend/internal/engine"
)

type Config struct {
	Bind         string
	Port         int
	Dev          bool
	AnswerWindow time.Duration
	PublicURL    string
}

func Default() *Config {
	return &Config{
		Bind:         "0.0.0.0",
		Port:         4000,
		AnswerWindow: engine.DefaultAnswerWindow,
		PublicURL:    "http://localhost:4000",
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.AnswerWindow <= 0 {
		return fmt.Errorf("invalid answer window: %s", c.AnswerWindow)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
