// Package logger provides the concrete Logger backends: rs/zerolog by default
// and sirupsen/logrus on request.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	corelogger "github.com/kilianp07/fleetnav/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Backend names accepted by Configure.
const (
	BackendZerolog = "zerolog"
	BackendLogrus  = "logrus"
)

// Config selects the backend and minimum level.
type Config struct {
	Backend string `json:"backend"`
	Level   string `json:"level"`
}

// SetDefaults fills empty fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendZerolog
	}
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the backend and level names.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendZerolog, BackendLogrus:
	default:
		return fmt.Errorf("logging: unknown backend %q", c.Backend)
	}
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	return nil
}

var (
	mu      sync.RWMutex
	current           = Config{Backend: BackendZerolog, Level: "info"}
	output  io.Writer = os.Stdout
)

// Configure sets the backend used by New.
func Configure(c Config) error {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return err
	}
	mu.Lock()
	current = c
	mu.Unlock()
	return nil
}

// SetOutput redirects every logger created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// New returns a Logger for the given component using the configured backend.
// The output format follows the APP_ENV variable.
func New(component string) Logger {
	mu.RLock()
	c, w := current, output
	mu.RUnlock()
	dev := strings.ToLower(os.Getenv("APP_ENV")) == "dev"
	if c.Backend == BackendLogrus {
		return newLogrus(component, c.Level, w, dev)
	}
	return newZerolog(component, c.Level, w, dev)
}
