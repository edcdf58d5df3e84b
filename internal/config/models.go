package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	if c.Runner.Workflow == "" {
		return errors.New("runner.workflow is required")
	}
	if c.Runner.RunTimeout <= 0 {
		return errors.New("runner.run_timeout must be positive")
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RunnerConfig contains provisioning sequence settings.
type RunnerConfig struct {
	Workflow   string        `mapstructure:"workflow"`
	StoreDir   string        `mapstructure:"store_dir"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	SelfUpdate bool          `mapstructure:"self_update"`
	RootPrefix string        `mapstructure:"root_prefix"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
