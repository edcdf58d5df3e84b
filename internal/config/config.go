// Package config loads runner and server configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

// New loads configuration from the environment using viper with typed
// defaults and validation. A local .env file fills gaps without overriding
// variables already exported.
func New() (*Config, error) {
	v := viper.New()
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.SetEnvPrefix("condaci")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("runner.workflow", "condaci.yaml")
	v.SetDefault("runner.store_dir", ".condaci/runs")
	v.SetDefault("runner.run_timeout", "30m")
	v.SetDefault("runner.self_update", false)
	v.SetDefault("runner.root_prefix", "")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"runner.workflow",
		"runner.store_dir",
		"runner.run_timeout",
		"runner.self_update",
		"runner.root_prefix",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
