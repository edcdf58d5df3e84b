package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "condaci.yaml", cfg.Runner.Workflow)
	assert.Equal(t, ".condaci/runs", cfg.Runner.StoreDir)
	assert.Equal(t, 30*time.Minute, cfg.Runner.RunTimeout)
	assert.False(t, cfg.Runner.SelfUpdate)
}

func TestNewReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONDACI_SERVER_PORT", "9999")
	t.Setenv("CONDACI_LOGGING_LEVEL", "debug")
	t.Setenv("CONDACI_RUNNER_SELF_UPDATE", "true")
	t.Setenv("CONDACI_RUNNER_RUN_TIMEOUT", "90s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Runner.SelfUpdate)
	assert.Equal(t, 90*time.Second, cfg.Runner.RunTimeout)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8090},
		Runner: RunnerConfig{Workflow: "condaci.yaml", RunTimeout: time.Minute},
	}
	require.NoError(t, valid.Validate())

	noPort := valid
	noPort.Server.Port = 0
	assert.Error(t, noPort.Validate())

	noWorkflow := valid
	noWorkflow.Runner.Workflow = ""
	assert.Error(t, noWorkflow.Validate())

	badTimeout := valid
	badTimeout.Runner.RunTimeout = 0
	assert.Error(t, badTimeout.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8090}}
	assert.Equal(t, "127.0.0.1:8090", cfg.ServerAddr())
}
