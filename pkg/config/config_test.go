package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Brokers  []string      `env:"TEST_CFG_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Interval time.Duration `env:"TEST_CFG_INTERVAL" envDefault:"30s"`
	Degrade  bool          `env:"TEST_CFG_DEGRADE" envDefault:"true"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.True(t, cfg.Degrade)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_BROKERS", "a:9092,b:9092")
	t.Setenv("TEST_CFG_INTERVAL", "0s")
	t.Setenv("TEST_CFG_DEGRADE", "false")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.Zero(t, cfg.Interval)
	assert.False(t, cfg.Degrade)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type checkedConfig struct {
	Engine string `env:"TEST_CFG_ENGINE" envDefault:"memory"`
}

func (c *checkedConfig) Validate() error {
	if c.Engine != "memory" && c.Engine != "elasticsearch" {
		return errors.New("unknown engine " + c.Engine)
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	t.Setenv("TEST_CFG_ENGINE", "solr")

	var cfg checkedConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
	assert.Contains(t, err.Error(), "solr")
}

func TestLoad_ValidatePasses(t *testing.T) {
	var cfg checkedConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "memory", cfg.Engine)
}
