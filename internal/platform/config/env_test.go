package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type envTestConfig struct {
	Port    int           `env:"GHMCP_TEST_PORT" envDefault:"123"`
	Timeout time.Duration `env:"GHMCP_TEST_TIMEOUT" envDefault:"2s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	require.NoError(t, ParseEnv(&cfg))
	require.Equal(t, 123, cfg.Port)
	require.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("GHMCP_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env:")
}

func TestParseEnvFromReadsMap(t *testing.T) {
	var cfg envTestConfig

	require.NoError(t, ParseEnvFrom(map[string]string{"GHMCP_TEST_TIMEOUT": "5s"}, &cfg))
	require.Equal(t, 123, cfg.Port)
	require.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestParseEnvFromReportsEveryBadVariable(t *testing.T) {
	var cfg envTestConfig

	err := ParseEnvFrom(map[string]string{
		"GHMCP_TEST_PORT":    "x",
		"GHMCP_TEST_TIMEOUT": "soon",
	}, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"Port"`)
	require.Contains(t, err.Error(), `"Timeout"`)
}
