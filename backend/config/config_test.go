package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(3000), cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":3000", cfg.ListenAddr())
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(8081), cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Load([]string{"--port", "9090", "-l", "trace"})
	require.NoError(t, err)
	assert.Equal(t, uint16(9090), cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "port not a number", env: map[string]string{"PORT": "http"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "zero port", args: []string{"--port", "0"}},
		{name: "bad level", args: []string{"--log-level", "loud"}},
		{name: "unknown flag", args: []string{"--verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("LOG_LEVEL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}
