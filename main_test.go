package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gr-butler/estacion/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides_Env(t *testing.T) {
	t.Setenv("ESTACION_UPLINK_TOKEN", "from-env")
	t.Setenv("ESTACION_NETWORK_MODE", "none")
	t.Setenv("ESTACION_TEST", "true")

	cfg := config.Default()
	applyOverrides(cfg, newViper())

	assert.Equal(t, "from-env", cfg.Uplink.Token)
	assert.Equal(t, "none", cfg.Network.Mode)
	assert.True(t, cfg.Station.Test)
	assert.Equal(t, "http://thingsboard.cloud", cfg.Uplink.BaseURL, "untouched")
}

func TestConfigCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "estacion.yaml")
	require.NoError(t, os.WriteFile(file, []byte("station:\n  name: iset57\n"), 0600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", file, "--uplink.token", "xyz", "--display.kind", "console"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "name: iset57")
	assert.Contains(t, out.String(), "token: xyz")
	assert.Contains(t, out.String(), "kind: console")
}

func TestLoadConfig_Invalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "estacion.yaml")
	require.NoError(t, os.WriteFile(file, []byte("display:\n  class: oled\n"), 0600))

	v := newViper()
	v.Set("config", file)
	_, err := loadConfig(v)
	assert.Error(t, err)
}
