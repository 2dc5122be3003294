package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2500*time.Millisecond, cfg.Cadence.Acquire)
	assert.Equal(t, time.Second, cfg.Cadence.Display)
	assert.Equal(t, 15*time.Minute, cfg.Cadence.Report)
	assert.Equal(t, 2400.0, cfg.Sensors.WindCalibration)
	assert.Len(t, cfg.Sensors.VanePins, 4)
	assert.Equal(t, "http://thingsboard.cloud", cfg.Uplink.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Network.AttemptTimeout)
	assert.Equal(t, 1, cfg.Display.Precision["presion"])
	assert.Equal(t, 0, cfg.Display.Precision["humedad"])
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "estacion.yaml")
	yamlContent := `
station:
  name: iset57
cadence:
  acquire: 2s
  display: 500ms
sensors:
  hardware: false
  barometer_addr: 0x77
  wind_calibration: 1.5
  rain: simulated
  vane_table: [0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, -1, -1]
display:
  class: lcd1602
  precision:
    presion: 0
network:
  mode: nmcli
  candidates:
    - ssid: ISET57
      password: "12345678"
    - ssid: Claro
      password: secret
  backoff_max: 1m
uplink:
  transport: mqtt
  token: abc
`
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "iset57", cfg.Station.Name)
	assert.Equal(t, 2*time.Second, cfg.Cadence.Acquire)
	assert.Equal(t, 500*time.Millisecond, cfg.Cadence.Display)
	assert.Equal(t, 15*time.Minute, cfg.Cadence.Report) // default
	assert.False(t, cfg.Sensors.Hardware)
	assert.Equal(t, uint16(0x77), cfg.Sensors.BarometerAddr)
	assert.Equal(t, 1.5, cfg.Sensors.WindCalibration)
	assert.Equal(t, -1, cfg.Sensors.VaneTable[15])
	assert.Equal(t, "lcd1602", cfg.Display.Class)
	assert.Equal(t, 0, cfg.Display.Precision["presion"])
	assert.Equal(t, 1, cfg.Display.Precision["viento"]) // back-filled
	require.Len(t, cfg.Network.Candidates, 2)
	assert.Equal(t, "ISET57", cfg.Network.Candidates[0].SSID)
	assert.Equal(t, time.Minute, cfg.Network.BackoffMax)
	assert.Equal(t, "mqtt", cfg.Uplink.Transport)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("invalid: yaml: content: ["), 0600))

	cfg, err := Load(file)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Uplink.Token = "tkn"
	cfg.Cadence.Acquire = 3 * time.Second
	cfg.Network.Candidates = []Credential{{SSID: "a", Password: "b"}}

	file := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(file))

	loaded, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Uplink.Token = "tkn"
		cfg.Network.Candidates = []Credential{{SSID: "a"}}
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no token", func(c *Config) { c.Uplink.Token = "" }},
		{"no candidates", func(c *Config) { c.Network.Candidates = nil }},
		{"zero acquire", func(c *Config) { c.Cadence.Acquire = 0 }},
		{"bad calibration", func(c *Config) { c.Sensors.WindCalibration = -1 }},
		{"bad rain", func(c *Config) { c.Sensors.Rain = "bucket" }},
		{"short vane table", func(c *Config) { c.Sensors.VaneTable = []int{0, 1} }},
		{"vane sector out of range", func(c *Config) {
			c.Sensors.VaneTable = make([]int, 16)
			c.Sensors.VaneTable[3] = 16
		}},
		{"three vane pins", func(c *Config) { c.Sensors.VanePins = c.Sensors.VanePins[:3] }},
		{"bad display class", func(c *Config) { c.Display.Class = "oled" }},
		{"bad display kind", func(c *Config) { c.Display.Kind = "tv" }},
		{"bad network mode", func(c *Config) { c.Network.Mode = "wpa" }},
		{"bad transport", func(c *Config) { c.Uplink.Transport = "coap" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("test mode needs no token", func(t *testing.T) {
		cfg := valid()
		cfg.Uplink.Token = ""
		cfg.Station.Test = true
		assert.NoError(t, cfg.Validate())
	})
}
