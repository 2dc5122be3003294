package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gr-butler/estacion/env"
)

// Config is the station configuration.
type Config struct {
	Station   StationConfig   `yaml:"station"`
	Cadence   CadenceConfig   `yaml:"cadence"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Display   DisplayConfig   `yaml:"display"`
	Network   NetworkConfig   `yaml:"network"`
	Uplink    UplinkConfig    `yaml:"uplink"`
	Reporting ReportingConfig `yaml:"reporting"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type StationConfig struct {
	Name string `yaml:"name"`
	Test bool   `yaml:"test"` // log payloads, never send
}

// CadenceConfig holds the independent loop periods.
type CadenceConfig struct {
	Acquire time.Duration `yaml:"acquire"`
	Display time.Duration `yaml:"display"`
	Report  time.Duration `yaml:"report"`
	Tick    time.Duration `yaml:"tick"`
}

type SensorsConfig struct {
	Hardware        bool     `yaml:"hardware"` // false runs without periph.io
	Bus             string   `yaml:"bus"`
	HumidityAddr    uint16   `yaml:"humidity_addr"`
	BarometerAddr   uint16   `yaml:"barometer_addr"`
	SeaLevelHPa     float64  `yaml:"sea_level_hpa"`
	WindCalibration float64  `yaml:"wind_calibration"` // km/h per pulse/ms
	WindPin         string   `yaml:"wind_pin"`
	VanePins        []string `yaml:"vane_pins"`
	VaneTable       []int    `yaml:"vane_table,omitempty"` // code -> sector, -1 for unused codes
	Rain            string   `yaml:"rain"`                 // simulated, gauge or none
	RainPin         string   `yaml:"rain_pin"`
	StatusLedPin    string   `yaml:"status_led_pin"`
}

type DisplayConfig struct {
	Kind        string         `yaml:"kind"`  // lcd, console or none
	Class       string         `yaml:"class"` // lcd2004 or lcd1602
	Placeholder string         `yaml:"placeholder"`
	Precision   map[string]int `yaml:"precision"`
	Pins        LcdPins        `yaml:"pins"`
}

type LcdPins struct {
	RS string `yaml:"rs"`
	E  string `yaml:"e"`
	D4 string `yaml:"d4"`
	D5 string `yaml:"d5"`
	D6 string `yaml:"d6"`
	D7 string `yaml:"d7"`
}

type NetworkConfig struct {
	Mode           string        `yaml:"mode"` // nmcli or none
	Interface      string        `yaml:"interface"`
	Candidates     []Credential  `yaml:"candidates,omitempty"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	BackoffMax     time.Duration `yaml:"backoff_max"` // 0 keeps the fixed delay
}

type Credential struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

type UplinkConfig struct {
	Transport  string        `yaml:"transport"` // http or mqtt
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	MQTTBroker string        `yaml:"mqtt_broker"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ReportingConfig struct {
	WOW      WOWConfig      `yaml:"wow"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type WOWConfig struct {
	URL     string `yaml:"url"`
	SiteID  string `yaml:"site_id"`
	AuthKey string `yaml:"auth_key"`
}

type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type RedisConfig struct {
	Addr string        `yaml:"addr"`
	Key  string        `yaml:"key"`
	TTL  time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables /metrics
}

// Default returns the configuration of a stock station.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			Name: "estacion",
		},
		Cadence: CadenceConfig{
			Acquire: 2500 * time.Millisecond,
			Display: time.Second,
			Report:  env.ReportFreqMin * time.Minute,
			Tick:    50 * time.Millisecond,
		},
		Sensors: SensorsConfig{
			Hardware:        true,
			HumidityAddr:    env.HumidityI2C,
			BarometerAddr:   env.BarometerI2C,
			SeaLevelHPa:     env.SeaLevelHPa,
			WindCalibration: env.KmhPerPulsePerMs,
			WindPin:         env.WindSensorIn,
			VanePins:        append([]string(nil), env.VanePins...),
			Rain:            "gauge",
			RainPin:         env.RainSensorIn,
			StatusLedPin:    env.StatusLed,
		},
		Display: DisplayConfig{
			Kind:        "lcd",
			Class:       "lcd2004",
			Placeholder: "--",
			Precision:   DefaultPrecision(),
			Pins: LcdPins{
				RS: env.LcdRS,
				E:  env.LcdE,
				D4: env.LcdD4,
				D5: env.LcdD5,
				D6: env.LcdD6,
				D7: env.LcdD7,
			},
		},
		Network: NetworkConfig{
			Mode:           "nmcli",
			Interface:      "wlan0",
			AttemptTimeout: 10 * time.Second,
			RetryDelay:     666 * time.Millisecond,
		},
		Uplink: UplinkConfig{
			Transport:  "http",
			BaseURL:    "http://thingsboard.cloud",
			MQTTBroker: "tcp://thingsboard.cloud:1883",
			Timeout:    10 * time.Second,
		},
		Reporting: ReportingConfig{
			WOW: WOWConfig{
				URL: "http://wow.metoffice.gov.uk/automaticreading",
			},
			Postgres: PostgresConfig{
				Table: "observaciones",
			},
			Redis: RedisConfig{
				Key: "estacion:ultima",
				TTL: time.Hour,
			},
		},
	}
}

// DefaultPrecision is the number of decimals shown per payload field.
func DefaultPrecision() map[string]int {
	return map[string]int{
		"altitud":     0,
		"rocio":       0,
		"humedad":     0,
		"lluvia":      1,
		"presion":     1,
		"sensacion":   0,
		"temperatura": 0,
		"viento":      1,
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate reports the first setting the station cannot run with.
func (c *Config) Validate() error {
	if c.Cadence.Acquire <= 0 || c.Cadence.Display <= 0 || c.Cadence.Tick <= 0 {
		return errors.New("cadence periods must be positive")
	}
	if c.Sensors.WindCalibration <= 0 {
		return fmt.Errorf("invalid wind_calibration %v", c.Sensors.WindCalibration)
	}
	switch c.Sensors.Rain {
	case "simulated", "gauge", "none":
	default:
		return fmt.Errorf("invalid rain source %q (allowed: simulated, gauge, none)", c.Sensors.Rain)
	}
	if n := len(c.Sensors.VaneTable); n != 0 && n != 16 {
		return fmt.Errorf("vane_table needs 16 entries, got %d", n)
	}
	for code, s := range c.Sensors.VaneTable {
		if s < -1 || s > 15 {
			return fmt.Errorf("vane_table[%d] = %d out of range", code, s)
		}
	}
	if len(c.Sensors.VanePins) != 4 {
		return fmt.Errorf("vane_pins needs 4 lines, got %d", len(c.Sensors.VanePins))
	}
	switch c.Display.Kind {
	case "lcd", "console", "none":
	default:
		return fmt.Errorf("invalid display kind %q (allowed: lcd, console, none)", c.Display.Kind)
	}
	switch c.Display.Class {
	case "lcd2004", "lcd1602":
	default:
		return fmt.Errorf("invalid display class %q (allowed: lcd2004, lcd1602)", c.Display.Class)
	}
	switch c.Network.Mode {
	case "nmcli":
		if len(c.Network.Candidates) == 0 {
			return errors.New("network mode nmcli needs at least one candidate")
		}
	case "none":
	default:
		return fmt.Errorf("invalid network mode %q (allowed: nmcli, none)", c.Network.Mode)
	}
	switch c.Uplink.Transport {
	case "http", "mqtt":
	default:
		return fmt.Errorf("invalid uplink transport %q (allowed: http, mqtt)", c.Uplink.Transport)
	}
	if _, err := url.Parse(c.Uplink.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.Uplink.BaseURL, err)
	}
	if c.Uplink.Token == "" && !c.Station.Test {
		return errors.New("uplink token not set")
	}
	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Cadence.Acquire == 0 {
		c.Cadence.Acquire = def.Cadence.Acquire
	}
	if c.Cadence.Display == 0 {
		c.Cadence.Display = def.Cadence.Display
	}
	if c.Cadence.Report == 0 {
		c.Cadence.Report = def.Cadence.Report
	}
	if c.Cadence.Tick == 0 {
		c.Cadence.Tick = def.Cadence.Tick
	}

	if c.Sensors.SeaLevelHPa == 0 {
		c.Sensors.SeaLevelHPa = def.Sensors.SeaLevelHPa
	}
	if c.Sensors.WindCalibration == 0 {
		c.Sensors.WindCalibration = def.Sensors.WindCalibration
	}
	if len(c.Sensors.VanePins) == 0 {
		c.Sensors.VanePins = def.Sensors.VanePins
	}
	if c.Sensors.Rain == "" {
		c.Sensors.Rain = def.Sensors.Rain
	}

	if c.Display.Class == "" {
		c.Display.Class = def.Display.Class
	}
	if c.Display.Kind == "" {
		c.Display.Kind = def.Display.Kind
	}
	for field, decimals := range def.Display.Precision {
		if _, ok := c.Display.Precision[field]; !ok {
			if c.Display.Precision == nil {
				c.Display.Precision = map[string]int{}
			}
			c.Display.Precision[field] = decimals
		}
	}

	if c.Network.AttemptTimeout == 0 {
		c.Network.AttemptTimeout = def.Network.AttemptTimeout
	}
	if c.Uplink.Timeout == 0 {
		c.Uplink.Timeout = def.Uplink.Timeout
	}
	if c.Reporting.Redis.TTL == 0 {
		c.Reporting.Redis.TTL = def.Reporting.Redis.TTL
	}
}
