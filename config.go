package elmgauge

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits holds the plausibility bounds the router applies to incoming
// telemetry. Sane bounds are physically possible values; normal bounds are
// the expected operating range. An insane sample is dropped, a
// sane-but-abnormal one is forwarded with a warning error.
type Limits struct {
	VoltageSaneMin   float64 `yaml:"voltage_sane_min"`
	VoltageSaneMax   float64 `yaml:"voltage_sane_max"`
	VoltageNormalMin float64 `yaml:"voltage_normal_min"`
	VoltageNormalMax float64 `yaml:"voltage_normal_max"`

	CoolantSaneMin   float64 `yaml:"coolant_sane_min"`
	CoolantSaneMax   float64 `yaml:"coolant_sane_max"`
	CoolantNormalMin float64 `yaml:"coolant_normal_min"`
	CoolantNormalMax float64 `yaml:"coolant_normal_max"`

	RPMMax float64 `yaml:"rpm_max"`

	// RPMDiscrepancy is how far the ECU-reported RPM may drift from the
	// independently measured value before a discrepancy error is raised.
	RPMDiscrepancy float64 `yaml:"rpm_discrepancy"`
}

// Config carries everything the session, router and consumers need.
// Intervals are plain milliseconds in the file; callback fields are not
// part of the file format.
type Config struct {
	Port     string `yaml:"port"`
	Baudrate int    `yaml:"baudrate"`
	Debug    bool   `yaml:"debug"`

	PollIntervalMs   int `yaml:"poll_interval_ms"`
	ReadTimeoutMs    int `yaml:"read_timeout_ms"`
	StatusIntervalMs int `yaml:"status_interval_ms"`
	SendTimeoutMs    int `yaml:"send_timeout_ms"`

	QueueDepth int `yaml:"queue_depth"`
	WarnDepth  int `yaml:"warn_depth"`

	Limits Limits `yaml:"limits"`

	OnMessage  func(string)                      `yaml:"-"`
	OnProgress func(step, total int, cmd string) `yaml:"-"`
}

// DefaultConfig returns the configuration the firmware ships with.
func DefaultConfig() *Config {
	return &Config{
		Baudrate:         115200,
		PollIntervalMs:   200,
		ReadTimeoutMs:    10000,
		StatusIntervalMs: 1000,
		SendTimeoutMs:    5000,
		QueueDepth:       10,
		WarnDepth:        8,
		Limits: Limits{
			VoltageSaneMin:   0,
			VoltageSaneMax:   36,
			VoltageNormalMin: 10.5,
			VoltageNormalMax: 15.5,
			CoolantSaneMin:   -40,
			CoolantSaneMax:   215,
			CoolantNormalMin: -25,
			CoolantNormalMax: 125,
			RPMMax:           12000,
			RPMDiscrepancy:   500,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns
// the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ReadTimeout bounds one write/read-until-prompt exchange, wall clock.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// StatusInterval is how often the router refreshes the display's error
// area and backlight state. Never below one second.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalMs) * time.Millisecond
}

// SendTimeout bounds a blocking send to a consumer queue.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// normalize fills zero values with defaults and wires default callbacks so
// the rest of the code never nil-checks them.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Baudrate == 0 {
		c.Baudrate = def.Baudrate
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = def.PollIntervalMs
	}
	if c.ReadTimeoutMs <= 0 {
		c.ReadTimeoutMs = def.ReadTimeoutMs
	}
	if c.StatusIntervalMs < 1000 {
		c.StatusIntervalMs = def.StatusIntervalMs
	}
	if c.SendTimeoutMs <= 0 {
		c.SendTimeoutMs = def.SendTimeoutMs
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = def.QueueDepth
	}
	if c.WarnDepth <= 0 || c.WarnDepth > c.QueueDepth {
		c.WarnDepth = c.QueueDepth * 4 / 5
	}
	if c.OnMessage == nil {
		c.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(1)
			if ok {
				fmt.Printf("%s#%d %v\n", filepath.Base(file), no, msg)
			} else {
				fmt.Println(msg)
			}
		}
	}
	if c.OnProgress == nil {
		c.OnProgress = func(int, int, string) {}
	}
}
