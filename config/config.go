// Package config loads this client's run parameters from an optional YAML
// file, with command-line flags taking precedence over file values and
// file values taking precedence over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RCBConfig names one Report Control Block to subscribe, by its domain and
// item path, and whether it is buffered.
type RCBConfig struct {
	Domain   string `yaml:"domain"`
	Item     string `yaml:"item"`
	Buffered bool   `yaml:"buffered"`
}

// Config is the full set of run parameters, whether sourced from a YAML
// file, CLI flags, or the defaults in Default.
type Config struct {
	Host              string      `yaml:"host"`
	Port              int         `yaml:"port"`
	Domain            string      `yaml:"domain"`
	SCLPath           string      `yaml:"scl"`
	Debug             bool        `yaml:"debug"`
	Verbose           bool        `yaml:"verbose"`
	SinkURL           string      `yaml:"sink_url"`
	SinkBatchMs       int         `yaml:"sink_batch_ms"`
	SinkNoBatch       bool        `yaml:"sink_no_batch"`
	IntegrityPeriodMs uint32      `yaml:"integrity_period_ms"`
	RCBs              []RCBConfig `yaml:"rcbs"`
}

// Default returns the built-in defaults, applied before a config file (if
// any) is merged in and before CLI flags are applied over that.
func Default() Config {
	return Config{
		Port:              102,
		Domain:            "VMC7_1LD0",
		SinkBatchMs:       200,
		IntegrityPeriodMs: 10000,
	}
}

// Load reads path (if non-empty) as YAML over Default, returning the merged
// result. A missing path is not an error: this client runs from flags alone
// just as well as from a config file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
