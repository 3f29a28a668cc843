// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a ring member process.
type Config struct {
	Environment string           `yaml:"environment" json:"environment"`
	Ring        *RingConfig      `yaml:"ring" json:"ring"`
	Relay       *RelayConfig     `yaml:"relay" json:"relay"`
	Swarm       *SwarmConfig     `yaml:"swarm" json:"swarm"`
	Stabilize   *StabilizeConfig `yaml:"stabilize" json:"stabilize"`
	KeyMgmt     *KeyStoreConfig  `yaml:"keystore" json:"keystore"`
	Logging     *LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig    `yaml:"health" json:"health"`
}

// RingConfig describes this node's position and identity within the ring.
type RingConfig struct {
	Namespace       string `yaml:"namespace" json:"namespace"`
	ListenAddr      string `yaml:"listen_addr" json:"listen_addr"`
	KeyAlgorithm    string `yaml:"key_algorithm" json:"key_algorithm"` // Ed25519 or Secp256k1
	SuccessorListSz int    `yaml:"successor_list_size" json:"successor_list_size"`
}

// RelayConfig bounds the source-routed relay protocol.
type RelayConfig struct {
	MaxTTL    time.Duration `yaml:"max_ttl" json:"max_ttl"`
	MaxHops   int           `yaml:"max_hops" json:"max_hops"`
	ClockSkew time.Duration `yaml:"clock_skew" json:"clock_skew"`
}

// SwarmConfig configures the transport used to dial and accept peer connections.
type SwarmConfig struct {
	Transport   string        `yaml:"transport" json:"transport"` // websocket, memory
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// StabilizeConfig tunes the ring-maintenance background loop.
type StabilizeConfig struct {
	StabilizeInterval  time.Duration `yaml:"stabilize_interval" json:"stabilize_interval"`
	FixFingersInterval time.Duration `yaml:"fix_fingers_interval" json:"fix_fingers_interval"`
	CheckPredInterval  time.Duration `yaml:"check_predecessor_interval" json:"check_predecessor_interval"`
}

// KeyStoreConfig represents key storage configuration
type KeyStoreConfig struct {
	Type          string `yaml:"type" json:"type"`
	Directory     string `yaml:"directory" json:"directory"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Ring != nil {
		if cfg.Ring.KeyAlgorithm == "" {
			cfg.Ring.KeyAlgorithm = "Ed25519"
		}
		if cfg.Ring.SuccessorListSz == 0 {
			cfg.Ring.SuccessorListSz = 4
		}
		if cfg.Ring.Namespace == "" {
			cfg.Ring.Namespace = "default"
		}
	}

	if cfg.Relay != nil {
		if cfg.Relay.MaxTTL == 0 {
			cfg.Relay.MaxTTL = 30 * time.Second
		}
		if cfg.Relay.MaxHops == 0 {
			cfg.Relay.MaxHops = 16
		}
		if cfg.Relay.ClockSkew == 0 {
			cfg.Relay.ClockSkew = 5 * time.Second
		}
	}

	if cfg.Swarm != nil {
		if cfg.Swarm.Transport == "" {
			cfg.Swarm.Transport = "websocket"
		}
		if cfg.Swarm.DialTimeout == 0 {
			cfg.Swarm.DialTimeout = 10 * time.Second
		}
	}

	if cfg.Stabilize != nil {
		if cfg.Stabilize.StabilizeInterval == 0 {
			cfg.Stabilize.StabilizeInterval = time.Second
		}
		if cfg.Stabilize.FixFingersInterval == 0 {
			cfg.Stabilize.FixFingersInterval = 2 * time.Second
		}
		if cfg.Stabilize.CheckPredInterval == 0 {
			cfg.Stabilize.CheckPredInterval = 3 * time.Second
		}
	}

	if cfg.KeyMgmt != nil {
		if cfg.KeyMgmt.Type == "" {
			cfg.KeyMgmt.Type = "memory"
		}
		if cfg.KeyMgmt.Directory == "" {
			cfg.KeyMgmt.Directory = ".ringmesh/keys"
		}
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}
}
