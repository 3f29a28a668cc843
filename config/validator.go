// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Level   string // "error", "warning", "info"
}

// ValidateConfiguration validates the entire configuration
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errors []ValidationError

	if cfg.Ring != nil {
		errors = append(errors, validateRingConfig(cfg.Ring)...)
	}

	if cfg.Relay != nil {
		errors = append(errors, validateRelayConfig(cfg.Relay)...)
	}

	if cfg.Swarm != nil {
		errors = append(errors, validateSwarmConfig(cfg.Swarm)...)
	}

	errors = append(errors, validateEnvironment(cfg.Environment)...)

	return errors
}

// validateRingConfig validates the ring identity/membership settings
func validateRingConfig(cfg *RingConfig) []ValidationError {
	var errors []ValidationError

	if cfg.ListenAddr == "" {
		errors = append(errors, ValidationError{
			Field:   "Ring.ListenAddr",
			Message: "listen address is required",
			Level:   "error",
		})
	}

	switch cfg.KeyAlgorithm {
	case "Ed25519", "Secp256k1":
	case "":
		errors = append(errors, ValidationError{
			Field:   "Ring.KeyAlgorithm",
			Message: "key algorithm should be set (recommended: Ed25519)",
			Level:   "warning",
		})
	default:
		errors = append(errors, ValidationError{
			Field:   "Ring.KeyAlgorithm",
			Message: fmt.Sprintf("unsupported key algorithm: %s (valid: Ed25519, Secp256k1)", cfg.KeyAlgorithm),
			Level:   "error",
		})
	}

	if cfg.SuccessorListSz < 1 {
		errors = append(errors, ValidationError{
			Field:   "Ring.SuccessorListSz",
			Message: "successor list size must be at least 1",
			Level:   "error",
		})
	}

	return errors
}

// validateRelayConfig validates the source-routed relay bounds
func validateRelayConfig(cfg *RelayConfig) []ValidationError {
	var errors []ValidationError

	if cfg.MaxHops <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Relay.MaxHops",
			Message: "max hops should be set to bound relay path length (recommended: 16)",
			Level:   "warning",
		})
	}

	if cfg.MaxTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Relay.MaxTTL",
			Message: "max TTL must be positive",
			Level:   "error",
		})
	}

	if cfg.ClockSkew < 0 {
		errors = append(errors, ValidationError{
			Field:   "Relay.ClockSkew",
			Message: "clock skew tolerance cannot be negative",
			Level:   "error",
		})
	}

	return errors
}

// validateSwarmConfig validates the transport layer settings
func validateSwarmConfig(cfg *SwarmConfig) []ValidationError {
	var errors []ValidationError

	switch cfg.Transport {
	case "websocket", "memory":
	case "":
		errors = append(errors, ValidationError{
			Field:   "Swarm.Transport",
			Message: "transport should be set (recommended: websocket)",
			Level:   "warning",
		})
	default:
		errors = append(errors, ValidationError{
			Field:   "Swarm.Transport",
			Message: fmt.Sprintf("unsupported transport: %s (valid: websocket, memory)", cfg.Transport),
			Level:   "error",
		})
	}

	if cfg.DialTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "Swarm.DialTimeout",
			Message: "dial timeout cannot be negative",
			Level:   "error",
		})
	}

	return errors
}

// validateEnvironment validates environment settings
func validateEnvironment(env string) []ValidationError {
	var errors []ValidationError

	validEnvs := []string{"local", "development", "staging", "production"}
	env = strings.ToLower(env)

	valid := false
	for _, v := range validEnvs {
		if env == v {
			valid = true
			break
		}
	}

	if !valid {
		errors = append(errors, ValidationError{
			Field:   "Environment",
			Message: fmt.Sprintf("invalid environment: %s (valid: %v)", env, validEnvs),
			Level:   "error",
		})
	}

	if env == "production" {
		errors = append(errors, ValidationError{
			Field:   "Environment",
			Message: "running in production mode - ensure keystore and transport settings are hardened",
			Level:   "info",
		})
	}

	return errors
}

// ValidateFile validates a configuration file
func ValidateFile(path string) ([]ValidationError, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return ValidateConfiguration(cfg), nil
}

// PrintValidationErrors prints validation errors in a formatted way
func PrintValidationErrors(errors []ValidationError) {
	if len(errors) == 0 {
		fmt.Println("configuration is valid")
		return
	}

	var errorCount, warningCount, infoCount int
	for _, e := range errors {
		switch e.Level {
		case "error":
			errorCount++
		case "warning":
			warningCount++
		case "info":
			infoCount++
		}
	}

	fmt.Printf("configuration validation found %d errors, %d warnings, %d info messages\n\n",
		errorCount, warningCount, infoCount)

	for _, e := range errors {
		if e.Level == "error" {
			fmt.Printf("ERROR: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errors {
		if e.Level == "warning" {
			fmt.Printf("WARNING: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errors {
		if e.Level == "info" {
			fmt.Printf("INFO: %s - %s\n", e.Field, e.Message)
		}
	}
}
