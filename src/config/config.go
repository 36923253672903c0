// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile is the environment variable consulted for the config file
// path when none is passed explicitly.
const EnvConfigFile = "TLS_CERT_BUNDLER_CONFIG_FILE"

// configFormat represents supported configuration file formats.
type configFormat int

const (
	// configFormatJSON represents JSON configuration format (.json)
	configFormatJSON configFormat = iota
	// configFormatYAML represents YAML configuration format (.yaml, .yml)
	configFormatYAML
)

// Config represents the bundler configuration structure.
// It contains default settings for chain resolution and archive validation.
//
// The configuration can be loaded from a JSON or YAML file specified by the
// TLS_CERT_BUNDLER_CONFIG_FILE environment variable, with defaults applied
// for any missing values. Supported file extensions: .json, .yaml, .yml
type Config struct {
	// Defaults: Default settings for certificate chain operations
	Defaults struct {
		// WarnDays: Number of days before expiry to show warnings
		WarnDays int `json:"warnDays" yaml:"warnDays"`
		// Timeout: Default timeout in seconds for issuer downloads
		Timeout int `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	} `json:"defaults" yaml:"defaults"`

	// Resolver: Configuration for automatic chain resolution
	Resolver struct {
		// MaxDepth: Upper bound on issuer fetches per resolution
		MaxDepth int `json:"maxDepth" yaml:"maxDepth"`
		// ProxyTemplate: URL template with a %s placeholder used to retry
		// issuer downloads through a relay when the direct fetch fails
		ProxyTemplate string `json:"proxyTemplate,omitempty" yaml:"proxyTemplate,omitempty"`
		// LooseDNFallback: Accept DN-equality matches when the signature
		// algorithm cannot be evaluated
		LooseDNFallback *bool `json:"looseDnFallback,omitempty" yaml:"looseDnFallback,omitempty"`
		// TrustStore: Root source for chain completion ("system" or "mozilla")
		TrustStore string `json:"trustStore,omitempty" yaml:"trustStore,omitempty"`
	} `json:"resolver" yaml:"resolver"`
}

// detectConfigFormat determines the configuration file format based on file
// extension. It supports .json, .yaml, and .yml extensions, matched
// case-insensitively.
func detectConfigFormat(configPath string) configFormat {
	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		return configFormatYAML
	default:
		return configFormatJSON
	}
}

// unmarshalConfig unmarshals configuration data based on the specified format.
func unmarshalConfig(data []byte, config *Config, format configFormat) error {
	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// Load loads bundler configuration from a JSON or YAML file or applies
// defaults.
//
// Configuration Priority:
//  1. Default values are set
//  2. TLS_CERT_BUNDLER_CONFIG_FILE environment variable is checked if
//     configPath is empty
//  3. Config file values override defaults (if file exists and is valid)
//
// The file format is detected from the extension (.json, .yaml, or .yml).
// Out-of-range numeric values fall back to the defaults.
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.Defaults.WarnDays = 30
	config.Defaults.Timeout = 30
	config.Resolver.MaxDepth = 5
	config.Resolver.TrustStore = "system"

	// Check environment variable for config file path if not provided
	if configPath == "" {
		configPath = os.Getenv(EnvConfigFile)
	}

	// Try to load from file if path is provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		format := detectConfigFormat(configPath)
		if err := unmarshalConfig(data, config, format); err != nil {
			return nil, err
		}

		// Validate and set defaults for invalid values
		if config.Defaults.WarnDays <= 0 {
			config.Defaults.WarnDays = 30
		}
		if config.Defaults.Timeout <= 0 {
			config.Defaults.Timeout = 30
		}
		if config.Resolver.MaxDepth <= 0 {
			config.Resolver.MaxDepth = 5
		}
		if config.Resolver.TrustStore == "" {
			config.Resolver.TrustStore = "system"
		}
	}

	return config, nil
}

// LooseDNFallback reports the configured fallback toggle, defaulting to true
// when the config file left it unset.
func (c *Config) LooseDNFallback() bool {
	if c.Resolver.LooseDNFallback == nil {
		return true
	}
	return *c.Resolver.LooseDNFallback
}
