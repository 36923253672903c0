// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Defaults.WarnDays)
	assert.Equal(t, 30, cfg.Defaults.Timeout)
	assert.Equal(t, 5, cfg.Resolver.MaxDepth)
	assert.Equal(t, "system", cfg.Resolver.TrustStore)
	assert.Empty(t, cfg.Resolver.ProxyTemplate)
	assert.True(t, cfg.LooseDNFallback(), "fallback defaults to enabled")
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "bundler.yaml", `
defaults:
  warnDays: 14
  timeoutSeconds: 5
resolver:
  maxDepth: 3
  proxyTemplate: "https://relay.test/fetch?url=%s"
  looseDnFallback: false
  trustStore: mozilla
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Defaults.WarnDays)
	assert.Equal(t, 5, cfg.Defaults.Timeout)
	assert.Equal(t, 3, cfg.Resolver.MaxDepth)
	assert.Equal(t, "https://relay.test/fetch?url=%s", cfg.Resolver.ProxyTemplate)
	assert.Equal(t, "mozilla", cfg.Resolver.TrustStore)
	assert.False(t, cfg.LooseDNFallback())
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "bundler.json", `{
  "defaults": {"warnDays": 7},
  "resolver": {"maxDepth": 2, "looseDnFallback": true}
}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Defaults.WarnDays)
	assert.Equal(t, 30, cfg.Defaults.Timeout, "unset values keep defaults")
	assert.Equal(t, 2, cfg.Resolver.MaxDepth)
	assert.True(t, cfg.LooseDNFallback())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	path := writeTemp(t, "bad.yaml", `
defaults:
  warnDays: -1
  timeoutSeconds: 0
resolver:
  maxDepth: -3
  trustStore: ""
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Defaults.WarnDays)
	assert.Equal(t, 30, cfg.Defaults.Timeout)
	assert.Equal(t, 5, cfg.Resolver.MaxDepth)
	assert.Equal(t, "system", cfg.Resolver.TrustStore)
}

func TestLoadFromEnvVar(t *testing.T) {
	path := writeTemp(t, "env.yml", "defaults:\n  warnDays: 60\n")
	t.Setenv(config.EnvConfigFile, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Defaults.WarnDays)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "absent.yaml")},
		{"malformed YAML", writeTemp(t, "malformed.yaml", "defaults: [not a map")},
		{"malformed JSON", writeTemp(t, "malformed.json", "{not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(tt.path)
			assert.Error(t, err)
		})
	}
}
