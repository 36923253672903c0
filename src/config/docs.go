// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads bundler settings from a JSON or YAML file, with
// defaults applied for anything the file leaves out. The file path comes
// from the caller or the TLS_CERT_BUNDLER_CONFIG_FILE environment variable.
package config
