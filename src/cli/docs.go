// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interface for the TLS certificate bundler.
// It implements a Cobra-based CLI with two subcommands: bundle, which resolves a
// leaf certificate's issuer chain and packs the certificate, private key, and CA
// bundle into a portable archive; and validate, which unpacks such an archive and
// reports on role presence, key correspondence, chain completeness, and expiry.
// The package handles file I/O, context cancellation, and integrates with the
// logger package for output and error reporting.
package cli
