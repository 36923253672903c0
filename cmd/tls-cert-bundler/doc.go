// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
// Use of this source code is governed by a BSD 3-Clause
// license that can be found in the LICENSE file.

// tls-cert-bundler is a command-line tool for building TLS certificate
// chains and packaging them into portable archives, and for validating
// archives produced elsewhere.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/tls-cert-bundler/cmd/tls-cert-bundler@latest
//
// # Usage
//
//	tls-cert-bundler bundle -f INPUT_CERT [FLAGS]
//	tls-cert-bundler validate -f ARCHIVE [FLAGS]
//
// # Bundle flags
//
//	-f, --file         Input leaf certificate (PEM, DER, or base64) [required]
//	-k, --key          Private key to include in the archive
//	-e, --extend       Extra certificate bundle merged into the chain
//	-o, --output       Output archive (default: input basename + .tar)
//	-s, --include-root Complete the chain with a trust store root
//	-t, --tree         Print the chain as an ASCII tree diagram
//	    --table        Print the chain as a markdown table
//	-j, --json         Print the chain as JSON
//
// # Validate flags
//
//	-f, --file       Archive file to validate [required]
//	    --warn-days  Expiry warning window in days
//	-j, --json       Print the report as JSON
//
// # Examples
//
// Resolve a leaf certificate and pack its chain with the private key:
//
//	tls-cert-bundler bundle -f cert.pem -k cert.key -o site.tar
//
// Merge an intermediate bundle supplied by the CA:
//
//	tls-cert-bundler bundle -f cert.pem -e intermediates.pem
//
// Validate an archive and render the report as JSON:
//
//	tls-cert-bundler validate -f site.tar --json
//
// Inspect the archive with standard tooling:
//
//	tar -tvf site.tar
package main
