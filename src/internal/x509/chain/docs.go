// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509chain implements [X.509] certificate chain assembly and link verification.
// It provides capabilities to:
//   - Resolve incomplete chains automatically by following AIA issuer URLs, with
//     cycle detection, a bounded fetch depth, and an LRU cache of issuer downloads.
//   - Extend chains manually from pasted or uploaded certificate bundles, keeping
//     broken links visible instead of rejecting out-of-order material.
//   - Verify parent/child signing relationships, with an optional DN-equality
//     fallback for signature schemes the verification primitive cannot evaluate.
//   - Complete chains against the system trust store or the embedded Mozilla roots.
//   - Render chains as ASCII trees, markdown tables, or structured JSON.
//
// The package handles context-aware cancellation and HTTP client configuration
// for reliable network operations.
//
// [X.509]: https://grokipedia.com/page/X.509
package x509chain
