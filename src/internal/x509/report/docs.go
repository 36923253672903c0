// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package report validates unpacked certificate archives. It scans entries
// for the three bundle roles (certificate, private key, CA bundle) by file
// suffix, then checks key/certificate correspondence and the signing
// relationships inside the CA bundle, producing a summary with tri-state
// answers where a question cannot be decided from the material at hand.
package report
