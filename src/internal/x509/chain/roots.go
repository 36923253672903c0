// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/breml/rootcerts/embedded"
)

// Trust store selectors for CompleteWithRoot.
const (
	TrustStoreSystem  = "system"
	TrustStoreMozilla = "mozilla"
)

var (
	// ErrUnknownTrustStore indicates an unrecognized trust store selector.
	ErrUnknownTrustStore = errors.New("x509chain: unknown trust store")

	// ErrMozillaRoots indicates the embedded Mozilla root bundle failed to parse.
	ErrMozillaRoots = errors.New("x509chain: parsing embedded Mozilla root certificates")
)

// CompleteWithRoot appends the trust anchor for the current chain tail from
// the selected trust store when the chain does not already end in a
// self-signed root. An unknown-authority outcome is not an error; the chain
// simply stays incomplete.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) CompleteWithRoot(store string) error {
	if ch.Complete() {
		return nil
	}

	roots, err := trustPool(store)
	if err != nil {
		return err
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	tail := ch.tailCertificateLocked()

	chains, err := tail.Verify(x509.VerifyOptions{Roots: roots})
	if err != nil {
		if _, ok := err.(x509.UnknownAuthorityError); ok {
			return nil
		}
		return err
	}

	for _, cert := range chains[0] {
		if tail.Equal(cert) {
			continue
		}
		record := ch.Certificate.NewRecord(cert)
		if ch.containsFingerprintLocked(record.Fingerprint) {
			continue
		}
		signs, loose := ch.verifyLink(tail, cert)
		ch.Links = append(ch.Links, &Link{
			ID:         record.Fingerprint,
			Record:     record,
			Status:     StatusUploaded,
			Source:     SourceRoot,
			IsRoot:     ch.IsSelfSigned(cert),
			SignsChild: signs,
			LooseMatch: loose,
		})
		tail = cert
	}

	return nil
}

// trustPool builds the root pool for the given selector.
func trustPool(store string) (*x509.CertPool, error) {
	switch store {
	case TrustStoreSystem:
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("x509chain: loading system cert pool: %w", err)
		}
		return pool, nil
	case TrustStoreMozilla:
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(embedded.MozillaCACertificatesPEM())) {
			return nil, ErrMozillaRoots
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrustStore, store)
	}
}
