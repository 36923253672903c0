// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"
	"time"
)

// certFileSuffixes are the path suffixes recognized as direct certificate
// downloads when selecting an issuer URL from the AIA extension.
var certFileSuffixes = []string{".crt", ".cer", ".der", ".pem"}

// Record is the parsed, immutable representation of one certificate used by
// the chain resolver: display attributes, validity interval, the canonical
// PEM encoding, the AIA issuer download URL (when one is advertised), and a
// SHA-1 fingerprint of the DER encoding used for identity and deduplication.
type Record struct {
	CommonName   string
	Organization string
	IssuerName   string
	NotBefore    time.Time
	NotAfter     time.Time
	SerialNumber string
	PEM          string
	IssuerURL    string
	Fingerprint  string

	cert *x509.Certificate
}

// NewRecord builds a Record from a parsed certificate.
func (c *Certificate) NewRecord(cert *x509.Certificate) *Record {
	return &Record{
		CommonName:   cert.Subject.CommonName,
		Organization: strings.Join(cert.Subject.Organization, ", "),
		IssuerName:   cert.Issuer.CommonName,
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		SerialNumber: cert.SerialNumber.String(),
		PEM:          string(c.EncodePEM(cert)),
		IssuerURL:    IssuerFetchURL(cert),
		Fingerprint:  Fingerprint(cert),
		cert:         cert,
	}
}

// Certificate returns the underlying parsed certificate.
func (r *Record) Certificate() *x509.Certificate { return r.cert }

// Expired reports whether the certificate's validity interval has passed.
func (r *Record) Expired() bool { return time.Now().After(r.NotAfter) }

// Fingerprint returns the lowercase hex SHA-1 digest of the certificate's
// DER encoding. SHA-1 is an identity and dedup key here, not a security
// boundary; it matches what browser UIs and legacy tools display.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// FingerprintSHA256 returns the lowercase hex SHA-256 digest of the
// certificate's DER encoding, used for display alongside the SHA-1 identity.
func FingerprintSHA256(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// IssuerFetchURL selects the issuer certificate download URL from the AIA
// (Authority Information Access) extension: the first CA Issuers URL whose
// path ends in a recognized certificate-file suffix. Returns "" when the
// extension is absent or no URL looks like a certificate download.
func IssuerFetchURL(cert *x509.Certificate) string {
	for _, u := range cert.IssuingCertificateURL {
		lower := strings.ToLower(u)
		for _, suffix := range certFileSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return u
			}
		}
	}
	return ""
}
