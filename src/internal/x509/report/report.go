// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package report

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/archive"
	x509certs "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/certs"
	x509chain "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/chain"
)

// Validity classifies the certificate's position in its validity interval.
type Validity string

const (
	ValidityValid    Validity = "valid"
	ValidityExpiring Validity = "expiring"
	ValidityExpired  Validity = "expired"
	ValidityUnknown  Validity = "unknown"
)

// Role suffixes recognized when scanning unpacked entries. The bundler
// writes {basename}.crt/.prv/.ca; the alternates cover bundles produced by
// other tools.
var (
	certSuffixes   = []string{".crt", ".cer", ".pem"}
	keySuffixes    = []string{".prv", ".key"}
	bundleSuffixes = []string{".ca", ".bundle"}
)

// Options configures report generation.
type Options struct {
	// WarnDays is the expiry warning window in days.
	WarnDays int

	// Policy is the link verification policy applied to pairwise bundle checks.
	Policy x509chain.Policy
}

// DefaultOptions returns a 30-day warning window and the resolver's default
// verification policy.
func DefaultOptions() Options {
	return Options{
		WarnDays: 30,
		Policy:   x509chain.DefaultPolicy(),
	}
}

// Report is the read-only summary of one archive validation run: which roles
// were present, whether the private key matches the certificate (nil when
// undecidable), whether the CA bundle forms a complete chain (nil when no
// bundle entry exists), the expiry classification, and ordered findings.
// A Report is created fresh per run and never mutated afterward.
type Report struct {
	HasCertificate bool     `json:"hasCertificate"`
	HasPrivateKey  bool     `json:"hasPrivateKey"`
	HasCABundle    bool     `json:"hasCaBundle"`
	KeyMatch       *bool    `json:"keyMatch"`
	ChainComplete  *bool    `json:"chainComplete"`
	Validity       Validity `json:"validity"`
	Findings       []string `json:"findings"`
}

// FromArchive derives a validation report from unpacked archive entries by
// scanning them for certificate, private key, and CA bundle roles and
// applying the resolver's pairwise link checks.
func FromArchive(entries []archive.Entry, opts Options) *Report {
	r := &Report{Validity: ValidityUnknown}
	decoder := x509certs.New()

	certEntry := findRole(entries, certSuffixes)
	keyEntry := findRole(entries, keySuffixes)
	bundleEntry := findRole(entries, bundleSuffixes)

	r.HasCertificate = certEntry != nil
	r.HasPrivateKey = keyEntry != nil
	r.HasCABundle = bundleEntry != nil

	var cert *x509.Certificate
	if certEntry != nil {
		var err error
		cert, err = decoder.Decode(certEntry.Content)
		if err != nil {
			r.addFinding("certificate entry %s does not parse", certEntry.Name)
		} else {
			r.classifyValidity(cert, opts.WarnDays)
		}
	} else {
		r.addFinding("no certificate entry found")
	}

	r.checkKey(decoder, keyEntry, cert)
	r.checkBundle(decoder, bundleEntry, cert, opts.Policy)

	return r
}

// classifyValidity records the expiry classification and related findings.
func (r *Report) classifyValidity(cert *x509.Certificate, warnDays int) {
	now := time.Now()
	switch {
	case now.After(cert.NotAfter):
		r.Validity = ValidityExpired
		r.addFinding("certificate %q expired on %s", cert.Subject.CommonName, cert.NotAfter.UTC().Format("2006-01-02"))
	case now.Add(time.Duration(warnDays) * 24 * time.Hour).After(cert.NotAfter):
		r.Validity = ValidityExpiring
		r.addFinding("certificate %q expires within %d days (not after: %s)", cert.Subject.CommonName, warnDays, cert.NotAfter.UTC().Format("2006-01-02"))
	default:
		r.Validity = ValidityValid
	}
}

// checkKey resolves the tri-state key match. It stays nil when either side
// is missing, unparseable, or not RSA.
func (r *Report) checkKey(decoder *x509certs.Certificate, keyEntry *archive.Entry, cert *x509.Certificate) {
	if keyEntry == nil {
		r.addFinding("no private key entry found")
		return
	}
	if cert == nil {
		return
	}

	key, err := x509certs.DecodePrivateKey(keyEntry.Content)
	if err != nil {
		r.addFinding("private key entry %s does not parse", keyEntry.Name)
		return
	}

	r.KeyMatch = x509certs.KeyMatchesCertificate(key, cert)
	switch {
	case r.KeyMatch == nil:
		r.addFinding("key match undecidable: modulus comparison is defined for RSA only")
	case !*r.KeyMatch:
		r.addFinding("private key does not match the certificate")
	}
}

// checkBundle applies pairwise link checks across the CA bundle. Chain
// completeness stays nil when no bundle entry is present.
func (r *Report) checkBundle(decoder *x509certs.Certificate, bundleEntry *archive.Entry, cert *x509.Certificate, policy x509chain.Policy) {
	if bundleEntry == nil {
		r.addFinding("no CA bundle entry found")
		return
	}

	var bundle []*x509.Certificate
	for _, block := range decoder.SplitBundle(bundleEntry.Content) {
		c, err := decoder.Decode(block)
		if err != nil {
			r.addFinding("dropped unparseable block in CA bundle %s", bundleEntry.Name)
			continue
		}
		bundle = append(bundle, c)
	}

	if len(bundle) == 0 {
		r.addFinding("CA bundle entry %s contains no certificates", bundleEntry.Name)
		complete := false
		r.ChainComplete = &complete
		return
	}

	complete := true

	child := cert
	for i, parent := range bundle {
		if child == nil {
			child = parent
			continue
		}
		ok, loose := x509chain.VerifyPair(policy, child, parent)
		if !ok {
			complete = false
			r.addFinding("broken link: %q does not sign %q", parent.Subject.CommonName, child.Subject.CommonName)
		} else if loose {
			r.addFinding("link %d accepted via DN-equality fallback", i+1)
		}
		child = parent
	}

	last := bundle[len(bundle)-1]
	if ok, _ := x509chain.VerifyPair(policy, last, last); !ok {
		complete = false
		r.addFinding("CA bundle does not end in a self-signed root")
	}

	r.ChainComplete = &complete
}

// addFinding appends one ordered human-readable finding.
func (r *Report) addFinding(format string, v ...any) {
	r.Findings = append(r.Findings, fmt.Sprintf(format, v...))
}

// findRole returns the first entry whose name carries one of the suffixes.
func findRole(entries []archive.Entry, suffixes []string) *archive.Entry {
	for i := range entries {
		lower := strings.ToLower(entries[i].Name)
		for _, suffix := range suffixes {
			if strings.HasSuffix(lower, suffix) {
				return &entries[i]
			}
		}
	}
	return nil
}
