// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	x509certs "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/certs"
)

// Status tracks the lifecycle of a single chain link.
//
// Fetched links move pending -> downloading -> success or failed.
// Manually supplied links enter directly in the uploaded terminal state.
// There is no transition back to pending.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusUploaded    Status = "uploaded"
)

// statusTransitions enumerates the legal moves of the link state machine.
var statusTransitions = map[Status][]Status{
	StatusPending:     {StatusDownloading},
	StatusDownloading: {StatusSuccess, StatusFailed},
}

// Source records how a link entered the chain.
type Source string

const (
	SourceUploaded Source = "uploaded"
	SourceFetched  Source = "fetched"
	SourceRoot     Source = "root"
)

var (
	// ErrLinkIndex indicates a link index outside the chain bounds.
	ErrLinkIndex = errors.New("x509chain: link index out of range")

	// ErrBadStatusTransition indicates an illegal link status transition.
	ErrBadStatusTransition = errors.New("x509chain: illegal status transition")
)

// Link is one entry in an assembled chain. A broken link (SignsChild false)
// stays visible in the chain rather than being discarded, so callers can show
// where trust breaks. Record is nil only while a fetched link is in flight or
// after its download failed.
type Link struct {
	ID         string
	Record     *x509certs.Record
	Status     Status
	Source     Source
	IsRoot     bool
	SignsChild bool

	// LooseMatch marks a SignsChild that came from the DN-equality fallback
	// rather than a cryptographic pass. Materially weaker evidence; surfaced
	// for auditability.
	LooseMatch bool
}

// SetStatus moves the link through its state machine, rejecting transitions
// the machine does not allow (uploaded, success, and failed are terminal).
func (l *Link) SetStatus(next Status) error {
	for _, allowed := range statusTransitions[l.Status] {
		if allowed == next {
			l.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadStatusTransition, l.Status, next)
}

// Fingerprint returns the link's certificate fingerprint, or "" while no
// record is attached.
func (l *Link) Fingerprint() string {
	if l.Record == nil {
		return ""
	}
	return l.Record.Fingerprint
}

// Policy controls how link verification and automatic resolution behave.
type Policy struct {
	// LooseDNFallback enables the DN-equality fallback when the signature
	// verification primitive cannot evaluate a link (unsupported or legacy
	// algorithm). Equal issuer/subject distinguished names are then treated
	// as a match. This is a deliberate weakening for a packaging tool that
	// is not a relying party; disable it to require cryptographic passes.
	LooseDNFallback bool

	// MaxDepth bounds the number of links automatic resolution may add.
	MaxDepth int

	// ProxyTemplate is a fmt template with one %s verb for the escaped
	// target URL. When set, failed direct fetches are retried once through
	// it. Empty disables the proxy fallback.
	ProxyTemplate string
}

// DefaultPolicy returns the resolver defaults: loose fallback on, five
// fetch hops, no proxy.
func DefaultPolicy() Policy {
	return Policy{
		LooseDNFallback: true,
		MaxDepth:        5,
	}
}

// HTTPConfig holds HTTP client configuration for certificate operations
type HTTPConfig struct {
	Timeout   time.Duration // HTTP request timeout
	Version   string        // Application version for User-Agent
	UserAgent string        // Custom User-Agent string, if empty will be constructed from Version

	mu     sync.Mutex
	client *http.Client
}

// NewHTTPConfig creates a new HTTP configuration with default values.
//
// It initializes the configuration with a default timeout of 10 seconds
// and the provided application version.
func NewHTTPConfig(version string) *HTTPConfig {
	return &HTTPConfig{
		Timeout:   10 * time.Second,
		Version:   version,
		UserAgent: "",
	}
}

// GetUserAgent returns the User-Agent string, constructing it if not set.
func (c *HTTPConfig) GetUserAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return fmt.Sprintf("TLS-Certificate-Bundler/%s (+https://github.com/H0llyW00dzZ/tls-cert-bundler)", c.Version)
}

// Client returns an HTTP client configured with the current timeout.
//
// It creates or reuses an http.Client, ensuring it uses the configured timeout.
//
// Thread Safety: Safe for concurrent use.
func (c *HTTPConfig) Client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		c.client = &http.Client{Timeout: c.Timeout}
		return c.client
	}

	if c.client.Timeout != c.Timeout {
		c.client.Timeout = c.Timeout
	}

	return c.client
}

// Chain manages an ordered issuer path for one leaf certificate. The leaf is
// tracked separately from the links; link order is trust order, closest
// issuer first and root last.
//
// Invariants: no two links share a fingerprint, and the leaf's fingerprint
// never appears among the links.
type Chain struct {
	mu    sync.RWMutex
	Leaf  *x509certs.Record
	Links []*Link
	*x509certs.Certificate
	Policy     Policy
	HTTPConfig *HTTPConfig

	// Diagnostics collects non-fatal notes from resolution and verification,
	// such as dropped bundle blocks and loose DN-fallback matches.
	Diagnostics []string
}

// New creates a new Chain for the given leaf certificate.
func New(leaf *x509.Certificate, version string) *Chain {
	decoder := x509certs.New()
	return &Chain{
		Leaf:        decoder.NewRecord(leaf),
		Certificate: decoder,
		Policy:      DefaultPolicy(),
		HTTPConfig:  NewHTTPConfig(version),
	}
}

// VerifyLink checks that parent's public key validates child's signature.
//
// When the verification primitive itself cannot evaluate the pair (legacy or
// unsupported signature scheme) and the loose policy is enabled, equality of
// the normalized issuer/subject distinguished names is accepted as a match.
// A mismatch from a primitive that did run is always false, never an error.
func (ch *Chain) VerifyLink(child, parent *x509.Certificate) bool {
	ok, _ := ch.verifyLink(child, parent)
	return ok
}

// verifyLink reports the link verdict and whether it came from the loose
// DN-equality fallback.
func (ch *Chain) verifyLink(child, parent *x509.Certificate) (ok, loose bool) {
	return VerifyPair(ch.Policy, child, parent)
}

// VerifyPair checks one parent/child signing relationship under the given
// policy, reporting the verdict and whether it came from the DN-equality
// fallback. It backs Chain.VerifyLink and the archive validation report's
// pairwise checks.
func VerifyPair(policy Policy, child, parent *x509.Certificate) (ok, loose bool) {
	err := child.CheckSignatureFrom(parent)
	if err == nil {
		return true, false
	}

	if !policy.LooseDNFallback || !primitiveCannotEvaluate(err) {
		return false, false
	}

	if normalizeDN(child.Issuer) == normalizeDN(parent.Subject) {
		return true, true
	}
	return false, false
}

// IsSelfSigned checks if a certificate is self-signed.
//
// Definitionally equivalent to VerifyLink(cert, cert).
func (ch *Chain) IsSelfSigned(cert *x509.Certificate) bool {
	return ch.VerifyLink(cert, cert)
}

// IsRootNode determines if a certificate is a root node in the chain.
func (ch *Chain) IsRootNode(cert *x509.Certificate) bool {
	return ch.IsSelfSigned(cert)
}

// primitiveCannotEvaluate distinguishes "the primitive could not run" from a
// plain verification mismatch. Only the former may use the loose fallback.
func primitiveCannotEvaluate(err error) bool {
	if errors.Is(err, x509.ErrUnsupportedAlgorithm) {
		return true
	}
	var insecure x509.InsecureAlgorithmError
	return errors.As(err, &insecure)
}

// normalizeDN renders a distinguished name as its sorted attribute list so
// two encodings of the same DN compare equal regardless of attribute order.
func normalizeDN(name pkix.Name) string {
	attrs := make([]string, 0, len(name.Names))
	for _, atv := range name.Names {
		attrs = append(attrs, fmt.Sprintf("%s=%v", atv.Type.String(), atv.Value))
	}
	sort.Strings(attrs)
	return strings.Join(attrs, ",")
}

// TailCertificate returns the certificate at the current end of the chain:
// the last link carrying a record, or the leaf when no such link exists.
func (ch *Chain) TailCertificate() *x509.Certificate {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.tailCertificateLocked()
}

func (ch *Chain) tailCertificateLocked() *x509.Certificate {
	for i := len(ch.Links) - 1; i >= 0; i-- {
		if ch.Links[i].Record != nil {
			return ch.Links[i].Record.Certificate()
		}
	}
	return ch.Leaf.Certificate()
}

// Complete reports whether the chain ends in a self-signed root.
func (ch *Chain) Complete() bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	if len(ch.Links) == 0 {
		return false
	}
	return ch.Links[len(ch.Links)-1].IsRoot
}

// ContainsFingerprint reports whether the fingerprint belongs to the leaf or
// any existing link.
func (ch *Chain) ContainsFingerprint(fp string) bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.containsFingerprintLocked(fp)
}

func (ch *Chain) containsFingerprintLocked(fp string) bool {
	if fp == "" {
		return false
	}
	if ch.Leaf.Fingerprint == fp {
		return true
	}
	for _, link := range ch.Links {
		if link.Fingerprint() == fp {
			return true
		}
	}
	return false
}

// RemoveLink removes one link by index. Neighboring SignsChild flags are not
// recomputed; the caller is expected to re-add correct links.
func (ch *Chain) RemoveLink(index int) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if index < 0 || index >= len(ch.Links) {
		return fmt.Errorf("%w: %d", ErrLinkIndex, index)
	}
	ch.Links = append(ch.Links[:index], ch.Links[index+1:]...)
	return nil
}

// Certificates returns the full certificate path, leaf first, skipping links
// without records.
func (ch *Chain) Certificates() []*x509.Certificate {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	certs := make([]*x509.Certificate, 0, len(ch.Links)+1)
	certs = append(certs, ch.Leaf.Certificate())
	for _, link := range ch.Links {
		if link.Record != nil {
			certs = append(certs, link.Record.Certificate())
		}
	}
	return certs
}

// CABundlePEM returns the newline-joined PEM concatenation of every link in
// trust order, root last, for use as a CA bundle archive entry.
func (ch *Chain) CABundlePEM() []byte {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	var parts []string
	for _, link := range ch.Links {
		if link.Record != nil {
			parts = append(parts, strings.TrimRight(link.Record.PEM, "\n"))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []byte(strings.Join(parts, "\n") + "\n")
}

// note records a diagnostic line.
func (ch *Chain) note(format string, v ...any) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.noteLocked(format, v...)
}

// noteLocked records a diagnostic line. Caller holds ch.mu.
func (ch *Chain) noteLocked(format string, v ...any) {
	ch.Diagnostics = append(ch.Diagnostics, fmt.Sprintf(format, v...))
}
