// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"errors"

	x509certs "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/certs"
)

var (
	// ErrNoCertificatesFound indicates that no block of the supplied bundle
	// parsed as a certificate.
	ErrNoCertificatesFound = errors.New("x509chain: no certificates found in input")

	// ErrNoNewCertificates indicates that every parsed certificate was
	// already present in the chain or duplicated within the batch.
	ErrNoNewCertificates = errors.New("x509chain: no new certificates in input")
)

// ExtendResult summarizes one manual extension batch.
type ExtendResult struct {
	Added         []*Link // links appended to the chain, in chain order
	ParseFailures int     // bundle blocks dropped because they did not parse
	Duplicates    int     // candidates dropped by fingerprint deduplication
}

// ExtendManual ingests a pasted or uploaded bundle of candidate issuer
// certificates and grows the chain with them.
//
// Blocks that fail to parse are dropped, not fatal. Candidates already in
// the chain (or equal to the leaf, or repeated within the batch) are dropped
// as duplicates. The survivors are consumed greedily: whichever candidate
// signs the current tail is appended with SignsChild true and becomes the
// new tail, repeatedly, until nothing in the pool signs the tail. Leftovers
// are then appended in their original order anyway, each with SignsChild
// computed against the then-current tail, so out-of-order or unrelated
// uploads surface as visible broken links instead of being rejected.
//
// Terminal no-op outcomes are distinguished: ErrNoCertificatesFound when
// nothing parsed, ErrNoNewCertificates when everything parsed but nothing
// survived deduplication.
func (ch *Chain) ExtendManual(bundle []byte) (*ExtendResult, error) {
	result := &ExtendResult{}

	candidates := ch.parseCandidates(bundle, result)
	if len(candidates) == 0 {
		return result, ErrNoCertificatesFound
	}

	pool := ch.deduplicate(candidates, result)
	if len(pool) == 0 {
		return result, ErrNoNewCertificates
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	// Greedy growth: consume whichever candidate signs the current tail.
	tail := ch.tailCertificateLocked()
	for len(pool) > 0 {
		matched, matchedLoose := -1, false
		for i, cand := range pool {
			if ok, loose := ch.verifyLink(tail, cand); ok {
				matched, matchedLoose = i, loose
				break
			}
		}
		if matched < 0 {
			break
		}

		cand := pool[matched]
		pool = append(pool[:matched], pool[matched+1:]...)

		result.Added = append(result.Added, ch.appendUploadedLocked(cand, true, matchedLoose))
		tail = cand
	}

	// Leftovers keep their original order; each records its true relation to
	// the then-current tail, surfacing broken links.
	for _, cand := range pool {
		signs, loose := ch.verifyLink(tail, cand)
		result.Added = append(result.Added, ch.appendUploadedLocked(cand, signs, loose))
		tail = cand
	}

	return result, nil
}

// parseCandidates splits the bundle into PEM blocks and parses each one,
// falling back to whole-input decoding for single DER or bare base64
// uploads. Unparseable blocks are counted and dropped.
func (ch *Chain) parseCandidates(bundle []byte, result *ExtendResult) []*x509.Certificate {
	blocks := ch.Certificate.SplitBundle(bundle)
	if len(blocks) == 0 {
		cert, err := ch.Certificate.Decode(bundle)
		if err != nil {
			result.ParseFailures++
			ch.note("input did not parse as a certificate")
			return nil
		}
		return []*x509.Certificate{cert}
	}

	var candidates []*x509.Certificate
	for i, block := range blocks {
		cert, err := ch.Certificate.Decode(block)
		if err != nil {
			result.ParseFailures++
			ch.note("dropped unparseable bundle block %d", i+1)
			continue
		}
		candidates = append(candidates, cert)
	}
	return candidates
}

// deduplicate drops candidates whose fingerprint equals the leaf's, any
// existing link's, or an earlier candidate's in the same batch.
func (ch *Chain) deduplicate(candidates []*x509.Certificate, result *ExtendResult) []*x509.Certificate {
	seen := make(map[string]bool, len(candidates))

	var pool []*x509.Certificate
	for _, cand := range candidates {
		fp := x509certs.Fingerprint(cand)
		if seen[fp] || ch.ContainsFingerprint(fp) {
			result.Duplicates++
			continue
		}
		seen[fp] = true
		pool = append(pool, cand)
	}
	return pool
}

// appendUploadedLocked appends a manually supplied certificate as a link in
// the uploaded terminal state. Caller holds ch.mu.
func (ch *Chain) appendUploadedLocked(cert *x509.Certificate, signsChild, loose bool) *Link {
	record := ch.Certificate.NewRecord(cert)
	link := &Link{
		ID:         record.Fingerprint,
		Record:     record,
		Status:     StatusUploaded,
		Source:     SourceUploaded,
		IsRoot:     ch.IsSelfSigned(cert),
		SignsChild: signsChild,
		LooseMatch: loose,
	}
	if link.IsRoot {
		link.Source = SourceRoot
	}
	ch.Links = append(ch.Links, link)

	if loose && signsChild {
		ch.noteLocked("link %s accepted via DN-equality fallback, not a cryptographic pass", record.CommonName)
	}
	return link
}
