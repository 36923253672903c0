// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/certs"
)

// ResolveAutomatic builds the issuer path by iteratively following the AIA
// extension of the current chain tail, up to Policy.MaxDepth links.
//
// Each hop appends a link whose SignsChild records whether the fetched
// certificate verifies the previous tail. Resolution stops when a fetched
// certificate is self-signed, when the depth bound is hit, when a fetched
// certificate is byte-identical to the tail (issuance cycle), or when a
// fetch or parse fails. Whatever was resolved before the stopping condition
// is kept; a non-nil error means only that this resolution attempt ended
// early and the caller should continue with manual chain building.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) ResolveAutomatic(ctx context.Context) error {
	for range ch.Policy.MaxDepth {
		tail := ch.TailCertificate()

		fetchURL := x509certs.IssuerFetchURL(tail)
		if fetchURL == "" {
			break // no AIA pointer, nothing left to follow
		}

		link := &Link{ID: fetchURL, Status: StatusPending, Source: SourceFetched}
		ch.mu.Lock()
		ch.Links = append(ch.Links, link)
		ch.mu.Unlock()

		if err := link.SetStatus(StatusDownloading); err != nil {
			return err
		}

		data, err := ch.fetchIssuer(ctx, fetchURL)
		if err != nil {
			_ = link.SetStatus(StatusFailed)
			return fmt.Errorf("x509chain: fetching issuer from %s: %w", fetchURL, err)
		}

		cert, err := ch.Certificate.Decode(data)
		if err != nil {
			_ = link.SetStatus(StatusFailed)
			return fmt.Errorf("x509chain: decoding issuer from %s: %w", fetchURL, err)
		}

		if bytes.Equal(cert.Raw, tail.Raw) {
			// Issuance cycle: the CA points back at the certificate we
			// already hold. Drop the in-flight link and stop.
			ch.removeInFlight(link)
			ch.note("cycle detected at %s, stopping resolution", fetchURL)
			break
		}

		signs, loose := ch.verifyLink(tail, cert)
		record := ch.Certificate.NewRecord(cert)

		ch.mu.Lock()
		if ch.containsFingerprintLocked(record.Fingerprint) {
			// Already present under another URL; discard the duplicate.
			ch.mu.Unlock()
			ch.removeInFlight(link)
			ch.note("duplicate issuer %s from %s, stopping resolution", record.CommonName, fetchURL)
			break
		}
		link.ID = record.Fingerprint
		link.Record = record
		link.IsRoot = ch.IsSelfSigned(cert)
		link.SignsChild = signs
		link.LooseMatch = loose
		if link.IsRoot {
			link.Source = SourceRoot
		}
		ch.mu.Unlock()

		if err := link.SetStatus(StatusSuccess); err != nil {
			return err
		}

		if loose {
			ch.note("link %s accepted via DN-equality fallback, not a cryptographic pass", record.CommonName)
		}

		if link.IsRoot {
			break
		}
	}

	return nil
}

// fetchIssuer downloads raw issuer certificate bytes, consulting the LRU
// cache first. A failed direct fetch is retried once through the configured
// proxy template before the error is reported. Response bodies are released
// on every path.
func (ch *Chain) fetchIssuer(ctx context.Context, fetchURL string) ([]byte, error) {
	if data, ok := GetCachedIssuer(fetchURL); ok {
		return data, nil
	}

	data, directErr := ch.fetchOnce(ctx, fetchURL)
	if directErr == nil {
		ch.cacheIssuer(fetchURL, data)
		return data, nil
	}

	if ch.Policy.ProxyTemplate == "" {
		return nil, directErr
	}

	proxied := fmt.Sprintf(ch.Policy.ProxyTemplate, url.QueryEscape(fetchURL))
	data, proxyErr := ch.fetchOnce(ctx, proxied)
	if proxyErr != nil {
		return nil, fmt.Errorf("direct fetch failed (%v), proxy fetch failed: %w", directErr, proxyErr)
	}
	ch.cacheIssuer(fetchURL, data)
	return data, nil
}

// cacheIssuer stores fetched bytes under the original AIA URL, proxied or
// not, so repeat runs for the same CA skip the network. Expiry follows the
// fetched certificate when it parses.
func (ch *Chain) cacheIssuer(fetchURL string, data []byte) {
	if cert, err := ch.Certificate.Decode(data); err == nil {
		SetCachedIssuer(fetchURL, data, cert.NotAfter)
	}
}

// fetchOnce performs a single HTTP GET using the chain's client and buffer
// pool.
func (ch *Chain) fetchOnce(ctx context.Context, fetchURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}

	// Set the User-Agent header with version information and GitHub link
	req.Header.Set("User-Agent", ch.HTTPConfig.GetUserAgent())

	resp, err := ch.HTTPConfig.Client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Get a buffer from the pool
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

// removeInFlight drops a link that never received a record.
func (ch *Chain) removeInFlight(link *Link) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for i, l := range ch.Links {
		if l == link {
			ch.Links = append(ch.Links[:i], ch.Links[i+1:]...)
			return
		}
	}
}
