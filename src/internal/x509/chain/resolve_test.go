// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	x509chain "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuerServer serves DER certificate bodies for AIA fetches. Handlers can be
// registered after the PKI is generated, so certificates can embed the
// server's URL before the content exists.
func issuerServer(t *testing.T) (*httptest.Server, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mux
}

func serveDER(mux *http.ServeMux, path string, der func() []byte) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pkix-cert")
		_, _ = w.Write(der())
	})
}

func resolveCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestResolveAutomatic(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	root, inter, leaf := threeTier(t,
		[]string{srv.URL + "/inter.crt"},
		[]string{srv.URL + "/root.crt"},
	)
	serveDER(mux, "/inter.crt", func() []byte { return inter.cert.Raw })
	serveDER(mux, "/root.crt", func() []byte { return root.cert.Raw })

	ch := x509chain.New(leaf.cert, version)
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))

	require.Len(t, ch.Links, 2)
	assert.True(t, ch.Complete())

	interLink, rootLink := ch.Links[0], ch.Links[1]

	assert.Equal(t, "Test Intermediate CA", interLink.Record.CommonName)
	assert.Equal(t, x509chain.StatusSuccess, interLink.Status)
	assert.Equal(t, x509chain.SourceFetched, interLink.Source)
	assert.True(t, interLink.SignsChild)
	assert.False(t, interLink.IsRoot)
	assert.False(t, interLink.LooseMatch)
	assert.Equal(t, interLink.Record.Fingerprint, interLink.ID)

	assert.Equal(t, "Test Root CA", rootLink.Record.CommonName)
	assert.Equal(t, x509chain.StatusSuccess, rootLink.Status)
	assert.Equal(t, x509chain.SourceRoot, rootLink.Source)
	assert.True(t, rootLink.SignsChild)
	assert.True(t, rootLink.IsRoot)
}

func TestResolveAutomatic_NoAIA(t *testing.T) {
	x509chain.ClearIssuerCache()
	_, _, leaf := threeTier(t, nil, nil)

	ch := x509chain.New(leaf.cert, version)
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))
	assert.Empty(t, ch.Links, "nothing to follow without an AIA pointer")
}

func TestResolveAutomatic_FetchFailureKeepsPartialChain(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	_, inter, leaf := threeTier(t,
		[]string{srv.URL + "/inter.crt"},
		[]string{srv.URL + "/missing.crt"},
	)
	serveDER(mux, "/inter.crt", func() []byte { return inter.cert.Raw })
	// /missing.crt is unregistered; the mux answers 404.

	ch := x509chain.New(leaf.cert, version)
	err := ch.ResolveAutomatic(resolveCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.crt")

	// The intermediate survived; the failed hop stays visible without a record.
	require.Len(t, ch.Links, 2)
	assert.Equal(t, x509chain.StatusSuccess, ch.Links[0].Status)
	assert.Equal(t, x509chain.StatusFailed, ch.Links[1].Status)
	assert.Nil(t, ch.Links[1].Record)
	assert.Equal(t, srv.URL+"/missing.crt", ch.Links[1].ID)
	assert.False(t, ch.Complete())
}

func TestResolveAutomatic_ProxyFallback(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	// The direct AIA target points at a dead listener; only the proxy path
	// can serve the issuer.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	root, inter, leaf := threeTier(t,
		[]string{deadURL + "/inter.crt"},
		[]string{srv.URL + "/root.crt"},
	)
	serveDER(mux, "/root.crt", func() []byte { return root.cert.Raw })
	mux.HandleFunc("/proxy", func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("target")
		if target != deadURL+"/inter.crt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(inter.cert.Raw)
	})

	ch := x509chain.New(leaf.cert, version)
	ch.Policy.ProxyTemplate = srv.URL + "/proxy?target=%s"
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))

	require.Len(t, ch.Links, 2)
	assert.Equal(t, "Test Intermediate CA", ch.Links[0].Record.CommonName)
	assert.True(t, ch.Complete())
}

func TestResolveAutomatic_ProxyResultCachedUnderOriginURL(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	var proxyHits int
	root, inter, leaf := threeTier(t,
		[]string{deadURL + "/inter.crt"},
		[]string{srv.URL + "/root.crt"},
	)
	serveDER(mux, "/root.crt", func() []byte { return root.cert.Raw })
	mux.HandleFunc("/proxy", func(w http.ResponseWriter, r *http.Request) {
		proxyHits++
		_, _ = w.Write(inter.cert.Raw)
	})

	first := x509chain.New(leaf.cert, version)
	first.Policy.ProxyTemplate = srv.URL + "/proxy?target=%s"
	require.NoError(t, first.ResolveAutomatic(resolveCtx(t)))

	// The proxied body is cached under the AIA URL itself, so the next
	// resolution never touches the dead origin or the proxy again.
	second := x509chain.New(leaf.cert, version)
	second.Policy.ProxyTemplate = srv.URL + "/proxy?target=%s"
	require.NoError(t, second.ResolveAutomatic(resolveCtx(t)))

	assert.Equal(t, 1, proxyHits, "second resolution should come from the cache")
	require.Len(t, second.Links, 2)
	assert.True(t, second.Complete())
}

func TestResolveAutomatic_MaxDepth(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	_, inter, leaf := threeTier(t,
		[]string{srv.URL + "/inter.crt"},
		[]string{srv.URL + "/root.crt"},
	)
	serveDER(mux, "/inter.crt", func() []byte { return inter.cert.Raw })
	// /root.crt never registered; depth 1 stops before it matters.

	ch := x509chain.New(leaf.cert, version)
	ch.Policy.MaxDepth = 1
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))

	require.Len(t, ch.Links, 1)
	assert.Equal(t, "Test Intermediate CA", ch.Links[0].Record.CommonName)
	assert.False(t, ch.Complete())
}

func TestResolveAutomatic_CycleDetection(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	// The AIA pointer hands back the very certificate we started from.
	leaf := issue(t, "cycle.chain.test", true, nil, []string{srv.URL + "/self.crt"})
	serveDER(mux, "/self.crt", func() []byte { return leaf.cert.Raw })

	ch := x509chain.New(leaf.cert, version)
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))

	assert.Empty(t, ch.Links, "cycle hop must not survive as a link")
	require.NotEmpty(t, ch.Diagnostics)
	assert.Contains(t, ch.Diagnostics[0], "cycle")
}

func TestResolveAutomatic_DuplicateIssuerStops(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	// A and B point at each other: A's AIA serves B, B's AIA serves A again
	// under a different path. The second fetch of A is a non-tail duplicate.
	offline := issue(t, "Dup Offline Root", true, nil, nil)
	interA := issue(t, "Dup CA A", true, offline, []string{srv.URL + "/b.crt"})
	interB := issue(t, "Dup CA B", true, interA, []string{srv.URL + "/a-again.crt"})
	leaf := issue(t, "dup.chain.test", false, interA, []string{srv.URL + "/a.crt"})

	serveDER(mux, "/a.crt", func() []byte { return interA.cert.Raw })
	serveDER(mux, "/b.crt", func() []byte { return interB.cert.Raw })
	serveDER(mux, "/a-again.crt", func() []byte { return interA.cert.Raw })

	ch := x509chain.New(leaf.cert, version)
	require.NoError(t, ch.ResolveAutomatic(resolveCtx(t)))

	require.Len(t, ch.Links, 2, "duplicate fetch must be dropped")
	assert.Equal(t, "Dup CA A", ch.Links[0].Record.CommonName)
	assert.Equal(t, "Dup CA B", ch.Links[1].Record.CommonName)
	require.NotEmpty(t, ch.Diagnostics)
	assert.Contains(t, ch.Diagnostics[len(ch.Diagnostics)-1], "duplicate")
}

func TestResolveAutomatic_UsesIssuerCache(t *testing.T) {
	x509chain.ClearIssuerCache()
	srv, mux := issuerServer(t)

	var hits int
	root, inter, leaf := threeTier(t,
		[]string{srv.URL + "/inter.crt"},
		[]string{srv.URL + "/root.crt"},
	)
	mux.HandleFunc("/inter.crt", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(inter.cert.Raw)
	})
	serveDER(mux, "/root.crt", func() []byte { return root.cert.Raw })

	first := x509chain.New(leaf.cert, version)
	require.NoError(t, first.ResolveAutomatic(resolveCtx(t)))

	second := x509chain.New(leaf.cert, version)
	require.NoError(t, second.ResolveAutomatic(resolveCtx(t)))

	assert.Equal(t, 1, hits, "second resolution should come from the cache")
	assert.Len(t, second.Links, 2)
}
