// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain_test

import (
	"testing"

	x509chain "github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/x509/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteWithRoot_UnknownStore(t *testing.T) {
	_, _, leaf := threeTier(t, nil, nil)
	ch := x509chain.New(leaf.cert, version)

	err := ch.CompleteWithRoot("netscape")
	assert.ErrorIs(t, err, x509chain.ErrUnknownTrustStore)
}

func TestCompleteWithRoot_PrivateChainStaysIncomplete(t *testing.T) {
	// A freshly generated PKI is unknown to every public trust store; that is
	// not an error, the chain just stays incomplete.
	_, inter, leaf := threeTier(t, nil, nil)
	ch := x509chain.New(leaf.cert, version)

	_, err := ch.ExtendManual(ch.EncodePEM(inter.cert))
	require.NoError(t, err)

	require.NoError(t, ch.CompleteWithRoot(x509chain.TrustStoreMozilla))
	assert.Len(t, ch.Links, 1, "no trust anchor to add")
	assert.False(t, ch.Complete())
}

func TestCompleteWithRoot_AlreadyComplete(t *testing.T) {
	root, inter, leaf := threeTier(t, nil, nil)
	ch := x509chain.New(leaf.cert, version)

	bundle := append(ch.EncodePEM(inter.cert), ch.EncodePEM(root.cert)...)
	_, err := ch.ExtendManual(bundle)
	require.NoError(t, err)
	require.True(t, ch.Complete())

	require.NoError(t, ch.CompleteWithRoot(x509chain.TrustStoreMozilla))
	assert.Len(t, ch.Links, 2, "complete chains are left alone")
}
