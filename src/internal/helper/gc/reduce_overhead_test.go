// Copyright (c) 2024 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package gc_test

import (
	"strings"
	"testing"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/helper/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoolRoundTrip(t *testing.T) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	n, err := buf.Write([]byte("-----BEGIN CERTIFICATE-----"))
	require.NoError(t, err)
	assert.Equal(t, 27, n)

	_, err = buf.WriteString("\npayload")
	require.NoError(t, err)
	require.NoError(t, buf.WriteByte('\n'))

	assert.Equal(t, 36, buf.Len())
	assert.Contains(t, string(buf.Bytes()), "payload")

	buf.Reset()
	assert.Zero(t, buf.Len())
}

func TestBufferReadFrom(t *testing.T) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	n, err := buf.ReadFrom(strings.NewReader("issuer certificate bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(24), n)
	assert.Equal(t, "issuer certificate bytes", string(buf.Bytes()))
}

func TestPoolReuse(t *testing.T) {
	first := gc.Default.Get()
	_, _ = first.WriteString("stale content")
	first.Reset()
	gc.Default.Put(first)

	// A recycled buffer must come back empty.
	second := gc.Default.Get()
	defer gc.Default.Put(second)
	assert.Zero(t, second.Len())
}
