// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLILogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewCLILogger()
	log.SetOutput(&buf)

	log.Printf("resolved %d links", 3)
	log.Println("done")

	out := buf.String()
	assert.Contains(t, out, "resolved 3 links")
	assert.Contains(t, out, "done")
	assert.NotContains(t, out, "{", "CLI output stays human-readable")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, false)

	log.Printf("packed %s", "site.tar")
	log.Println("validation complete")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.NotEmpty(t, entry["message"])
	}
	assert.Contains(t, lines[0], "packed site.tar")
}

func TestJSONLogger_Silent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, true)

	log.Printf("should not appear")
	log.Println("nor this")

	assert.Zero(t, buf.Len())
}

func TestJSONLogger_NilWriter(t *testing.T) {
	log := logger.NewJSONLogger(nil, false)
	// Must not panic.
	log.Printf("into the void")
	log.SetOutput(nil)
	log.Println("still nothing")
}

func TestJSONLogger_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, false)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Printf("message %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		var entry map[string]any
		assert.NoError(t, json.Unmarshal([]byte(line), &entry), "interleaved writes must stay line-atomic")
	}
}
