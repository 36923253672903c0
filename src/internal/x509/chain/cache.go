// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// IssuerCacheEntry represents a cached issuer certificate download with metadata
type IssuerCacheEntry struct {
	Data      []byte    // Raw certificate bytes as fetched (DER or PEM)
	FetchedAt time.Time // When this issuer was fetched
	NotAfter  time.Time // When the cached certificate expires
	URL       string    // Source URL for debugging
}

// isFresh checks if the cached issuer is still usable
func (entry *IssuerCacheEntry) isFresh() bool {
	now := time.Now()
	// Usable while the certificate itself is valid and the download is recent
	return entry.NotAfter.After(now) && entry.FetchedAt.After(now.Add(-24*time.Hour))
}

// IssuerCacheConfig holds configuration for the issuer download cache
type IssuerCacheConfig struct {
	MaxSize int // Maximum number of issuer downloads to cache (0 = unlimited, but not recommended)
}

// IssuerCacheMetrics tracks cache performance and usage
type IssuerCacheMetrics struct {
	Size      int64 // Current number of cached downloads
	Hits      int64 // Number of cache hits
	Misses    int64 // Number of cache misses
	Evictions int64 // Number of LRU evictions
}

// Default issuer cache configuration
var defaultIssuerCacheConfig = IssuerCacheConfig{
	MaxSize: 100,
}

// issuerCache is a simple LRU cache for AIA issuer downloads. Chains for
// certificates from the same CA share intermediates, so repeat bundling runs
// skip the network entirely.
var issuerCache = make(map[string]*IssuerCacheEntry)
var issuerCacheMutex sync.RWMutex
var issuerCacheOrder []string      // Maintains access order for LRU eviction
var issuerCacheConfig atomic.Value // Stores *IssuerCacheConfig
var issuerCacheMetrics IssuerCacheMetrics

func init() {
	issuerCacheConfig.Store(&defaultIssuerCacheConfig)
}

// SetIssuerCacheConfig sets the issuer cache configuration
func SetIssuerCacheConfig(config *IssuerCacheConfig) {
	cfg := &IssuerCacheConfig{
		MaxSize: defaultIssuerCacheConfig.MaxSize,
	}

	if config != nil {
		cfg.MaxSize = config.MaxSize
	}

	if cfg.MaxSize < 0 {
		cfg.MaxSize = 0 // 0 means unlimited, but not recommended
	}

	// Store a copy to prevent external mutation
	issuerCacheConfig.Store(&IssuerCacheConfig{MaxSize: cfg.MaxSize})

	pruneIssuerCache(cfg.MaxSize)
}

func pruneIssuerCache(maxSize int) {
	if maxSize <= 0 {
		return
	}

	issuerCacheMutex.Lock()
	defer issuerCacheMutex.Unlock()

	removed := int64(0)
	for len(issuerCache) > maxSize && len(issuerCacheOrder) > 0 {
		lruURL := issuerCacheOrder[0]
		delete(issuerCache, lruURL)
		issuerCacheOrder = issuerCacheOrder[1:]
		removed++
	}

	if removed > 0 {
		atomic.AddInt64(&issuerCacheMetrics.Evictions, removed)
	}
}

// GetIssuerCacheConfig returns the current issuer cache configuration
func GetIssuerCacheConfig() *IssuerCacheConfig {
	config := issuerCacheConfig.Load().(*IssuerCacheConfig)
	return &IssuerCacheConfig{MaxSize: config.MaxSize}
}

// GetIssuerCacheMetrics returns current cache metrics
func GetIssuerCacheMetrics() IssuerCacheMetrics {
	issuerCacheMutex.RLock()
	defer issuerCacheMutex.RUnlock()

	metrics := issuerCacheMetrics
	metrics.Size = int64(len(issuerCache))
	return metrics
}

// updateIssuerCacheOrder updates the access order for LRU eviction
func updateIssuerCacheOrder(url string) {
	for i, u := range issuerCacheOrder {
		if u == url {
			issuerCacheOrder = append(issuerCacheOrder[:i], issuerCacheOrder[i+1:]...)
			break
		}
	}
	issuerCacheOrder = append(issuerCacheOrder, url)
}

// GetCachedIssuer retrieves a fresh issuer download from cache and updates access order
func GetCachedIssuer(url string) ([]byte, bool) {
	issuerCacheMutex.Lock()
	defer issuerCacheMutex.Unlock()

	entry, exists := issuerCache[url]
	if !exists || !entry.isFresh() {
		atomic.AddInt64(&issuerCacheMetrics.Misses, 1)
		return nil, false
	}

	atomic.AddInt64(&issuerCacheMetrics.Hits, 1)

	updateIssuerCacheOrder(url)

	// Return a copy to prevent external modification
	dataCopy := make([]byte, len(entry.Data))
	copy(dataCopy, entry.Data)
	return dataCopy, true
}

// SetCachedIssuer stores an issuer download in cache and applies LRU eviction
func SetCachedIssuer(url string, data []byte, notAfter time.Time) {
	issuerCacheMutex.Lock()
	defer issuerCacheMutex.Unlock()

	config := GetIssuerCacheConfig()

	for len(issuerCache) >= config.MaxSize && config.MaxSize > 0 && len(issuerCacheOrder) > 0 {
		lruURL := issuerCacheOrder[0]
		delete(issuerCache, lruURL)
		issuerCacheOrder = issuerCacheOrder[1:]
		atomic.AddInt64(&issuerCacheMetrics.Evictions, 1)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	issuerCache[url] = &IssuerCacheEntry{
		Data:      dataCopy,
		FetchedAt: time.Now(),
		NotAfter:  notAfter,
		URL:       url,
	}

	updateIssuerCacheOrder(url)
}

// ClearIssuerCache clears all cached issuer downloads (useful for testing)
func ClearIssuerCache() {
	issuerCacheMutex.Lock()
	defer issuerCacheMutex.Unlock()

	issuerCache = make(map[string]*IssuerCacheEntry)
	issuerCacheOrder = nil

	atomic.StoreInt64(&issuerCacheMetrics.Hits, 0)
	atomic.StoreInt64(&issuerCacheMetrics.Misses, 0)
	atomic.StoreInt64(&issuerCacheMetrics.Evictions, 0)
}

// GetIssuerCacheStats returns a formatted string with cache statistics
func GetIssuerCacheStats() string {
	metrics := GetIssuerCacheMetrics()
	config := GetIssuerCacheConfig()

	hitRate := float64(0)
	totalRequests := metrics.Hits + metrics.Misses
	if totalRequests > 0 {
		hitRate = float64(metrics.Hits) / float64(totalRequests) * 100
	}

	return fmt.Sprintf("Issuer Cache Statistics:\n"+
		"  Size: %d/%d entries\n"+
		"  Hit Rate: %.1f%% (%d hits, %d misses)\n"+
		"  Evictions: %d",
		metrics.Size, config.MaxSize,
		hitRate, metrics.Hits, metrics.Misses,
		metrics.Evictions)
}
