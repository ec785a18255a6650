// Package config loads the tile server's runtime configuration from
// environment variables, in the style of the geo-index CLI: required
// values fail fast, optional ones fall back to a documented default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the fully resolved set of tunables recognized by the tile
// serving core, per spec.md §6's config table plus the domain-stack
// additions for object store, catalog, L2, and metrics backends.
type Config struct {
	// L1 rendered-tile cache
	TileCacheSize    int
	TileCacheTTLSecs int

	// L2 shared rendered-tile cache
	L2TileTTLSecs int

	// Chunk cache
	ChunkCacheSizeMB int

	// Concurrency
	WorkerThreads int

	// Prefetch
	PrefetchRings         int
	PrefetchMinZoom       int
	PrefetchMaxZoom       int
	TemporalPrefetchHours int

	// Renderer
	TileRenderBufferPixels int

	// Warmer
	CacheWarmingEnabled       bool
	CacheWarmingMaxZoom       int
	CacheWarmingHours         []int
	CacheWarmingLayers        []string
	CacheWarmingConcurrency   int
	CacheWarmingRefreshSecs   int

	// Object store
	ObjectStoreBucket string
	ObjectStorePrefix string
	AWSRegion         string

	// Catalog
	CatalogDatabaseURL string

	// L2 backend
	L2RedisURL string

	// Metrics
	MetricsAddr string

	// Style definitions
	StyleDir string
}

// Load reads every key from the environment, applying defaults, and
// returns an error only for keys with no sane default (object store
// bucket, catalog DSN) that are missing.
func Load() (Config, error) {
	c := Config{
		TileCacheSize:           envInt("TILE_CACHE_SIZE", 2000),
		TileCacheTTLSecs:        envInt("TILE_CACHE_TTL_SECS", 300),
		L2TileTTLSecs:           envInt("L2_TILE_TTL_SECS", 3600),
		ChunkCacheSizeMB:        envInt("CHUNK_CACHE_SIZE_MB", 512),
		WorkerThreads:           envInt("WORKER_THREADS", 0), // 0 => runtime.NumCPU() at call site
		PrefetchRings:           envInt("PREFETCH_RINGS", 2),
		PrefetchMinZoom:         envInt("PREFETCH_MIN_ZOOM", 0),
		PrefetchMaxZoom:         envInt("PREFETCH_MAX_ZOOM", 12),
		TemporalPrefetchHours:   envInt("TEMPORAL_PREFETCH_HOURS", 2),
		TileRenderBufferPixels:  envInt("TILE_RENDER_BUFFER_PIXELS", 120),
		CacheWarmingEnabled:     envBool("CACHE_WARMING_ENABLED", true),
		CacheWarmingMaxZoom:     envInt("CACHE_WARMING_MAX_ZOOM", 4),
		CacheWarmingHours:       envIntList("CACHE_WARMING_HOURS", []int{0, 3, 6}),
		CacheWarmingLayers:      envStringList("CACHE_WARMING_LAYERS", nil),
		CacheWarmingConcurrency: envInt("CACHE_WARMING_CONCURRENCY", 4),
		CacheWarmingRefreshSecs: envInt("CACHE_WARMING_REFRESH_SECS", 1800),

		ObjectStoreBucket: os.Getenv("OBJECT_STORE_BUCKET"),
		ObjectStorePrefix: os.Getenv("OBJECT_STORE_PREFIX"),
		AWSRegion:         envString("AWS_REGION", "us-east-1"),

		CatalogDatabaseURL: os.Getenv("CATALOG_DATABASE_URL"),
		L2RedisURL:         envString("L2_REDIS_URL", "redis://localhost:6379"),
		MetricsAddr:        envString("METRICS_ADDR", ":9090"),
		StyleDir:           envString("STYLE_DIR", "./styles"),
	}

	if c.ObjectStoreBucket == "" {
		return Config{}, fmt.Errorf("config: OBJECT_STORE_BUCKET is required")
	}
	if c.CatalogDatabaseURL == "" {
		return Config{}, fmt.Errorf("config: CATALOG_DATABASE_URL is required")
	}
	return c, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envIntList(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return def
		}
		out = append(out, n)
	}
	return out
}

func envStringList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
