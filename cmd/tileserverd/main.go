// Command tileserverd wires the catalog, object store, caches,
// coordinator, and warmer into one running process and exposes the
// operational surface: /healthz and Prometheus /metrics. Tile request
// parsing and the HTTP tile-serving protocol itself are owned by the
// request layer, outside this module's scope.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/weatherwx/tileserve/internal/catalog"
	"github.com/weatherwx/tileserve/internal/chunkcache"
	"github.com/weatherwx/tileserve/internal/config"
	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/coordinator"
	"github.com/weatherwx/tileserve/internal/encode"
	"github.com/weatherwx/tileserve/internal/l1cache"
	"github.com/weatherwx/tileserve/internal/l2store"
	"github.com/weatherwx/tileserve/internal/objectstore"
	"github.com/weatherwx/tileserve/internal/style"
	"github.com/weatherwx/tileserve/internal/warmer"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "tileserverd",
		Short: "Run the weather tile serving core",
		RunE:  runServe,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug-level logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.L2RedisURL)})
	defer redisClient.Close()

	cat, err := catalog.NewPGClient(ctx, catalog.PGConfig{DatabaseURL: cfg.CatalogDatabaseURL}, redisClient, logger)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer cat.Close()

	store, err := objectstore.NewS3Client(ctx, cfg.ObjectStoreBucket, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("connect object store: %w", err)
	}

	styles, err := style.LoadDir(cfg.StyleDir)
	if err != nil {
		return fmt.Errorf("load styles: %w", err)
	}

	chunks := chunkcache.New(int64(cfg.ChunkCacheSizeMB) << 20)
	l1, err := l1cache.New(cfg.TileCacheSize)
	if err != nil {
		return fmt.Errorf("create l1 cache: %w", err)
	}
	l2 := l2store.New(redisClient)

	workers := cfg.WorkerThreads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	rc := coordinator.New(cat, store, chunks, l1, l2, styles, coordinator.Config{
		Workers:               workers,
		BufferPx:              cfg.TileRenderBufferPixels,
		PrefetchRings:         cfg.PrefetchRings,
		PrefetchMinZoom:       cfg.PrefetchMinZoom,
		PrefetchMaxZoom:       cfg.PrefetchMaxZoom,
		TemporalPrefetchHours: cfg.TemporalPrefetchHours,
	})

	unsubscribe, err := cat.Subscribe(func(ev catalog.IngestionEvent) {
		rc.InvalidateIngestion(context.Background(), ev.Model, ev.Parameter)
	})
	if err != nil {
		return fmt.Errorf("subscribe to ingestion events: %w", err)
	}
	defer unsubscribe()

	w := warmer.New(rc, warmer.Config{
		Enabled:         cfg.CacheWarmingEnabled,
		MaxZoom:         cfg.CacheWarmingMaxZoom,
		ForecastHours:   cfg.CacheWarmingHours,
		Targets:         warmTargets(cfg),
		Concurrency:     cfg.CacheWarmingConcurrency,
		RefreshInterval: time.Duration(cfg.CacheWarmingRefreshSecs) * time.Second,
		TileSize:        256,
		Format:          encode.FormatPNG,
		OutputProj:      coord.WebMercator,
	})
	go w.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("tileserverd listening", "addr", cfg.MetricsAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// warmTargets turns the configured layer name list into (model, parameter,
// level, style) tuples the warmer enumerates. This module takes no
// position on layer-name syntax beyond the documented
// "model/parameter/level/style" convention; a request layer with a richer
// layer registry would build this list itself instead.
func warmTargets(cfg config.Config) []warmer.Target {
	var targets []warmer.Target
	for _, layer := range cfg.CacheWarmingLayers {
		t, ok := parseLayerName(layer)
		if ok {
			targets = append(targets, t)
		}
	}
	return targets
}

func parseLayerName(layer string) (warmer.Target, bool) {
	parts := splitN(layer, '/', 4)
	if len(parts) != 4 {
		return warmer.Target{}, false
	}
	return warmer.Target{Model: parts[0], Parameter: parts[1], Level: parts[2], Style: parts[3]}, true
}

func splitN(s string, sep byte, n int) []string {
	var out []string
	start := 0
	for i := 0; i < len(s) && len(out) < n-1; i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func redisAddr(url string) string {
	const prefix = "redis://"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}
