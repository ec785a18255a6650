// Package warmer drives the coordinator through a configured set of
// layers, zoom levels, and forecast hours at startup and on a refresh
// tick, so the common viewport is already cached by the time the first
// real request for it arrives. Already-cached tiles are cheap L1/L2
// no-ops; a cold render still calls the coordinator's regular ServeTile
// path and so still competes for its foreground quota like any other
// request. The Warmer's own semaphore only bounds how many warm jobs
// this package has in flight at once; it does not grant them any
// special priority or route them through a separate quota.
package warmer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/coordinator"
	"github.com/weatherwx/tileserve/internal/encode"
	"github.com/weatherwx/tileserve/internal/metrics"
)

// Target is one (model, parameter, level, style) tuple the warmer keeps
// the cache hot for, enumerated across every zoom and forecast hour in
// Config.
type Target struct {
	Model     string
	Parameter string
	Level     string
	Style     string
}

// Config bounds what the warmer enumerates and how hard it pushes.
type Config struct {
	Enabled         bool
	MaxZoom         int
	ForecastHours   []int
	Targets         []Target
	Concurrency     int
	RefreshInterval time.Duration

	TileSize   int
	Format     encode.Format
	OutputProj coord.ProjectionVariant
}

// Warmer holds the coordinator it drives and its own concurrency quota,
// independent of the coordinator's foreground/prefetch semaphores.
type Warmer struct {
	coord *coordinator.Coordinator
	cfg   Config
	sem   *semaphore.Weighted
}

// New constructs a Warmer. It does not start running; call Run or
// WarmOnce explicitly.
func New(c *coordinator.Coordinator, cfg Config) *Warmer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Warmer{coord: c, cfg: cfg, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Run blocks, warming immediately and then on every RefreshInterval tick,
// until ctx is cancelled. Intended to be launched in its own goroutine by
// the owning process.
func (w *Warmer) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		return
	}
	w.WarmOnce(ctx)

	interval := w.cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

// WarmOnce enumerates every (target, z in [0, MaxZoom], x, y,
// forecast_hour) tuple and drives each through the coordinator with a
// concurrency-bounded fan-out, blocking until every job this round has
// either run or been abandoned via ctx cancellation.
func (w *Warmer) WarmOnce(ctx context.Context) {
	if !w.cfg.Enabled {
		return
	}
	hours := w.cfg.ForecastHours
	if len(hours) == 0 {
		hours = []int{0}
	}

	var wg sync.WaitGroup
	for _, target := range w.cfg.Targets {
		for z := 0; z <= w.cfg.MaxZoom; z++ {
			span := 1 << uint(z)
			for x := 0; x < span; x++ {
				for y := 0; y < span; y++ {
					for _, h := range hours {
						if !w.acquire(ctx) {
							continue
						}
						wg.Add(1)
						go w.warmOne(ctx, &wg, target, z, x, y, h)
					}
				}
			}
		}
	}
	wg.Wait()
}

func (w *Warmer) acquire(ctx context.Context) bool {
	return w.sem.Acquire(ctx, 1) == nil
}

func (w *Warmer) warmOne(ctx context.Context, wg *sync.WaitGroup, target Target, z, x, y, forecastHour int) {
	defer wg.Done()
	defer w.sem.Release(1)

	metrics.PrefetchJobsEnqueued.WithLabelValues("warmer").Inc()

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tileSize := w.cfg.TileSize
	if tileSize <= 0 {
		tileSize = 256
	}
	format := w.cfg.Format
	if format == "" {
		format = encode.FormatPNG
	}

	w.coord.ServeTile(reqCtx, coordinator.TileRequest{
		Layer:        target.Parameter,
		Model:        target.Model,
		Level:        target.Level,
		Style:        target.Style,
		Z:            z,
		X:            x,
		Y:            y,
		TileSize:     tileSize,
		Format:       format,
		OutputProj:   w.cfg.OutputProj,
		ForecastHour: forecastHour,
	})
}
