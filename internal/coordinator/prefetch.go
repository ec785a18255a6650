package coordinator

import (
	"context"
	"time"

	"github.com/weatherwx/tileserve/internal/metrics"
)

// enqueuePrefetch fans out background renders for a just-served tile's
// spatial ring neighbors and, for a non-latest request, its next few
// forecast hours. Each job is fire-and-forget: it re-enters ServeTile so
// an already-warm neighbor is a cheap L1/L2 hit, and a cold one renders
// and populates both cache tiers for the request that will probably
// follow. Jobs that can't acquire the prefetch quota are dropped rather
// than queued, per the back-pressure policy: prefetch never blocks.
func (c *Coordinator) enqueuePrefetch(req TileRequest) {
	if req.Z < c.prefetchCfg.PrefetchMinZoom || req.Z > c.prefetchCfg.PrefetchMaxZoom {
		return
	}

	rings := c.prefetchCfg.PrefetchRings
	if rings > 0 {
		span := int64(1) << uint(req.Z)
		for dx := -rings; dx <= rings; dx++ {
			for dy := -rings; dy <= rings; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := req.X+dx, req.Y+dy
				if nx < 0 || ny < 0 || int64(nx) >= span || int64(ny) >= span {
					continue
				}
				neighbor := req
				neighbor.X, neighbor.Y = nx, ny
				c.spawnPrefetch(neighbor, "ring")
			}
		}
	}

	if c.prefetchCfg.TemporalPrefetchHours > 0 && !req.isLatest() {
		for h := 1; h <= c.prefetchCfg.TemporalPrefetchHours; h++ {
			next := req
			next.ForecastHour = req.ForecastHour + h
			c.spawnPrefetch(next, "temporal")
		}
	}
}

// spawnPrefetch tries to acquire the prefetch quota and, on success, runs
// the render in its own goroutine with a bounded timeout so a stuck object
// store request can't hold the slot forever.
func (c *Coordinator) spawnPrefetch(req TileRequest, source string) {
	if !c.prefetch.TryAcquire(1) {
		metrics.QuotaRejections.WithLabelValues("prefetch").Inc()
		return
	}
	metrics.PrefetchJobsEnqueued.WithLabelValues(source).Inc()

	go func() {
		defer c.prefetch.Release(1)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.ServeTile(ctx, req)
	}()
}
