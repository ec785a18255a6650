// Package coordinator implements the request coordinator: the component
// that turns a tile request into bytes by walking L1, then L2, then a
// single-flight render, writing results back through both cache tiers on
// the way out. It also owns the foreground/prefetch concurrency quotas
// and provides InvalidateIngestion for cache invalidation. It does not
// subscribe to ingestion events itself; the caller (cmd/tileserverd)
// holds that subscription and calls InvalidateIngestion for each event.
package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/weatherwx/tileserve/internal/cachekey"
	"github.com/weatherwx/tileserve/internal/catalog"
	"github.com/weatherwx/tileserve/internal/chunkcache"
	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/encode"
	"github.com/weatherwx/tileserve/internal/gridstore"
	"github.com/weatherwx/tileserve/internal/l1cache"
	"github.com/weatherwx/tileserve/internal/l2store"
	"github.com/weatherwx/tileserve/internal/metrics"
	"github.com/weatherwx/tileserve/internal/objectstore"
	"github.com/weatherwx/tileserve/internal/renderer"
	"github.com/weatherwx/tileserve/internal/style"
	"github.com/weatherwx/tileserve/internal/tileerr"
)

// TileRequest is a single tile ask. Z/X/Y is the slippy tile address the
// (out-of-scope) request layer resolved from whatever CRS/bbox/width/height
// the client sent; the coordinator works exclusively in tile-address terms,
// matching the teacher's PMTiles addressing rather than re-deriving a tile
// grid from an arbitrary WMS bbox.
type TileRequest struct {
	Layer string // catalog parameter, e.g. "TMP"
	Model string
	Level string
	Style string

	// VLayer is the catalog parameter for a vector-barb style's second
	// (V) component, e.g. "VGRD" alongside Layer "UGRD". Ignored for
	// every other style Kind.
	VLayer string

	Z, X, Y  int
	TileSize int
	Format   encode.Format

	OutputProj coord.ProjectionVariant

	RefTime      time.Time // zero means "latest"
	ForecastHour int
}

func (r TileRequest) isLatest() bool { return r.RefTime.IsZero() }

// Outcome classifies how a ServeTile call was satisfied, used both for
// the response's Cache-Control header and for metrics.
type Outcome string

const (
	OutcomeHitL1    Outcome = "hit_l1"
	OutcomeHitL2    Outcome = "hit_l2"
	OutcomeRendered Outcome = "rendered"
	OutcomeNotFound Outcome = "not_found"
	OutcomeBusy     Outcome = "busy"
)

// Result is what ServeTile returns on success.
type Result struct {
	Bytes        []byte
	ContentType  string
	CacheControl string
	Outcome      Outcome
}

// Coordinator wires together the two cache tiers, the catalog, the grid
// processor, the renderer, and the style engine behind one entry point,
// with single-flight render de-duplication and two back-pressure
// semaphores (foreground requests, background prefetch).
type Coordinator struct {
	catalog catalog.Client
	store   objectstore.Client
	chunks  *chunkcache.Cache
	l1      *l1cache.Cache
	l2      *l2store.Store
	styles  *style.Set

	renderGroup singleflight.Group
	foreground  *semaphore.Weighted
	prefetch    *semaphore.Weighted

	bufferPx    int
	prefetchCfg Config
}

// Config is the set of tunables ServeTile needs beyond its collaborators;
// workers drives both semaphore widths per the 2x-foreground /
// quarter-prefetch ratio.
type Config struct {
	Workers  int
	BufferPx int

	PrefetchRings         int
	PrefetchMinZoom       int
	PrefetchMaxZoom       int
	TemporalPrefetchHours int
}

// New constructs a Coordinator. It does not subscribe to ingestion events;
// the caller subscribes (cmd/tileserverd uses catalog.Client.Subscribe)
// and calls InvalidateIngestion for each event.
func New(cat catalog.Client, store objectstore.Client, chunks *chunkcache.Cache, l1 *l1cache.Cache, l2 *l2store.Store, styles *style.Set, cfg Config) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	prefetchWidth := workers / 4
	if prefetchWidth < 1 {
		prefetchWidth = 1
	}
	return &Coordinator{
		catalog:     cat,
		store:       store,
		chunks:      chunks,
		l1:          l1,
		l2:          l2,
		styles:      styles,
		foreground:  semaphore.NewWeighted(int64(2 * workers)),
		prefetch:    semaphore.NewWeighted(int64(prefetchWidth)),
		bufferPx:    cfg.BufferPx,
		prefetchCfg: cfg,
	}
}

// ServeTile is the coordinator's one entry point, implementing the
// L1 -> L2 -> single-flight-render -> write-back sequence.
//
// Failure semantics: TransientIO during the render is retried once with a
// small jitter; DecodeError is never retried; L2 failures are already
// demoted to a miss by l2store and never reach here as errors; a missing
// dataset surfaces as tileerr.NotFound; an out-of-grid request renders a
// transparent tile rather than erroring (handled naturally by the grid
// processor and renderer, not special-cased here); BudgetExceeded and
// PermanentIO surface as opaque errors; a cancelled context returns a
// tileerr.Cancelled error wrapping ctx.Err(), without being logged as a
// failure.
func (c *Coordinator) ServeTile(ctx context.Context, req TileRequest) (Result, error) {
	key := c.buildCacheKey(req)

	if e, ok := c.l1.Get(key); ok {
		metrics.RecordCacheResult("l1", true)
		metrics.RecordRender(req.Layer, string(OutcomeHitL1), 0)
		return Result{Bytes: e.Bytes, ContentType: contentType(req.Format), CacheControl: cacheControlFor(e.TTL), Outcome: OutcomeHitL1}, nil
	}
	metrics.RecordCacheResult("l1", false)

	if data, ok := c.l2.Get(ctx, key); ok {
		metrics.RecordCacheResult("l2", true)
		ttl := 300 * time.Second
		c.l1.Set(key, l1cache.Entry{Bytes: data, EncodedFormat: string(req.Format), InsertedAt: time.Now(), TTL: ttl})
		metrics.RecordRender(req.Layer, string(OutcomeHitL2), 0)
		return Result{Bytes: data, ContentType: contentType(req.Format), CacheControl: cacheControlFor(ttl), Outcome: OutcomeHitL2}, nil
	}
	metrics.RecordCacheResult("l2", false)

	if !c.foreground.TryAcquire(1) {
		metrics.QuotaRejections.WithLabelValues("foreground").Inc()
		metrics.RecordRender(req.Layer, string(OutcomeBusy), 0)
		return Result{}, tileerr.New(tileerr.BudgetExceeded, "coordinator.ServeTile", fmt.Errorf("foreground quota exhausted"))
	}
	defer c.foreground.Release(1)

	start := time.Now()
	v, err, _ := c.renderGroup.Do(key, func() (interface{}, error) {
		return c.renderOnce(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, tileerr.New(tileerr.Cancelled, "coordinator.ServeTile", ctx.Err())
		}
		if tileerr.Is(err, tileerr.NotFound) {
			metrics.RecordRender(req.Layer, string(OutcomeNotFound), 0)
			return Result{}, err
		}
		metrics.RecordRender(req.Layer, "error", 0)
		return Result{}, err
	}
	rendered := v.(renderedTile)
	metrics.RecordRender(req.Layer, string(OutcomeRendered), time.Since(start))

	l2TTL, l1TTL := l2store.TTLFor(rendered.age)
	if err := c.l2.Set(ctx, key, rendered.bytes, l2TTL); err != nil {
		// best effort; L2 is never load-bearing for correctness
	}
	c.l1.Set(key, l1cache.Entry{Bytes: rendered.bytes, EncodedFormat: string(req.Format), InsertedAt: time.Now(), TTL: l1TTL})

	c.enqueuePrefetch(req)

	return Result{Bytes: rendered.bytes, ContentType: contentType(req.Format), CacheControl: cacheControlFor(l2TTL), Outcome: OutcomeRendered}, nil
}

type renderedTile struct {
	bytes []byte
	age   time.Duration
}

// renderOnce resolves the dataset, reads the grid region (and, for
// vector-barb styles, the paired V-component region), renders, and
// encodes. A TransientIO failure from either grid read is retried once
// after a small jitter, per the retry policy; every other kind is
// returned as-is.
func (c *Coordinator) renderOnce(ctx context.Context, req TileRequest) (interface{}, error) {
	def, ok := c.styles.Get(req.Style)
	if !ok {
		return nil, tileerr.New(tileerr.InvalidInput, "coordinator.renderOnce", fmt.Errorf("unknown style %q", req.Style))
	}
	palette, _ := c.styles.Palette(req.Style)

	requestBBox := coord.TileToGeographicBBox(req.Z, req.X, req.Y)
	targetSize := [2]int{req.TileSize, req.TileSize}

	rec, region, err := c.fetchRegion(ctx, catalog.Query{
		Model:        req.Model,
		Parameter:    req.Layer,
		Level:        req.Level,
		RefTime:      req.RefTime,
		ForecastHour: req.ForecastHour,
		Latest:       req.isLatest(),
	}, requestBBox, targetSize)
	if err != nil {
		return nil, err
	}

	var vGrid *renderer.GridInput
	if def.Kind == style.KindVectorBarb {
		if req.VLayer == "" {
			return nil, tileerr.New(tileerr.InvalidInput, "coordinator.renderOnce", fmt.Errorf("vector-barb style %q requires VLayer", req.Style))
		}
		_, vRegion, err := c.fetchRegion(ctx, catalog.Query{
			Model:        req.Model,
			Parameter:    req.VLayer,
			Level:        req.Level,
			RefTime:      req.RefTime,
			ForecastHour: req.ForecastHour,
			Latest:       req.isLatest(),
		}, requestBBox, targetSize)
		if err != nil {
			return nil, err
		}
		vGrid = &renderer.GridInput{
			Data:        vRegion.Data,
			Rows:        vRegion.Rows,
			Cols:        vRegion.Cols,
			Bounds:      vRegion.Bounds,
			GridUses360: vRegion.GridUses360,
		}
	}

	enc, err := encode.NewEncoder(req.Format, 85)
	if err != nil {
		return nil, tileerr.New(tileerr.InvalidInput, "coordinator.renderOnce", err)
	}

	bufferPx := c.bufferPx
	if bufferPx <= 0 {
		bufferPx = 120
	}

	bytes, err := renderer.Render(renderer.Request{
		Z: req.Z, X: req.X, Y: req.Y,
		TileSize:   req.TileSize,
		BufferPx:   bufferPx,
		OutputProj: req.OutputProj,
	}, renderer.GridInput{
		Data:        region.Data,
		Rows:        region.Rows,
		Cols:        region.Cols,
		Bounds:      region.Bounds,
		GridUses360: region.GridUses360,
	}, vGrid, def, palette, enc)
	if err != nil {
		return nil, tileerr.New(tileerr.DecodeError, "coordinator.renderOnce.Render", err)
	}

	return renderedTile{bytes: bytes, age: time.Since(rec.ValidTime())}, nil
}

// fetchRegion resolves one catalog dataset and reads its grid region over
// requestBBox, retrying once with jitter on a TransientIO failure.
func (c *Coordinator) fetchRegion(ctx context.Context, q catalog.Query, requestBBox coord.BoundingBox, targetSize [2]int) (catalog.DatasetRecord, gridstore.GridRegion, error) {
	rec, ok, err := c.catalog.FindDataset(q)
	if err != nil {
		return catalog.DatasetRecord{}, gridstore.GridRegion{}, tileerr.New(tileerr.PermanentIO, "coordinator.fetchRegion.FindDataset", err)
	}
	if !ok {
		return catalog.DatasetRecord{}, gridstore.GridRegion{}, tileerr.New(tileerr.NotFound, "coordinator.fetchRegion.FindDataset", nil)
	}

	reader, err := gridstore.Open(rec, c.store, c.chunks)
	if err != nil {
		return catalog.DatasetRecord{}, gridstore.GridRegion{}, err
	}

	region, err := reader.ReadRegion(ctx, requestBBox, &targetSize)
	if err != nil && tileerr.Retryable(err) {
		jitter := time.Duration(rand.Intn(50)) * time.Millisecond
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return catalog.DatasetRecord{}, gridstore.GridRegion{}, ctx.Err()
		}
		region, err = reader.ReadRegion(ctx, requestBBox, &targetSize)
	}
	if err != nil {
		return catalog.DatasetRecord{}, gridstore.GridRegion{}, err
	}
	return rec, region, nil
}

// buildCacheKey namespaces the canonical cachekey.Build string under the
// "wms:tile:{model}_{parameter}_" prefix InvalidationPrefix matches
// against, so an ingestion event for (model, parameter) can drop every
// cached tile for every style/bbox/time combination of that dataset family
// with one SCAN-pattern (L2) or predicate sweep (L1). cachekey.Build's own
// Request has no Model field: that package defines a single request's
// canonical identity, while the store-wide model/parameter namespacing is
// a coordinator concern layered on top.
func (c *Coordinator) buildCacheKey(req TileRequest) string {
	bbox := coord.TileToGeographicBBox(req.Z, req.X, req.Y)
	timeStr := ""
	if !req.isLatest() {
		timeStr = fmt.Sprintf("%s_f%03d", req.RefTime.UTC().Format(time.RFC3339), req.ForecastHour)
	}
	canonical := cachekey.Build(cachekey.Request{
		Layer:         req.Layer,
		Style:         req.Style,
		CRS:           req.OutputProj.String(),
		MinLon:        bbox.MinLon,
		MinLat:        bbox.MinLat,
		MaxLon:        bbox.MaxLon,
		MaxLat:        bbox.MaxLat,
		Width:         req.TileSize,
		Height:        req.TileSize,
		Time:          timeStr,
		ElevationCode: req.Level,
	})
	return fmt.Sprintf("wms:tile:%s_%s_%s", strings.ToLower(req.Model), strings.ToLower(req.Layer), canonical)
}

func contentType(f encode.Format) string {
	switch f {
	case encode.FormatJPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func cacheControlFor(ttl time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))
}

// InvalidateIngestion drops every L1 and L2 entry for (model, parameter),
// called from the catalog ingestion-event subscriber. L1 has no
// server-side pattern scan, so it matches the same invalidation prefix
// against each key it already holds.
func (c *Coordinator) InvalidateIngestion(ctx context.Context, model, parameter string) {
	prefix := cachekey.InvalidationPrefix(model, parameter)
	matcher := prefixMatcher(prefix)

	n := c.l1.DeletePattern(matcher)
	metrics.IngestionInvalidations.WithLabelValues("l1").Add(float64(n))

	if m, err := c.l2.DeletePattern(ctx, prefix); err == nil {
		metrics.IngestionInvalidations.WithLabelValues("l2").Add(float64(m))
	}
}

// prefixMatcher turns a "prefix*" glob (the only shape InvalidationPrefix
// produces) into a predicate over cache keys; l1cache has no key
// namespacing beyond the canonical CacheKey string itself.
func prefixMatcher(pattern string) func(string) bool {
	trimmed := pattern
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '*' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return func(key string) bool {
		if len(key) < len(trimmed) {
			return false
		}
		return key[:len(trimmed)] == trimmed
	}
}
