// Package cachekey builds the canonical string key shared by the L1/L2
// rendered-tile caches.
package cachekey

import (
	"fmt"
	"strings"
)

const precision = 6

// Request holds the fields that identify a renderable tile.
type Request struct {
	Layer         string
	Style         string
	CRS           string
	MinLon        float64
	MinLat        float64
	MaxLon        float64
	MaxLat        float64
	Width         int
	Height        int
	Time          string // formatted instant (the coordinator appends "_fNNN" for the forecast hour), or "" for "latest"
	ElevationCode string // opaque level code, or "" for none
}

// Build formats the canonical CacheKey string:
// layer:style:crs:bbox:widthxheight:time_or_latest:elevation_or_none
func Build(r Request) string {
	layer := strings.ToLower(r.Layer)
	style := strings.ToLower(r.Style)
	crs := strings.ToUpper(r.CRS)

	bbox := fmt.Sprintf("%.*f,%.*f,%.*f,%.*f", precision, r.MinLon, precision, r.MinLat, precision, r.MaxLon, precision, r.MaxLat)

	timeOrLatest := r.Time
	if timeOrLatest == "" {
		timeOrLatest = "latest"
	}

	elevation := r.ElevationCode
	if elevation == "" {
		elevation = "none"
	}

	return fmt.Sprintf("%s:%s:%s:%s:%dx%d:%s:%s", layer, style, crs, bbox, r.Width, r.Height, timeOrLatest, elevation)
}

// InvalidationPrefix returns the pattern used by delete_pattern to drop
// all cached tiles for a (model, parameter) pair after an ingestion event,
// matching the "wms:tile:{model}_{parameter}_*" convention §4.8 names.
func InvalidationPrefix(model, parameter string) string {
	return fmt.Sprintf("wms:tile:%s_%s_*", strings.ToLower(model), strings.ToLower(parameter))
}
