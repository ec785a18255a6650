// Package catalog is the query layer over dataset metadata records: one
// per (model, parameter, level, reference_time, forecast_hour), returning
// the storage location and grid metadata the grid processor needs to open
// a chunked-array dataset without a network round trip to discover its
// pyramid levels and chunk shapes.
package catalog

import (
	"time"

	"github.com/weatherwx/tileserve/internal/coord"
)

// PyramidLevel describes one resolution level of a dataset's chunked
// array, level 0 being full resolution. ChunkRows/ChunkCols is the shard
// grouping shape for this level (typically 512x512); it may differ across
// levels when the ingestion pipeline re-shards lower levels.
type PyramidLevel struct {
	LevelIndex         int
	Rows, Cols         int
	ChunkRows, ChunkCols int
	ScaleX             float64
	ScaleY             float64
}

// DatasetRecord is the catalog's unit of record. Created by ingestion,
// immutable thereafter, deleted only by retention policy.
type DatasetRecord struct {
	Model         string
	Parameter     string
	Level         string
	ReferenceTime time.Time
	ForecastHour  int

	StoragePath      string
	GridRows         int
	GridCols         int
	BBox             coord.BoundingBox
	Uses360Longitude bool
	Projection       coord.ProjectionVariant
	RequiresFullGrid *bool // explicit metadata override, nil if unset
	Pyramid          []PyramidLevel
}

// ValidTime is the derived instant: reference_time + forecast_hour hours.
func (d DatasetRecord) ValidTime() time.Time {
	return d.ReferenceTime.Add(time.Duration(d.ForecastHour) * time.Hour)
}

// Query selects a dataset either exactly (ForecastHour set, Latest false)
// or as "latest": greatest reference_time, then smallest forecast_hour
// within it.
type Query struct {
	Model        string
	Parameter    string
	Level        string
	RefTime      time.Time
	ForecastHour int
	Latest       bool
}

// IngestionEvent is published when a new dataset becomes available for a
// (model, parameter, reference_time).
type IngestionEvent struct {
	Model         string
	Parameter     string
	ReferenceTime time.Time
}

// Client is the catalog surface the coordinator and warmer depend on.
type Client interface {
	// FindDataset resolves a Query to a DatasetRecord, or (zero, false) if
	// no matching dataset exists.
	FindDataset(query Query) (DatasetRecord, bool, error)
	// ListReferenceTimes returns known reference times for
	// (model, parameter, level) in ascending order.
	ListReferenceTimes(model, parameter, level string) ([]time.Time, error)
	// Subscribe registers a callback invoked on each ingestion event; it
	// returns an unsubscribe function.
	Subscribe(onIngested func(IngestionEvent)) (unsubscribe func(), err error)
}
