package gridstore

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/weatherwx/tileserve/internal/catalog"
	"github.com/weatherwx/tileserve/internal/chunkcache"
	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/objectstore"
)

// buildGrid writes a 4x4 full-resolution grid (value = row*4+col) as a
// single level_0.bin shard, sharded into 2x2 chunks of 2x2 cells each, in
// (cj major, ci minor) chunk order, matching fetchAndDecodeChunk's layout.
func buildGrid(store *objectstore.MemClient, storagePath string) {
	const rows, cols = 4, 4
	const chunkRows, chunkCols = 2, 2
	colsPerRow := ceilDiv(cols, chunkCols)
	rowsPerCol := ceilDiv(rows, chunkRows)

	buf := make([]byte, 0, rows*cols*4)
	for cj := 0; cj < rowsPerCol; cj++ {
		for ci := 0; ci < colsPerRow; ci++ {
			for lr := 0; lr < chunkRows; lr++ {
				for lc := 0; lc < chunkCols; lc++ {
					r := cj*chunkRows + lr
					c := ci*chunkCols + lc
					v := float32(r*cols + c)
					b := make([]byte, 4)
					binary.LittleEndian.PutUint32(b, math.Float32bits(v))
					buf = append(buf, b...)
				}
			}
		}
	}
	store.Put(storagePath+"/level_0.bin", buf)
}

func testRecord() catalog.DatasetRecord {
	return catalog.DatasetRecord{
		Model:            "gfs",
		Parameter:        "TMP",
		StoragePath:      "grids/gfs/tmp/2026073000",
		GridRows:         4,
		GridCols:         4,
		BBox:             coord.BoundingBox{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10},
		Uses360Longitude: false,
		Projection:       coord.Geographic,
		Pyramid: []catalog.PyramidLevel{
			{LevelIndex: 0, Rows: 4, Cols: 4, ChunkRows: 2, ChunkCols: 2, ScaleX: 1, ScaleY: 1},
		},
	}
}

func TestReadRegionFullCoverage(t *testing.T) {
	store := objectstore.NewMemClient()
	buildGrid(store, "grids/gfs/tmp/2026073000")
	cache := chunkcache.New(1 << 20)

	r, err := Open(testRecord(), store, cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	region, err := r.ReadRegion(context.Background(), testRecord().BBox, nil)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if region.Rows != 4 || region.Cols != 4 {
		t.Fatalf("region shape = %dx%d, want 4x4", region.Rows, region.Cols)
	}
	for rIdx := 0; rIdx < 4; rIdx++ {
		for cIdx := 0; cIdx < 4; cIdx++ {
			want := float32(rIdx*4 + cIdx)
			got := region.Data[rIdx*4+cIdx]
			if got != want {
				t.Errorf("Data[%d][%d] = %v, want %v", rIdx, cIdx, got, want)
			}
		}
	}
}

func TestReadRegionCachesChunks(t *testing.T) {
	store := objectstore.NewMemClient()
	buildGrid(store, "grids/gfs/tmp/2026073000")
	cache := chunkcache.New(1 << 20)
	rec := testRecord()

	r, err := Open(rec, store, cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := r.ReadRegion(context.Background(), rec.BBox, nil); err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	stats := cache.Stats()
	if stats.Misses == 0 {
		t.Error("expected at least one cache miss on first read")
	}

	if _, err := r.ReadRegion(context.Background(), rec.BBox, nil); err != nil {
		t.Fatalf("ReadRegion (second): %v", err)
	}
	stats2 := cache.Stats()
	if stats2.Hits == 0 {
		t.Error("expected cache hits on second read of the same region")
	}
}

func TestReadPointExactCell(t *testing.T) {
	store := objectstore.NewMemClient()
	buildGrid(store, "grids/gfs/tmp/2026073000")
	cache := chunkcache.New(1 << 20)
	rec := testRecord()

	r, err := Open(rec, store, cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// top-left grid cell (row=0, col=0) sits at (minLon, maxLat).
	v, ok, err := r.ReadPoint(context.Background(), -10, 10)
	if err != nil {
		t.Fatalf("ReadPoint: %v", err)
	}
	if !ok {
		t.Fatal("expected a value at the grid's top-left corner")
	}
	if v != 0 {
		t.Errorf("ReadPoint top-left = %v, want 0", v)
	}
}

func TestReadPointOutsideGrid(t *testing.T) {
	store := objectstore.NewMemClient()
	buildGrid(store, "grids/gfs/tmp/2026073000")
	cache := chunkcache.New(1 << 20)
	rec := testRecord()

	r, err := Open(rec, store, cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, ok, err := r.ReadPoint(context.Background(), 100, 100)
	if err != nil {
		t.Fatalf("ReadPoint: %v", err)
	}
	if ok {
		t.Error("expected no value for a point outside the grid's bounds")
	}
}

func TestOpenRejectsEmptyPyramid(t *testing.T) {
	rec := testRecord()
	rec.Pyramid = nil
	if _, err := Open(rec, objectstore.NewMemClient(), chunkcache.New(1024)); err == nil {
		t.Error("expected an error opening a dataset with no pyramid levels")
	}
}
