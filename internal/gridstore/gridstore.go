// Package gridstore is the grid processor: given a dataset's storage
// location and metadata (no network call needed to discover pyramid
// levels and chunk shapes), it picks a pyramid level, computes the set of
// chunks covering a normalized bounding box, fetches them through the
// chunk cache, and assembles a contiguous region with its actual
// geographic bounds.
package gridstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/weatherwx/tileserve/internal/catalog"
	"github.com/weatherwx/tileserve/internal/chunkcache"
	"github.com/weatherwx/tileserve/internal/coord"
	"github.com/weatherwx/tileserve/internal/objectstore"
	"github.com/weatherwx/tileserve/internal/tileerr"
)

// bufferCells is the edge-safe bilinear sampling buffer applied to the
// chunk rectangle on each side, per spec.
const bufferCells = 2

// GridRegion is the grid processor's output: the assembled data, its
// actual (chunk-aligned) bounds in the grid's own longitude convention,
// and whether that grid uses the 0-360 convention.
type GridRegion struct {
	Data        []float32
	Rows, Cols  int
	Bounds      coord.BoundingBox
	GridUses360 bool
}

// Reader opens one dataset's chunked array and serves region/point reads
// against it, backed by a shared chunk cache and object store.
type Reader struct {
	rec    catalog.DatasetRecord
	store  objectstore.Client
	cache  *chunkcache.Cache
}

// Open returns a Reader for rec. No network call is made; all the shape
// and chunk-layout information needed comes from rec's pyramid metadata.
func Open(rec catalog.DatasetRecord, store objectstore.Client, cache *chunkcache.Cache) (*Reader, error) {
	if len(rec.Pyramid) == 0 {
		return nil, tileerr.New(tileerr.PermanentIO, "gridstore.Open", fmt.Errorf("dataset %s has no pyramid levels", rec.StoragePath))
	}
	return &Reader{rec: rec, store: store, cache: cache}, nil
}

// pickLevel chooses the smallest pyramid level whose native resolution is
// >= the output resolution implied by targetSize over requestBBox; with no
// targetSize, level 0 is used. Deterministic given the same inputs.
func (r *Reader) pickLevel(requestBBox coord.BoundingBox, targetSize *[2]int) catalog.PyramidLevel {
	if targetSize == nil {
		return r.rec.Pyramid[0]
	}
	w := targetSize[0]
	lonSpan := requestBBox.MaxLon - requestBBox.MinLon
	if lonSpan <= 0 || w <= 0 {
		return r.rec.Pyramid[0]
	}
	// output resolution in degrees of longitude per output pixel
	outputRes := lonSpan / float64(w)

	// A level qualifies when its cells (degrees per cell) are no coarser
	// than the output pixels; the coarsest qualifying level wins, and level
	// 0 is kept when none qualifies.
	gridLonSpan := r.rec.BBox.MaxLon - r.rec.BBox.MinLon
	best := r.rec.Pyramid[0]
	bestRes := gridLonSpan / float64(maxInt(best.Cols, 1))
	for _, lvl := range r.rec.Pyramid {
		levelRes := gridLonSpan / float64(maxInt(lvl.Cols, 1))
		if levelRes <= outputRes && levelRes > bestRes {
			best, bestRes = lvl, levelRes
		}
	}
	return best
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ReadRegion implements the grid processor's primary operation.
func (r *Reader) ReadRegion(ctx context.Context, requestBBox coord.BoundingBox, targetSize *[2]int) (GridRegion, error) {
	level := r.pickLevel(requestBBox, targetSize)

	fullGrid := r.rec.Projection.RequiresFullGrid(r.rec.RequiresFullGrid) ||
		requestBBox.CrossesDatelineOn360Grid(r.rec.BBox)

	var sel coord.ChunkSelection
	if fullGrid {
		sel = coord.ChunksForBBox(r.rec.BBox, level.Rows, level.Cols, level.ChunkRows, level.ChunkCols, r.rec.BBox, 0)
	} else {
		sel = coord.ChunksForBBox(r.rec.BBox, level.Rows, level.Cols, level.ChunkRows, level.ChunkCols, requestBBox, bufferCells)
	}

	chunks, err := r.fetchChunks(ctx, level, sel.Chunks)
	if err != nil {
		return GridRegion{}, err
	}

	data, rows, cols := assembleRegion(level, sel.Chunks, chunks)

	return GridRegion{
		Data:        data,
		Rows:        rows,
		Cols:        cols,
		Bounds:      sel.Bounds,
		GridUses360: r.rec.Uses360Longitude,
	}, nil
}

// ReadPoint selects level 0, locates the containing chunk, fetches it
// (through the cache), and returns a bilinear sample, or (0, false) for
// NaN / outside the grid.
func (r *Reader) ReadPoint(ctx context.Context, lon, lat float64) (float64, bool, error) {
	level := r.rec.Pyramid[0]
	norm := coord.NormalizeLongitude(lon, r.rec.Uses360Longitude)

	lonSpan := r.rec.BBox.MaxLon - r.rec.BBox.MinLon
	latSpan := r.rec.BBox.MaxLat - r.rec.BBox.MinLat
	if lonSpan <= 0 || latSpan <= 0 {
		return 0, false, nil
	}
	if norm < r.rec.BBox.MinLon || norm > r.rec.BBox.MaxLon || lat < r.rec.BBox.MinLat || lat > r.rec.BBox.MaxLat {
		return 0, false, nil
	}

	gx := (norm - r.rec.BBox.MinLon) / lonSpan * float64(level.Cols-1)
	gy := (r.rec.BBox.MaxLat - lat) / latSpan * float64(level.Rows-1)

	ci := int(gx) / maxInt(level.ChunkCols, 1)
	cj := int(gy) / maxInt(level.ChunkRows, 1)

	chunks, err := r.fetchChunks(ctx, level, []coord.ChunkIndex{{Ci: ci, Cj: cj}})
	if err != nil {
		return 0, false, err
	}
	arr := chunks[coord.ChunkIndex{Ci: ci, Cj: cj}]
	if arr == nil {
		return 0, false, nil
	}

	localGx := gx - float64(ci*level.ChunkCols)
	localGy := gy - float64(cj*level.ChunkRows)
	v := coord.BilinearSample(arr.Data, arr.Rows, arr.Cols, localGx, localGy, false)
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// fetchChunks probes the chunk cache for each requested chunk; misses are
// issued concurrently as byte-range reads to the object store, decoded,
// and inserted into the cache.
func (r *Reader) fetchChunks(ctx context.Context, level catalog.PyramidLevel, idxs []coord.ChunkIndex) (map[coord.ChunkIndex]*chunkcache.DecodedArray, error) {
	result := make(map[coord.ChunkIndex]*chunkcache.DecodedArray, len(idxs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(idxs))

	for _, idx := range idxs {
		key := chunkcache.Key{StoragePath: r.rec.StoragePath, Level: level.LevelIndex, Ci: idx.Ci, Cj: idx.Cj}
		if arr, ok := r.cache.Get(key); ok {
			mu.Lock()
			result[idx] = arr
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(idx coord.ChunkIndex, key chunkcache.Key) {
			defer wg.Done()
			arr, err := r.fetchAndDecodeChunk(ctx, level, idx)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			r.cache.Insert(key, arr)
			mu.Lock()
			result[idx] = arr
			mu.Unlock()
		}(idx, key)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		if tileerr.Is(err, tileerr.DecodeError) {
			return nil, err
		}
		return nil, tileerr.New(tileerr.TransientIO, "gridstore.fetchChunks", err)
	}
	return result, nil
}

// chunkShape returns the actual rows/cols a chunk at (ci, cj) covers,
// clamped at the grid's right/bottom edges.
func chunkShape(level catalog.PyramidLevel, idx coord.ChunkIndex) (rows, cols int) {
	cols = minInt(level.ChunkCols, level.Cols-idx.Ci*level.ChunkCols)
	rows = minInt(level.ChunkRows, level.Rows-idx.Cj*level.ChunkRows)
	return
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// fetchAndDecodeChunk issues the byte-range GET for one chunk and decodes
// it. The on-disk chunk layout is a flat little-endian float32 array,
// row-major, one shard file per pyramid level with a fixed per-chunk byte
// stride computed from the full chunk shape (trailing edge chunks are
// logically padded, so every chunk occupies the same byte range).
func (r *Reader) fetchAndDecodeChunk(ctx context.Context, level catalog.PyramidLevel, idx coord.ChunkIndex) (*chunkcache.DecodedArray, error) {
	rows, cols := chunkShape(level, idx)
	if rows <= 0 || cols <= 0 {
		return &chunkcache.DecodedArray{Data: nil, Rows: 0, Cols: 0}, nil
	}

	chunkElems := level.ChunkRows * level.ChunkCols
	chunkBytes := int64(chunkElems) * 4
	colsPerRow := ceilDiv(level.Cols, level.ChunkCols)
	chunkLinearIndex := int64(idx.Cj)*int64(colsPerRow) + int64(idx.Ci)
	offset := chunkLinearIndex * chunkBytes

	shardPath := fmt.Sprintf("%s/level_%d.bin", r.rec.StoragePath, level.LevelIndex)

	raw, err := r.store.GetRange(ctx, shardPath, offset, offset+chunkBytes)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) != chunkBytes {
		return nil, tileerr.New(tileerr.DecodeError, "gridstore.fetchAndDecodeChunk",
			fmt.Errorf("short read: got %d bytes, want %d", len(raw), chunkBytes))
	}

	full := make([]float32, chunkElems)
	for i := range full {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		full[i] = math.Float32frombits(bits)
	}

	if rows == level.ChunkRows && cols == level.ChunkCols {
		return &chunkcache.DecodedArray{Data: full, Rows: rows, Cols: cols}, nil
	}

	cropped := make([]float32, rows*cols)
	for y := 0; y < rows; y++ {
		copy(cropped[y*cols:(y+1)*cols], full[y*level.ChunkCols:y*level.ChunkCols+cols])
	}
	return &chunkcache.DecodedArray{Data: cropped, Rows: rows, Cols: cols}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// assembleRegion stitches the fetched chunks into one contiguous row-major
// buffer covering the selected chunk rectangle.
func assembleRegion(level catalog.PyramidLevel, idxs []coord.ChunkIndex, chunks map[coord.ChunkIndex]*chunkcache.DecodedArray) (data []float32, rows, cols int) {
	if len(idxs) == 0 {
		return nil, 0, 0
	}

	ciMin, ciMax, cjMin, cjMax := idxs[0].Ci, idxs[0].Ci, idxs[0].Cj, idxs[0].Cj
	for _, idx := range idxs {
		if idx.Ci < ciMin {
			ciMin = idx.Ci
		}
		if idx.Ci > ciMax {
			ciMax = idx.Ci
		}
		if idx.Cj < cjMin {
			cjMin = idx.Cj
		}
		if idx.Cj > cjMax {
			cjMax = idx.Cj
		}
	}

	cols = 0
	for ci := ciMin; ci <= ciMax; ci++ {
		_, c := chunkShape(level, coord.ChunkIndex{Ci: ci, Cj: cjMin})
		cols += c
	}
	rows = 0
	for cj := cjMin; cj <= cjMax; cj++ {
		rr, _ := chunkShape(level, coord.ChunkIndex{Ci: ciMin, Cj: cj})
		rows += rr
	}

	data = make([]float32, rows*cols)
	for i := range data {
		data[i] = float32(math.NaN())
	}

	rowOffset := 0
	for cj := cjMin; cj <= cjMax; cj++ {
		chunkRows, _ := chunkShape(level, coord.ChunkIndex{Ci: ciMin, Cj: cj})
		colOffset := 0
		for ci := ciMin; ci <= ciMax; ci++ {
			idx := coord.ChunkIndex{Ci: ci, Cj: cj}
			_, chunkCols := chunkShape(level, idx)
			arr := chunks[idx]
			if arr != nil {
				for y := 0; y < chunkRows && y < arr.Rows; y++ {
					srcStart := y * arr.Cols
					dstStart := (rowOffset+y)*cols + colOffset
					n := chunkCols
					if n > arr.Cols {
						n = arr.Cols
					}
					copy(data[dstStart:dstStart+n], arr.Data[srcStart:srcStart+n])
				}
			}
			colOffset += chunkCols
		}
		rowOffset += chunkRows
	}

	return data, rows, cols
}
