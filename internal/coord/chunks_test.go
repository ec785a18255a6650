package coord

import "testing"

func TestChunksForBBoxWithinNonGlobalGrid(t *testing.T) {
	grid := BoundingBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
	req := BoundingBox{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}
	sel := ChunksForBBox(grid, 360, 720, 36, 36, req, 2)

	if sel.FullGrid {
		t.Fatal("did not expect a full-grid read for a bounded request")
	}
	if len(sel.Chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if sel.Bounds.MinLon > req.MinLon || sel.Bounds.MaxLon < req.MaxLon {
		t.Errorf("actual bounds %+v do not cover request bounds %+v", sel.Bounds, req)
	}
	if sel.Bounds.MinLat > req.MinLat || sel.Bounds.MaxLat < req.MaxLat {
		t.Errorf("actual bounds %+v do not cover request bounds %+v", sel.Bounds, req)
	}
}

func TestChunksForBBoxDatelineCrossingReadsFullGrid(t *testing.T) {
	grid := BoundingBox{MinLon: 0, MinLat: -90, MaxLon: 360, MaxLat: 90}
	req := BoundingBox{MinLon: -200, MinLat: 30, MaxLon: 160, MaxLat: 50}
	sel := ChunksForBBox(grid, 360, 720, 36, 36, req, 2)

	if !sel.FullGrid {
		t.Fatal("expected a full-grid read when the request crosses the dateline on a 0-360 grid")
	}
	if len(sel.Chunks) != 10*20 {
		t.Errorf("expected the full chunk set (10x20), got %d chunks", len(sel.Chunks))
	}
}

func TestChunksForBBoxClampsAtGridEdge(t *testing.T) {
	grid := BoundingBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
	req := BoundingBox{MinLon: 170, MinLat: 80, MaxLon: 180, MaxLat: 90}
	sel := ChunksForBBox(grid, 360, 720, 36, 36, req, 2)

	for _, c := range sel.Chunks {
		if c.Ci < 0 || c.Ci >= 20 || c.Cj < 0 || c.Cj >= 10 {
			t.Errorf("chunk index out of range: %+v", c)
		}
	}
}
