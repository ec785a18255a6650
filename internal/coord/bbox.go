package coord

// BoundingBox is a geographic rectangle in degrees.
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Uses0360 reports whether this bounding box is expressed in the 0-360
// longitude convention rather than -180/180, per the grid-metadata rule:
// true iff MinLon >= 0 and MaxLon > 180.
func (b BoundingBox) Uses0360() bool {
	return b.MinLon >= 0 && b.MaxLon > 180
}

// NormalizeToGrid shifts this bbox's longitudes by +360 where negative, iff
// gridBBox uses the 0-360 convention. It does not touch latitudes.
func (b BoundingBox) NormalizeToGrid(gridBBox BoundingBox) BoundingBox {
	if !gridBBox.Uses0360() {
		return b
	}
	out := b
	if out.MinLon < 0 {
		out.MinLon += 360
	}
	if out.MaxLon < 0 {
		out.MaxLon += 360
	}
	return out
}

// CrossesDatelineOn360Grid reports whether this bbox crosses the
// antimeridian when interpreted against a 0-360 grid: the grid uses 0-360
// and this bbox's MinLon is negative while its MaxLon is non-negative.
func (b BoundingBox) CrossesDatelineOn360Grid(gridBBox BoundingBox) bool {
	return gridBBox.Uses0360() && b.MinLon < 0 && b.MaxLon >= 0
}

// IsGlobal360 reports whether a grid bbox spans (near) the full 0-360
// longitude range, meaning it has a wrap gap between its last column and
// 360 degrees.
func (b BoundingBox) IsGlobal360() bool {
	return b.Uses0360() && (b.MaxLon-b.MinLon) > 359.0
}
