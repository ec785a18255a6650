package coord

// NormalizeLongitude maps lon into the 0-360 convention when uses360 is
// true and lon is negative; otherwise returns lon unchanged. Idempotent:
// NormalizeLongitude(NormalizeLongitude(lon, u), u) == NormalizeLongitude(lon, u).
func NormalizeLongitude(lon float64, uses360 bool) float64 {
	if uses360 && lon < 0 {
		return lon + 360
	}
	return lon
}
