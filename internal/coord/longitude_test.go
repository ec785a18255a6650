package coord

import "testing"

func TestNormalizeLongitude(t *testing.T) {
	cases := []struct {
		lon     float64
		uses360 bool
		want    float64
	}{
		{-10, true, 350},
		{10, true, 10},
		{-10, false, -10},
		{0, true, 0},
		{179.9, true, 179.9},
	}
	for _, c := range cases {
		got := NormalizeLongitude(c.lon, c.uses360)
		if got != c.want {
			t.Errorf("NormalizeLongitude(%v, %v) = %v, want %v", c.lon, c.uses360, got, c.want)
		}
	}
}

func TestNormalizeLongitudeIdempotent(t *testing.T) {
	for _, lon := range []float64{-179.5, -0.001, 0, 90, 179.999} {
		once := NormalizeLongitude(lon, true)
		twice := NormalizeLongitude(once, true)
		if once != twice {
			t.Errorf("not idempotent: lon=%v once=%v twice=%v", lon, once, twice)
		}
	}
}

func TestNormalizeLongitudeRangeWhenUses360(t *testing.T) {
	for lon := -179.99; lon < 180; lon += 10 {
		got := NormalizeLongitude(lon, true)
		if got < 0 || got >= 360 {
			t.Errorf("NormalizeLongitude(%v, true) = %v, out of [0, 360)", lon, got)
		}
	}
}
