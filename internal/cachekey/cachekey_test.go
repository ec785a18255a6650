package cachekey

import "testing"

func TestBuildNormalizesCaseAndDefaults(t *testing.T) {
	got := Build(Request{
		Layer: "GFS_TMP", Style: "Temperature", CRS: "epsg:3857",
		MinLon: -10.123456789, MinLat: -5, MaxLon: 10, MaxLat: 5,
		Width: 256, Height: 256,
	})
	want := "gfs_tmp:temperature:EPSG:3857:-10.123457,-5.000000,10.000000,5.000000:256x256:latest:none"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildWithTimeAndElevation(t *testing.T) {
	got := Build(Request{
		Layer: "gfs", Style: "wind", CRS: "EPSG:3857",
		MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1,
		Width: 512, Height: 512,
		Time: "2026-07-30T00:00:00Z", ElevationCode: "2m",
	})
	want := "gfs:wind:EPSG:3857:0.000000,0.000000,1.000000,1.000000:512x512:2026-07-30T00:00:00Z:2m"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestInvalidationPrefix(t *testing.T) {
	got := InvalidationPrefix("GFS", "TMP")
	want := "wms:tile:gfs_tmp_*"
	if got != want {
		t.Errorf("InvalidationPrefix() = %q, want %q", got, want)
	}
}
