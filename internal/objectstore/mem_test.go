package objectstore

import (
	"context"
	"testing"

	"github.com/weatherwx/tileserve/internal/tileerr"
)

func TestMemClientGetRange(t *testing.T) {
	c := NewMemClient()
	c.Put("grids/gfs/20260730/00/TMP_2m_f000.zarr/1.0.0", []byte("0123456789"))

	got, err := c.GetRange(context.Background(), "grids/gfs/20260730/00/TMP_2m_f000.zarr/1.0.0", 2, 5)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if string(got) != "234" {
		t.Errorf("GetRange = %q, want %q", got, "234")
	}
}

func TestMemClientGetNotFound(t *testing.T) {
	c := NewMemClient()
	_, err := c.Get(context.Background(), "missing")
	if !tileerr.Is(err, tileerr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestMemClientList(t *testing.T) {
	c := NewMemClient()
	c.Put("grids/gfs/a", []byte("x"))
	c.Put("grids/gfs/b", []byte("y"))
	c.Put("grids/ecmwf/a", []byte("z"))

	paths, err := c.List(context.Background(), "grids/gfs/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("List returned %d paths, want 2", len(paths))
	}
}
