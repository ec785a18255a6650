package l1cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Set("k1", Entry{Bytes: []byte("abc"), TTL: time.Minute, InsertedAt: time.Now()})

	e, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(e.Bytes) != "abc" {
		t.Errorf("Bytes = %q, want %q", e.Bytes, "abc")
	}
}

func TestGetEvictsExpiredEntry(t *testing.T) {
	c, _ := New(4)
	c.Set("k1", Entry{Bytes: []byte("x"), TTL: time.Millisecond, InsertedAt: time.Now().Add(-time.Hour)})

	if _, ok := c.Get("k1"); ok {
		t.Error("expected an expired entry to miss")
	}
	if c.Len() != 0 {
		t.Error("expected the expired entry to be evicted on access")
	}
}

func TestDeletePattern(t *testing.T) {
	c, _ := New(8)
	c.Set("gfs:tmp:a", Entry{TTL: time.Minute, InsertedAt: time.Now()})
	c.Set("gfs:tmp:b", Entry{TTL: time.Minute, InsertedAt: time.Now()})
	c.Set("ecmwf:wind:a", Entry{TTL: time.Minute, InsertedAt: time.Now()})

	n := c.DeletePattern(func(key string) bool {
		return len(key) >= 7 && key[:7] == "gfs:tmp"
	})
	if n != 2 {
		t.Errorf("DeletePattern removed %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
