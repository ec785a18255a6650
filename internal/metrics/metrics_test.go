package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheResult(t *testing.T) {
	CacheHits.Reset()
	CacheMisses.Reset()

	RecordCacheResult("l1", true)
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("l1")); got != 1 {
		t.Errorf("CacheHits(l1) = %v, want 1", got)
	}

	RecordCacheResult("l2", false)
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("l2")); got != 1 {
		t.Errorf("CacheMisses(l2) = %v, want 1", got)
	}
}

func TestRecordRenderOnlyObservesDurationWhenRendered(t *testing.T) {
	RenderRequestsTotal.Reset()

	RecordRender("gfs_tmp", "rendered", 50*time.Millisecond)
	if got := testutil.ToFloat64(RenderRequestsTotal.WithLabelValues("rendered")); got != 1 {
		t.Errorf("RenderRequestsTotal(rendered) = %v, want 1", got)
	}

	RecordRender("gfs_tmp", "hit_l1", 0)
	if got := testutil.ToFloat64(RenderRequestsTotal.WithLabelValues("hit_l1")); got != 1 {
		t.Errorf("RenderRequestsTotal(hit_l1) = %v, want 1", got)
	}
}
