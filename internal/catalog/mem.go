package catalog

import (
	"sort"
	"sync"
	"time"
)

// MemClient is an in-memory Client for tests, with in-process fan-out of
// ingestion events instead of Redis Pub/Sub.
type MemClient struct {
	mu        sync.RWMutex
	records   []DatasetRecord
	listeners []func(IngestionEvent)
}

func NewMemClient() *MemClient {
	return &MemClient{}
}

// Seed adds a dataset record, as a test fixture would.
func (m *MemClient) Seed(rec DatasetRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *MemClient) FindDataset(q Query) (DatasetRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []DatasetRecord
	for _, r := range m.records {
		if r.Model == q.Model && r.Parameter == q.Parameter && r.Level == q.Level {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return DatasetRecord{}, false, nil
	}

	if q.Latest {
		sort.Slice(candidates, func(i, j int) bool {
			if !candidates[i].ReferenceTime.Equal(candidates[j].ReferenceTime) {
				return candidates[i].ReferenceTime.After(candidates[j].ReferenceTime)
			}
			return candidates[i].ForecastHour < candidates[j].ForecastHour
		})
		return candidates[0], true, nil
	}

	for _, r := range candidates {
		if r.ReferenceTime.Equal(q.RefTime) && r.ForecastHour == q.ForecastHour {
			return r, true, nil
		}
	}
	return DatasetRecord{}, false, nil
}

func (m *MemClient) ListReferenceTimes(model, parameter, level string) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, r := range m.records {
		if r.Model == model && r.Parameter == parameter && r.Level == level && !seen[r.ReferenceTime] {
			seen[r.ReferenceTime] = true
			out = append(out, r.ReferenceTime)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *MemClient) Subscribe(onIngested func(IngestionEvent)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, onIngested)
	idx := len(m.listeners) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.listeners[idx] = nil
	}, nil
}

// Publish fans an ingestion event out to every subscriber, synchronously,
// for deterministic tests.
func (m *MemClient) Publish(ev IngestionEvent) {
	m.mu.RLock()
	listeners := make([]func(IngestionEvent), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		if l != nil {
			l(ev)
		}
	}
}
