package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/weatherwx/tileserve/internal/tileerr"
)

// MemClient is an in-memory Client used by tests so they never require a
// live S3 endpoint.
type MemClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemClient constructs an empty MemClient.
func NewMemClient() *MemClient {
	return &MemClient{objects: make(map[string][]byte)}
}

// Put seeds an object, as a test fixture would.
func (m *MemClient) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
}

func (m *MemClient) Get(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, tileerr.New(tileerr.NotFound, "objectstore.MemClient.Get", nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemClient) GetRange(ctx context.Context, path string, start, end int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, tileerr.New(tileerr.NotFound, "objectstore.MemClient.GetRange", nil)
	}
	if start < 0 || end > int64(len(data)) || start > end {
		return nil, tileerr.New(tileerr.InvalidInput, "objectstore.MemClient.GetRange", nil)
	}
	out := make([]byte, end-start)
	copy(out, data[start:end])
	return out, nil
}

func (m *MemClient) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for p := range m.objects {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
