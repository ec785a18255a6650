package renderer

import "sync"

// bufferPool reuses expanded-output float32 buffers across renders, keyed
// by buffer length, so repeated same-size tile renders don't churn the
// allocator on the hot path. Adapted from the teacher's RGBA buffer pool.
type bufferPool struct {
	pools sync.Map // map[int]*sync.Pool
}

var floatBufferPool bufferPool

func (p *bufferPool) get(n int) []float32 {
	v, ok := p.pools.Load(n)
	if !ok {
		v, _ = p.pools.LoadOrStore(n, &sync.Pool{
			New: func() any { return make([]float32, n) },
		})
	}
	buf := v.(*sync.Pool).Get().([]float32)
	return buf[:n]
}

func (p *bufferPool) put(buf []float32) {
	n := cap(buf)
	v, ok := p.pools.Load(n)
	if !ok {
		return
	}
	v.(*sync.Pool).Put(buf[:cap(buf)])
}
