// Package pool provides chunk buffer reuse for fingerprinting and multipart uploads.
//
// Both consumers read files in chunk-size slices; with a worker pool running
// several files at once the buffers are large enough that reuse matters.
package pool

import (
	"sync"
)

// ChunkPool manages reusable buffers of one fixed chunk size.
type ChunkPool struct {
	size int
	pool *sync.Pool
}

// NewChunkPool creates a pool handing out buffers of exactly size bytes.
func NewChunkPool(size int) *ChunkPool {
	return &ChunkPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the buffer size handed out by the pool.
func (p *ChunkPool) Size() int {
	return p.size
}

// Get returns a full-length buffer from the pool.
// The caller is responsible for calling Put to return the buffer to the pool.
func (p *ChunkPool) Get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	return (*bufPtr)[:p.size]
}

// Put returns a buffer to the pool.
// Buffers of a different capacity are dropped.
func (p *ChunkPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

var (
	poolsMu sync.Mutex
	pools   = map[int]*ChunkPool{}
)

// ForSize returns the shared pool for the given chunk size.
func ForSize(size int) *ChunkPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	p, ok := pools[size]
	if !ok {
		p = NewChunkPool(size)
		pools[size] = p
	}
	return p
}
