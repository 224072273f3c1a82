// Package bytespool recycles the buffers used to encode wire frames.
package bytespool

import (
	"bytes"
	"sync"
)

// maxRetained keeps a single huge frame from pinning memory in the pool.
const maxRetained = 64 << 10

var pool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// Get returns an empty buffer.
func Get() *bytes.Buffer {
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns b to the pool. The caller must not use b afterwards.
func Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxRetained {
		return
	}
	pool.Put(b)
}

// Copy returns the buffered bytes in a fresh slice that outlives b.
func Copy(b *bytes.Buffer) []byte {
	return append([]byte(nil), b.Bytes()...)
}
