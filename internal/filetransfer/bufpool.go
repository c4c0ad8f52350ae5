package filetransfer

import "sync"

// BytePool rents and returns variable-length byte slices, grounded on
// the teacher's internal/gameserver/bufpool.go sync.Pool wrapper, used
// here for upload chunks copied off the transport thread (spec.md
// §4.6 "incoming chunks are copied into a rented byte buffer").
type BytePool struct {
	pool sync.Pool
}

func NewBytePool(defaultCap int) *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, defaultCap)
				return &b
			},
		},
	}
}

// Get returns a slice of length size, reusing the pooled backing array
// when its capacity is large enough.
func (p *BytePool) Get(size int) []byte {
	b := *p.pool.Get().(*[]byte)
	if cap(b) < size {
		b = make([]byte, 0, size)
	}
	return b[:size]
}

// Put returns b to the pool for reuse.
func (p *BytePool) Put(b []byte) {
	b = b[:0]
	p.pool.Put(&b)
}
