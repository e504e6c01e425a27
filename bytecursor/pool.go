package bytecursor

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 64 * 1024 // max retained capacity in bytes
	poolInitCap = 1024
)

// writer pool for encoders
var cursorPool = sync.Pool{
	New: func() any {
		return New(poolInitCap)
	},
}

// Get returns an empty writer cursor from the pool.
func Get() *Cursor {
	c := cursorPool.Get().(*Cursor)
	c.Reset()
	return c
}

// Put returns a writer cursor to the pool. Bytes previously returned by the
// cursor must not be used afterwards.
func Put(c *Cursor) {
	if c == nil || c.fixed || c.Cap() > poolMaxCap {
		return // reject readers and oversized buffers
	}
	c.Reset()
	cursorPool.Put(c)
}
