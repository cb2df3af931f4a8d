package heapscan

import "sync"

// DefaultChunkSize is the window read per process_vm_readv call.
const DefaultChunkSize = 4096

var windowBufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultChunkSize)
		return &b
	},
}

// getWindowBuffer returns a buffer of exactly size bytes. Its contents are
// whatever the previous user left there; callers only look at the prefix a
// read actually filled.
func getWindowBuffer(size int) *[]byte {
	buf := windowBufferPool.Get().(*[]byte)
	if cap(*buf) < size {
		b := make([]byte, size)
		return &b
	}
	*buf = (*buf)[:size]
	return buf
}

func freeWindowBuffer(buf *[]byte) {
	windowBufferPool.Put(buf)
}
