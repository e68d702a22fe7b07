package pool

import "sync"

// Buffer sizes for sector payloads.
const (
	SectorBufferSize          = 2048      // raw source sector
	ScratchBufferDefaultSize  = 4096      // compressed output; room for codec expansion of incompressible data
	ScratchBufferMaxThreshold = 1024 * 64 // larger scratch buffers are not retained
)

// ByteBuffer wraps a byte slice so it can travel through a sync.Pool without
// allocating a new slice header on every Put.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// Buffers whose capacity grew beyond maxThreshold are dropped on Put instead of
// being retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	sectorPool  = NewByteBufferPool(SectorBufferSize, SectorBufferSize)
	scratchPool = NewByteBufferPool(ScratchBufferDefaultSize, ScratchBufferMaxThreshold)
)

// GetSectorBuffer returns a SectorBufferSize byte slice for one raw source sector.
//
// The contents are undefined; callers overwrite the whole sector.
func GetSectorBuffer() []byte {
	return sectorPool.Get().B[:SectorBufferSize]
}

// PutSectorBuffer returns a slice obtained from GetSectorBuffer.
//
// Slices with a different capacity are ignored.
func PutSectorBuffer(b []byte) {
	if cap(b) != SectorBufferSize {
		return
	}

	sectorPool.Put(&ByteBuffer{B: b})
}

// GetScratchBuffer retrieves an empty buffer for compressed sector output.
func GetScratchBuffer() *ByteBuffer {
	return scratchPool.Get()
}

// PutScratchBuffer returns a buffer obtained from GetScratchBuffer.
func PutScratchBuffer(bb *ByteBuffer) {
	scratchPool.Put(bb)
}
