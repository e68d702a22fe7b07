package compress

import (
	"errors"
	"slices"
	"sync"

	"github.com/arloliu/cso/format"
	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains a hash table that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor produces bare LZ4 blocks, the payload format of ZSO images.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Type returns format.CompressionLZ4.
func (c LZ4Compressor) Type() format.CompressionType {
	return format.CompressionLZ4
}

// Compress appends the LZ4 block encoding of data to dst.
//
// Uses a pooled lz4.Compressor for better performance.
func (c LZ4Compressor) Compress(dst, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return dst, nil
	}

	start := len(dst)
	bound := lz4.CompressBlockBound(len(data))
	dst = slices.Grow(dst, bound)[:start+bound]

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[start:])
	if err != nil {
		return nil, err
	}

	return dst[:start+n], nil
}

// Decompress appends the decoded LZ4 block to dst.
//
// The decoded size is not stored in the block, so the output buffer starts at
// 4x the input and doubles on ErrInvalidSourceShortBuffer up to maxSize.
func (c LZ4Compressor) Decompress(dst, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return dst, nil
	}

	start := len(dst)
	bufSize := len(data) * 4
	const maxSize = 16 * 1024 * 1024

	for bufSize <= maxSize {
		buf := slices.Grow(dst, bufSize)[:start+bufSize]
		n, err := lz4.UncompressBlock(data, buf[start:])
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && bufSize < maxSize {
				bufSize *= 2
				continue
			}

			return nil, err
		}

		return buf[:start+n], nil
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}
