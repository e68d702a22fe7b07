package compress

import "github.com/arloliu/cso/format"

// NoOpCompressor copies data through unchanged.
//
// A sector "compressed" with it is never smaller than the raw sector, so every
// sector ends up stored uncompressed. Useful for building reference images and
// for measuring writer overhead without codec cost.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a new no-operation codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Type returns format.CompressionNone.
func (c NoOpCompressor) Type() format.CompressionType {
	return format.CompressionNone
}

// Compress appends data to dst unchanged.
func (c NoOpCompressor) Compress(dst, data []byte) ([]byte, error) {
	return append(dst, data...), nil
}

// Decompress appends data to dst unchanged.
func (c NoOpCompressor) Decompress(dst, data []byte) ([]byte, error) {
	return append(dst, data...), nil
}
