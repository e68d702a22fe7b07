package compress

import (
	"fmt"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/format"
)

// Compressor compresses a single sector payload.
//
// Memory management:
//   - The compressed bytes are appended to dst, which is returned extended
//   - Passing dst[:0] of a reused buffer avoids allocation per sector
//   - The input slice is not modified
type Compressor interface {
	// Type returns the compression type the compressor produces.
	Type() format.CompressionType

	// Compress appends the compressed form of data to dst.
	Compress(dst, data []byte) ([]byte, error)
}

// Decompressor inverts a Compressor of the same type.
//
// The container writer never decompresses; decompressors exist so the written
// payloads can be verified.
type Decompressor interface {
	// Decompress appends the decompressed form of data to dst.
	//
	// Returns an error if the data is corrupted or was produced by a different codec.
	Decompress(dst, data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Deflate or LZ4)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: ErrInvalidCompression for unknown types
func CreateCodec(compressionType format.CompressionType) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionDeflate:
		return NewDeflateCompressor(DefaultDeflateLevel)
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone:    NewNoOpCompressor(),
	format.CompressionDeflate: mustDeflate(DefaultDeflateLevel),
	format.CompressionLZ4:     NewLZ4Compressor(),
}

// GetCodec retrieves a built-in, shared Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compressionType)
}

func mustDeflate(level int) *DeflateCompressor {
	c, err := NewDeflateCompressor(level)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in deflate level %d: %v", level, err))
	}

	return c
}
