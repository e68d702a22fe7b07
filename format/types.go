package format

import "strings"

// CompressionType identifies the codec a sector payload is compressed with.
type CompressionType uint8

const (
	CompressionNone    CompressionType = 0x1 // CompressionNone stores every sector raw.
	CompressionDeflate CompressionType = 0x2 // CompressionDeflate is raw DEFLATE, the CSO v1 payload codec.
	CompressionLZ4     CompressionType = 0x3 // CompressionLZ4 is an LZ4 block, the ZSO payload codec.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionDeflate:
		return "Deflate"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompressionType maps a codec name, in any case, to its CompressionType.
func ParseCompressionType(name string) (CompressionType, bool) {
	switch strings.ToLower(name) {
	case "none":
		return CompressionNone, true
	case "deflate":
		return CompressionDeflate, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}
