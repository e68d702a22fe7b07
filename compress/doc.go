// Package compress provides the per-sector codecs used when writing CSO containers.
//
// Every source sector is compressed independently so a reader can seek to any
// sector through the index and inflate just that sector. The writer keeps the
// compressed form only when it is strictly smaller than the raw sector.
//
// # Supported Algorithms
//
// **Deflate** (format.CompressionDeflate)
//
//	codec, _ := compress.NewDeflateCompressor(compress.DefaultDeflateLevel)
//	out, _ := codec.Compress(nil, sector)
//
// Raw DEFLATE without zlib framing. This is what CSO v1 readers (PPSSPP, PCSX2,
// PSP custom firmware) inflate.
//
// **LZ4** (format.CompressionLZ4)
//
//	codec := compress.NewLZ4Compressor()
//	out, _ := codec.Compress(nil, sector)
//
// Bare LZ4 blocks, as stored by ZSO images. Faster to decode, larger output.
//
// **NoOp** (format.CompressionNone)
//
// Copies data through. Every sector ends up stored raw.
//
// # Memory Management
//
// Compress and Decompress append to a caller supplied dst slice. The sector
// package passes dst[:0] of a buffer it owns for the lifetime of the sector, so a
// steady-state conversion does not allocate per sector. Encoder state (deflate
// writers, lz4 hash tables) is pooled with sync.Pool.
//
// # Thread Safety
//
// All codecs are safe for concurrent use; sectors are compressed in parallel.
package compress
