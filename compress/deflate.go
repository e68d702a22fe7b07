package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/format"
	"github.com/klauspost/compress/flate"
)

// DefaultDeflateLevel is the level used by CreateCodec. Sectors are small and
// written once, so the best ratio is worth the CPU.
const DefaultDeflateLevel = flate.BestCompression

// DeflateCompressor produces raw DEFLATE streams (no zlib or gzip framing),
// which is the payload format CSO readers expect.
//
// Writers are pooled per compressor; a DeflateCompressor is safe for concurrent use.
type DeflateCompressor struct {
	level   int
	writers sync.Pool
	readers sync.Pool
}

var _ Codec = (*DeflateCompressor)(nil)

// NewDeflateCompressor creates a DEFLATE codec at the given level.
//
// Parameters:
//   - level: flate.HuffmanOnly, or flate.BestSpeed through flate.BestCompression
//
// Returns:
//   - *DeflateCompressor: New compressor
//   - error: ErrInvalidCompression if the level is out of range
func NewDeflateCompressor(level int) (*DeflateCompressor, error) {
	if level != flate.HuffmanOnly && (level < flate.BestSpeed || level > flate.BestCompression) {
		return nil, fmt.Errorf("%w: deflate level %d", errs.ErrInvalidCompression, level)
	}

	c := &DeflateCompressor{level: level}
	c.writers.New = func() any {
		w, err := flate.NewWriter(nil, level)
		if err != nil {
			// The level was validated above
			panic(fmt.Sprintf("failed to create deflate writer for pool: %v", err))
		}

		return w
	}

	return c, nil
}

// Type returns format.CompressionDeflate.
func (c *DeflateCompressor) Type() format.CompressionType {
	return format.CompressionDeflate
}

// Level returns the configured compression level.
func (c *DeflateCompressor) Level() int {
	return c.level
}

// Compress appends the raw DEFLATE encoding of data to dst.
func (c *DeflateCompressor) Compress(dst, data []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)

	w, _ := c.writers.Get().(*flate.Writer)
	defer c.writers.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate compression failed: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress appends the inflated form of a raw DEFLATE stream to dst.
func (c *DeflateCompressor) Decompress(dst, data []byte) ([]byte, error) {
	src := bytes.NewReader(data)

	var r io.ReadCloser
	if pooled, ok := c.readers.Get().(io.ReadCloser); ok {
		r = pooled
		if err := r.(flate.Resetter).Reset(src, nil); err != nil {
			return nil, fmt.Errorf("deflate decompression failed: %w", err)
		}
	} else {
		r = flate.NewReader(src)
	}
	defer c.readers.Put(r)

	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("deflate decompression failed: %w", err)
	}

	return buf.Bytes(), nil
}
