// Package hash computes the xxHash64 digest of a source image while it is read.
package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest accumulates the xxHash64 of a byte stream fed in order.
type Digest struct {
	d *xxhash.Digest
	n int64
}

// NewDigest creates an empty Digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// Write adds p to the stream. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	n, _ := d.d.Write(p)
	d.n += int64(n)

	return n, nil
}

// Sum64 returns the digest of everything written so far.
func (d *Digest) Sum64() uint64 {
	return d.d.Sum64()
}

// Len returns the number of bytes written.
func (d *Digest) Len() int64 {
	return d.n
}

// String formats the digest as 16 hex digits.
func (d *Digest) String() string {
	return fmt.Sprintf("%016x", d.Sum64())
}

// Sum computes the xxHash64 of data in one call.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
