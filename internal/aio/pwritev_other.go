//go:build !linux

package aio

import "os"

// pwritev writes the first buffer at off. writeAll calls it again for the rest.
func pwritev(f *os.File, bufs [][]byte, off int64) (int, error) {
	return f.WriteAt(bufs[0], off)
}
