//go:build linux

package aio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// maxIOV bounds the number of buffers passed to a single pwritev call.
const maxIOV = 1024

// pwritev writes bufs at off with a single vectored system call.
func pwritev(f *os.File, bufs [][]byte, off int64) (int, error) {
	if len(bufs) > maxIOV {
		bufs = bufs[:maxIOV]
	}

	for {
		n, err := unix.Pwritev(int(f.Fd()), bufs, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if n < 0 {
			n = 0
		}

		return n, err
	}
}
