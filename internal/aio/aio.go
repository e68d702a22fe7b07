// Package aio implements the asynchronous positional write primitive the output
// session writes through.
//
// A write is a list of buffers laid out back to back starting at a file offset.
// The write runs on its own goroutine; its completion is posted to a
// loop.Scheduler so the caller observes it on the loop goroutine.
package aio

import (
	"fmt"
	"io"
	"os"

	"github.com/arloliu/cso/internal/loop"
)

// FileWriter issues vectored positional writes against one open file.
type FileWriter struct {
	file  *os.File
	sched loop.Scheduler
}

// NewFileWriter creates a writer for file whose completions run on sched.
//
// The writer does not take ownership of file; the caller closes it after the
// session has finished.
func NewFileWriter(file *os.File, sched loop.Scheduler) *FileWriter {
	return &FileWriter{file: file, sched: sched}
}

// WriteV writes bufs contiguously at off and posts done with the total number
// of bytes written and the error that stopped the write early, if any.
//
// The buffers must not be modified until done runs.
func (w *FileWriter) WriteV(bufs [][]byte, off int64, done func(n int64, err error)) {
	go func() {
		n, err := writeAll(w.file, bufs, off)
		if err != nil {
			err = fmt.Errorf("write %s at offset %d: %w", w.file.Name(), off, err)
		}

		w.sched.Post(func() { done(n, err) })
	}()
}

// writeAll keeps issuing vectored writes until every buffer is written or the
// kernel reports an error.
func writeAll(f *os.File, bufs [][]byte, off int64) (int64, error) {
	var total int64

	// advance rewrites the head buffer in place, so work on a private copy.
	bufs = trimEmpty(append([][]byte(nil), bufs...))
	for len(bufs) > 0 {
		n, err := pwritev(f, bufs, off+total)
		total += int64(n)
		if err != nil {
			return total, err
		}

		if n == 0 {
			return total, io.ErrShortWrite
		}

		bufs = advance(bufs, n)
	}

	return total, nil
}

// advance consumes n written bytes from the front of bufs.
func advance(bufs [][]byte, n int) [][]byte {
	for n > 0 && len(bufs) > 0 {
		if n < len(bufs[0]) {
			bufs[0] = bufs[0][n:]
			break
		}
		n -= len(bufs[0])
		bufs = bufs[1:]
	}

	return trimEmpty(bufs)
}

func trimEmpty(bufs [][]byte) [][]byte {
	for len(bufs) > 0 && len(bufs[0]) == 0 {
		bufs = bufs[1:]
	}

	return bufs
}
