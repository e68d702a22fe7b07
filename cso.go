// Package cso writes CSO sector-compressed disc images.
//
// A CSO container stores a source image of 2048-byte sectors. Every sector is
// compressed independently and stored compressed only when that is smaller
// than the raw sector. An index of N+1 32-bit entries maps sector i to its
// stored offset, so a reader can seek to any sector without decoding the ones
// before it.
//
// # Container Layout
//
//	┌──────────────────────────────────────────────┐
//	│ Header (36 bytes)                            │
//	├──────────────────────────────────────────────┤
//	│ Index ((N+1) × 4 bytes, little-endian)       │
//	│  - bits 0-30: offset >> IndexShift           │
//	│  - bit 31: sector stored raw                 │
//	│  - entry N: end of data                      │
//	├──────────────────────────────────────────────┤
//	│ Padding to 1 << IndexShift                   │
//	├──────────────────────────────────────────────┤
//	│ Sector payloads, each aligned to             │
//	│ 1 << IndexShift                              │
//	└──────────────────────────────────────────────┘
//
// The header and index are written last, over a placeholder, once the final
// offsets are known.
//
// # Basic Usage
//
// Converting an image file:
//
//	src, _ := os.Open("game.iso")
//	st, _ := src.Stat()
//	dst, _ := os.Create("game.cso")
//
//	stats, err := cso.Convert(ctx, src, st.Size(), dst,
//	    cso.WithCodec(format.CompressionDeflate),
//	    cso.WithProgress(func(f float64) { fmt.Printf("%.0f%%\n", f*100) }),
//	)
//
// # Package Structure
//
// Convert wires the lower level packages together for the common case:
//
//   - section: header, index entry and layout planning
//   - compress: sector codecs (DEFLATE, LZ4)
//   - sector: per-sector compression on a bounded worker set
//   - output: reordering, batched aligned writes and finalization
//
// Use the output package directly to drive a session from your own event loop.
package cso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/cso/compress"
	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/format"
	"github.com/arloliu/cso/internal/aio"
	"github.com/arloliu/cso/internal/loop"
	"github.com/arloliu/cso/internal/options"
	"github.com/arloliu/cso/internal/pool"
	"github.com/arloliu/cso/output"
	"github.com/arloliu/cso/section"
	"github.com/arloliu/cso/sector"
	"github.com/rs/zerolog"
)

type config struct {
	codec       format.CompressionType
	poolSize    int
	maxBatch    int
	concurrency int
	logger      zerolog.Logger
	progress    func(fraction float64)
	sourceHash  io.Writer
}

// Option configures Convert.
type Option = options.Option[*config]

// WithCodec selects the sector codec. The default is DEFLATE; CompressionNone
// stores every sector raw without running a codec.
func WithCodec(ct format.CompressionType) Option {
	return options.New(func(c *config) error {
		if _, err := compress.GetCodec(ct); err != nil {
			return err
		}
		c.codec = ct

		return nil
	})
}

// WithPoolSize sets the number of sectors in flight.
func WithPoolSize(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: pool size %d", errs.ErrInvalidOption, n)
		}
		c.poolSize = n

		return nil
	})
}

// WithMaxBatch sets the maximum number of sectors merged into one write.
func WithMaxBatch(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max batch %d", errs.ErrInvalidOption, n)
		}
		c.maxBatch = n

		return nil
	})
}

// WithConcurrency bounds concurrent sector compressions. Zero means GOMAXPROCS.
func WithConcurrency(n int) Option {
	return options.New(func(c *config) error {
		if n < 0 {
			return fmt.Errorf("%w: concurrency %d", errs.ErrInvalidOption, n)
		}
		c.concurrency = n

		return nil
	})
}

// WithLogger sets the logger passed to the output session.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(c *config) {
		c.logger = logger
	})
}

// WithProgress registers a callback receiving the fraction of the source
// written after every batch. It runs on the conversion goroutine.
func WithProgress(fn func(fraction float64)) Option {
	return options.NoError(func(c *config) {
		c.progress = fn
	})
}

// WithSourceHash makes Convert write every source sector to w, in order, as it
// is read. Write errors from w are ignored.
func WithSourceHash(w io.Writer) Option {
	return options.NoError(func(c *config) {
		c.sourceHash = w
	})
}

// Convert compresses size bytes of src into a container written to dst, and
// returns once the header is written or the conversion failed.
//
// size must be a multiple of section.SectorSize. dst is written with
// positional writes only and is not closed.
//
// Returns:
//   - output.Stats: counters of the finished session
//   - error: a layout error, the first read, processing or write failure, or ctx.Err()
func Convert(ctx context.Context, src io.ReaderAt, size int64, dst *os.File, opts ...Option) (output.Stats, error) {
	cfg := &config{
		codec:    format.CompressionDeflate,
		poolSize: output.DefaultPoolSize,
		maxBatch: output.DefaultMaxBatch,
		logger:   zerolog.Nop(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return output.Stats{}, err
	}

	codec, err := compress.GetCodec(cfg.codec)
	if err != nil {
		return output.Stats{}, err
	}

	l := loop.New()

	var runnerOpts []sector.RunnerOption
	if cfg.concurrency > 0 {
		runnerOpts = append(runnerOpts, sector.WithConcurrency(cfg.concurrency))
	}
	runner, err := sector.NewRunner(ctx, l, codec, runnerOpts...)
	if err != nil {
		return output.Stats{}, err
	}

	session, err := output.New(
		func() output.Sector { return runner.NewSector() },
		output.WithPoolSize(cfg.poolSize),
		output.WithMaxBatch(cfg.maxBatch),
		output.WithLogger(cfg.logger),
	)
	if err != nil {
		return output.Stats{}, err
	}

	if err := session.SetDestination(aio.NewFileWriter(dst, l), size); err != nil {
		return output.Stats{}, err
	}

	r := &reader{
		src:     src,
		size:    size,
		session: session,
		hash:    cfg.sourceHash,
		raw:     cfg.codec == format.CompressionNone,
	}

	var convErr error
	stop := func(err error) {
		if convErr == nil {
			convErr = err
		}
		l.Stop()
	}

	session.OnProgress(func(fraction float64) {
		if cfg.progress != nil {
			cfg.progress(fraction)
		}

		if err := r.pump(); err != nil {
			stop(err)
		}
	})
	session.OnFinish(stop)

	l.Post(func() {
		if err := r.pump(); err != nil {
			stop(err)
		}
	})

	if err := l.Run(ctx); err != nil {
		return session.Stats(), err
	}

	return session.Stats(), convErr
}

// reader feeds the session in source order while it has free sectors. Each
// completed batch frees sectors and runs it again from the progress callback.
type reader struct {
	src       io.ReaderAt
	size      int64
	pos       int64
	session   *output.Output
	hash      io.Writer
	raw       bool
	finalized bool
}

// pump enqueues sectors until the pool is full or the source is exhausted,
// then requests finalization once.
func (r *reader) pump() error {
	for r.pos < r.size && !r.session.IsFull() {
		buf := pool.GetSectorBuffer()
		if n, err := r.src.ReadAt(buf, r.pos); n < len(buf) {
			pool.PutSectorBuffer(buf)
			return fmt.Errorf("read sector at %d: %w", r.pos, readError(err))
		}

		if r.hash != nil {
			_, _ = r.hash.Write(buf)
		}

		var err error
		if r.raw {
			err = r.session.EnqueueRaw(r.pos, buf)
		} else {
			err = r.session.Enqueue(r.pos, buf)
		}
		if err != nil {
			pool.PutSectorBuffer(buf)
			return err
		}
		r.pos += section.SectorSize
	}

	if r.pos == r.size && !r.finalized {
		r.finalized = true
		return r.session.Finalize()
	}

	return nil
}

func readError(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
