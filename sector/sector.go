// Package sector implements the unit of work of a container conversion: one
// source sector, compressed independently of every other sector.
//
// A Sector is long-lived. The output session allocates a fixed set of them up
// front and cycles each one through Free -> Processing -> Ready -> Free. While
// processing, the sector owns the raw buffer handed to it; Release gives the
// buffers back to the shared pools.
package sector

import (
	"context"
	"fmt"
	"runtime"

	"github.com/arloliu/cso/compress"
	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/internal/loop"
	"github.com/arloliu/cso/internal/options"
	"github.com/arloliu/cso/internal/pool"
	"golang.org/x/sync/semaphore"
)

// Runner holds what every Sector of a session shares: the codec, the loop that
// readiness callbacks are posted to, and the bound on concurrent compressions.
type Runner struct {
	ctx         context.Context //nolint: containedctx
	sched       loop.Scheduler
	codec       compress.Compressor
	sem         *semaphore.Weighted
	concurrency int
}

// RunnerOption configures a Runner.
type RunnerOption = options.Option[*Runner]

// WithConcurrency bounds how many sectors compress at the same time.
// The default is GOMAXPROCS.
func WithConcurrency(n int) RunnerOption {
	return options.New(func(r *Runner) error {
		if n <= 0 {
			return fmt.Errorf("%w: concurrency %d", errs.ErrInvalidOption, n)
		}
		r.concurrency = n

		return nil
	})
}

// NewRunner creates a Runner. Compressions still waiting for a slot when ctx is
// cancelled complete with an error.
func NewRunner(ctx context.Context, sched loop.Scheduler, codec compress.Compressor, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		ctx:         ctx,
		sched:       sched,
		codec:       codec,
		concurrency: runtime.GOMAXPROCS(0),
	}

	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}
	r.sem = semaphore.NewWeighted(int64(r.concurrency))

	return r, nil
}

// NewSector creates a free Sector bound to the runner.
func (r *Runner) NewSector() *Sector {
	return &Sector{runner: r}
}

// Sector is one source sector and its best stored representation.
//
// Accessors must only be called on the loop goroutine after the readiness
// callback has run, and before Release.
type Sector struct {
	runner *Runner

	pos        int64
	raw        []byte
	scratch    *pool.ByteBuffer
	best       []byte
	compressed bool
}

// Process takes ownership of buf, the raw sector at source position pos, and
// compresses it in the background. ready is posted to the runner's scheduler
// exactly once; a non-nil error wraps errs.ErrProcessingFailure.
func (s *Sector) Process(pos int64, buf []byte, ready func(err error)) {
	s.pos = pos
	s.raw = buf
	s.best = nil
	s.compressed = false

	go func() {
		err := s.compress()
		s.runner.sched.Post(func() { ready(err) })
	}()
}

func (s *Sector) compress() error {
	r := s.runner
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		return fmt.Errorf("%w: sector at %d: %w", errs.ErrProcessingFailure, s.pos, err)
	}
	defer r.sem.Release(1)

	if s.scratch == nil {
		s.scratch = pool.GetScratchBuffer()
	}

	out, err := r.codec.Compress(s.scratch.B[:0], s.raw)
	if err != nil {
		return fmt.Errorf("%w: sector at %d: %w", errs.ErrProcessingFailure, s.pos, err)
	}
	s.scratch.B = out

	if len(out) > 0 && len(out) < len(s.raw) {
		s.best = out
		s.compressed = true
	} else {
		s.best = s.raw
	}

	return nil
}

// Reserve takes ownership of buf and stores it raw without compressing.
// The sector is ready as soon as Reserve returns.
func (s *Sector) Reserve(pos int64, buf []byte) {
	s.pos = pos
	s.raw = buf
	s.best = buf
	s.compressed = false
}

// Pos returns the source position of the sector.
func (s *Sector) Pos() int64 {
	return s.pos
}

// BestBuffer returns the bytes to store: the compressed payload when it is
// smaller than the raw sector, the raw sector otherwise.
func (s *Sector) BestBuffer() []byte {
	return s.best
}

// BestSize returns len(BestBuffer()).
func (s *Sector) BestSize() int {
	return len(s.best)
}

// Compressed reports whether BestBuffer is the compressed payload.
func (s *Sector) Compressed() bool {
	return s.compressed
}

// Release returns the sector's buffers to the shared pools and resets it to
// the free state. Its buffers must not be referenced afterwards.
func (s *Sector) Release() {
	if s.raw != nil {
		pool.PutSectorBuffer(s.raw)
	}

	if s.scratch != nil {
		pool.PutScratchBuffer(s.scratch)
	}

	s.pos = 0
	s.raw = nil
	s.scratch = nil
	s.best = nil
	s.compressed = false
}
