// Package output is the write side of a CSO conversion.
//
// An Output accepts raw source sectors, has each one compressed independently,
// puts them back into source order regardless of the order compression
// finishes in, writes them at aligned destination offsets in small batches and
// records each sector's offset in the index. Finalize writes the header and
// the completed index over the placeholder reserved at the start of the file.
//
// # Threading
//
// Output is not safe for concurrent use. Its methods, and every completion
// callback of its collaborators (Sector readiness, Destination writes), must
// run on one goroutine, normally a loop.Loop. Only one batch write is ever in
// flight, so the cursors and the index are mutated strictly in order.
//
// # Usage
//
//	out, _ := output.New(func() output.Sector { return runner.NewSector() })
//	out.OnProgress(func(f float64) { ... })
//	out.OnFinish(func(err error) { ... })
//	_ = out.SetDestination(aio.NewFileWriter(f, l), size)
//	for pos := int64(0); pos < size && !out.IsFull(); pos += section.SectorSize {
//	    _ = out.Enqueue(pos, buf)
//	}
//	_ = out.Finalize()
package output

import (
	"errors"
	"fmt"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/internal/options"
	"github.com/arloliu/cso/section"
	"github.com/rs/zerolog"
)

// Sector is a reusable unit of work holding one source sector.
//
// Process takes ownership of buf and calls ready exactly once, on the session
// goroutine, when the best representation is known. Reserve stores buf raw and
// is ready on return.
type Sector interface {
	Process(pos int64, buf []byte, ready func(err error))
	Reserve(pos int64, buf []byte)
	Pos() int64
	BestBuffer() []byte
	BestSize() int
	Compressed() bool
	Release()
}

// SectorFactory creates a free Sector. It is called once per pool slot.
type SectorFactory func() Sector

// Destination is the asynchronous write primitive of the output file.
//
// WriteV writes bufs back to back starting at off and calls done, on the
// session goroutine, with the number of bytes written.
type Destination interface {
	WriteV(bufs [][]byte, off int64, done func(n int64, err error))
}

// ProgressFunc receives the fraction of source bytes durably written.
type ProgressFunc func(fraction float64)

// FinishFunc receives nil once the container is complete, or the first fatal error.
type FinishFunc func(err error)

// Stats counts what a session has written so far.
type Stats struct {
	Sectors           int   // sectors written
	CompressedSectors int   // sectors stored compressed
	Batches           int   // data writes issued
	DataBytes         int64 // payload and padding bytes written
	MaxReorderDepth   int   // most sectors held waiting for their turn
}

// Output is one conversion session.
type Output struct {
	cfg *config
	log zerolog.Logger

	pool     *sectorPool
	pending  *reorderBuffer
	inflight map[int64]struct{} // positions checked out and not yet written

	dst     Destination
	layout  section.Layout
	srcSize int64
	srcPos  int64 // next source position to be written
	dstPos  int64 // next free destination offset
	index   []uint32
	padding []byte

	batch []Sector
	bufs  [][]byte

	writing           bool
	finalizeRequested bool
	finished          bool
	failed            bool

	progress ProgressFunc
	finish   FinishFunc
	stats    Stats
}

// New creates a session whose sector pool is filled by factory.
func New(factory SectorFactory, opts ...Option) (*Output, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil sector factory", errs.ErrInvalidOption)
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Output{
		cfg:      cfg,
		log:      cfg.logger.With().Str("component", "output").Logger(),
		pool:     newSectorPool(cfg.poolSize, factory),
		pending:  newReorderBuffer(cfg.poolSize),
		inflight: make(map[int64]struct{}, cfg.poolSize),
		batch:    make([]Sector, 0, cfg.maxBatch),
		bufs:     make([][]byte, 0, 2*cfg.maxBatch),
	}, nil
}

// SetDestination binds the session to dst for a source of sourceSize bytes
// and plans the container layout.
//
// Returns:
//   - error: ErrDestinationSet if called twice, or a layout error
//     (ErrUnalignedSourceSize, ErrNegativeSourceSize, ErrSourceTooLarge)
func (o *Output) SetDestination(dst Destination, sourceSize int64) error {
	if o.dst != nil {
		return errs.ErrDestinationSet
	}

	layout, err := section.NewLayout(sourceSize)
	if err != nil {
		return err
	}

	o.dst = dst
	o.layout = layout
	o.srcSize = sourceSize
	o.srcPos = 0
	o.dstPos = layout.DataStart
	o.index = make([]uint32, layout.IndexEntries())
	o.padding = make([]byte, layout.Align)

	o.log.Debug().
		Int64("source_size", sourceSize).
		Int("sectors", layout.SectorCount).
		Uint32("index_shift", layout.IndexShift).
		Int64("data_start", layout.DataStart).
		Msg("destination set")

	return nil
}

// OnProgress registers the progress callback.
func (o *Output) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

// OnFinish registers the callback that receives the single finish signal.
func (o *Output) OnFinish(fn FinishFunc) {
	o.finish = fn
}

// IsFull reports whether every sector is checked out. Callers must not
// enqueue while it returns true; releases happen after each batch write, just
// before the progress callback fires.
func (o *Output) IsFull() bool {
	return o.pool.full()
}

// Enqueue hands the raw sector buf at source position pos to the session,
// which compresses it and writes it once every earlier sector is written.
// Ownership of buf passes to the session.
//
// Returns:
//   - error: ErrPoolExhausted when IsFull, ErrInvalidSectorPos for a position
//     outside the source or already written, or a session state error
func (o *Output) Enqueue(pos int64, buf []byte) error {
	s, err := o.checkout(pos)
	if err != nil {
		return err
	}

	s.Process(pos, buf, func(err error) {
		o.onProcessed(s, err)
	})

	return nil
}

// EnqueueRaw is Enqueue without compression: the sector is stored raw and is
// ready immediately.
func (o *Output) EnqueueRaw(pos int64, buf []byte) error {
	s, err := o.checkout(pos)
	if err != nil {
		return err
	}

	s.Reserve(pos, buf)
	o.handleReady(s)

	return nil
}

func (o *Output) checkout(pos int64) (Sector, error) {
	switch {
	case o.failed:
		return nil, errs.ErrSessionFailed
	case o.dst == nil:
		return nil, errs.ErrNoDestination
	case o.finished:
		return nil, errs.ErrAlreadyFinalized
	}

	if _, err := o.layout.SectorIndex(pos); err != nil {
		return nil, err
	}

	if pos < o.srcPos {
		return nil, fmt.Errorf("%w: %d already written", errs.ErrInvalidSectorPos, pos)
	}

	if _, ok := o.inflight[pos]; ok {
		return nil, fmt.Errorf("%w: %d already enqueued", errs.ErrInvalidSectorPos, pos)
	}

	s, err := o.pool.acquire()
	if err != nil {
		return nil, err
	}
	o.inflight[pos] = struct{}{}

	return s, nil
}

// recycle returns a checked out sector to the pool.
func (o *Output) recycle(s Sector) {
	delete(o.inflight, s.Pos())
	o.pool.release(s)
}

// onProcessed is the readiness callback of Enqueue.
func (o *Output) onProcessed(s Sector, err error) {
	if o.failed {
		o.recycle(s)
		return
	}

	if err != nil {
		if !errors.Is(err, errs.ErrProcessingFailure) {
			err = fmt.Errorf("%w: sector at %d: %w", errs.ErrProcessingFailure, s.Pos(), err)
		}
		o.recycle(s)
		o.fail(err)

		return
	}

	o.handleReady(s)
}

// Stats returns the session counters.
func (o *Output) Stats() Stats {
	st := o.stats
	st.MaxReorderDepth = o.pending.maxDepth

	return st
}

// Layout returns the container plan. It is the zero Layout before SetDestination.
func (o *Output) Layout() section.Layout {
	return o.layout
}

// Index returns a copy of the index as built so far.
func (o *Output) Index() []uint32 {
	return append([]uint32(nil), o.index...)
}
