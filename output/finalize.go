package output

import (
	"fmt"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/section"
)

// Finalize requests the header and index write that completes the container.
//
// If sectors are still outstanding the write is deferred until the last of
// them is written; the finish callback fires when it completes.
//
// Returns:
//   - error: ErrNoDestination, ErrSessionFailed or ErrAlreadyFinalized
func (o *Output) Finalize() error {
	switch {
	case o.dst == nil:
		return errs.ErrNoDestination
	case o.failed:
		return errs.ErrSessionFailed
	case o.finalizeRequested:
		return errs.ErrAlreadyFinalized
	}

	o.finalizeRequested = true
	o.maybeFlush()

	return nil
}

// maybeFlush starts the header write once finalization was requested and
// every source sector is on disk.
func (o *Output) maybeFlush() {
	if !o.finalizeRequested || o.writing || o.finished || o.failed || o.srcPos != o.srcSize {
		return
	}

	o.flush()
}

// flush writes [header][index] at offset 0, over the placeholder.
func (o *Output) flush() {
	shift := o.layout.IndexShift
	o.index[o.layout.SectorCount] = uint32(o.dstPos >> shift) //nolint: gosec

	header := section.NewHeader(o.srcSize, shift).Bytes()
	index := section.IndexBytes(o.index)
	total := int64(len(header) + len(index))

	o.writing = true
	o.finished = true

	o.log.Debug().
		Int64("end", o.dstPos).
		Int("index_entries", len(o.index)).
		Msg("writing header and index")

	o.dst.WriteV([][]byte{header, index}, 0, func(n int64, err error) {
		o.writing = false
		if o.failed {
			return
		}

		if err != nil || n != total {
			o.fail(fmt.Errorf("unable to write header data: %w", writeError(0, total, n, err)))
			return
		}

		o.log.Debug().
			Int("sectors", o.stats.Sectors).
			Int("compressed", o.stats.CompressedSectors).
			Int64("size", o.dstPos).
			Msg("container finalized")

		if o.finish != nil {
			o.finish(nil)
		}
	})
}

// fail reports err through the finish callback. Only the first failure is
// reported; afterwards the session issues no I/O and no progress.
func (o *Output) fail(err error) {
	if o.failed {
		return
	}
	o.failed = true

	o.log.Error().Err(err).
		Int64("src_pos", o.srcPos).
		Int64("dst_pos", o.dstPos).
		Msg("output session failed")

	if o.finish != nil {
		o.finish(err)
	}
}
