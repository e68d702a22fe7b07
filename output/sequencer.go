package output

import (
	"fmt"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/section"
)

// handleReady is called with a sector whose processing just finished, or with
// nil after a batch write completed. It writes the next contiguous run of
// ready sectors if the run starts at the write cursor, and otherwise parks the
// sector in the reorder buffer.
func (o *Output) handleReady(s Sector) {
	if o.failed {
		if s != nil {
			o.recycle(s)
		}

		return
	}

	if s != nil {
		if s.Pos() != o.srcPos || o.writing {
			o.pending.put(s)
			return
		}
	} else {
		if o.writing {
			return
		}
		s = o.pending.take(o.srcPos)
		if s == nil {
			return
		}
	}

	o.writeBatch(o.collectBatch(s))
}

// collectBatch extends the run starting at first with the sectors that follow
// it in the reorder buffer, up to maxBatch sectors.
func (o *Output) collectBatch(first Sector) []Sector {
	batch := append(o.batch[:0], first)

	next := first.Pos() + section.SectorSize
	for len(batch) < o.cfg.maxBatch {
		s := o.pending.take(next)
		if s == nil {
			break
		}
		batch = append(batch, s)
		next += section.SectorSize
	}

	return batch
}

// writeBatch records the index entries for batch and issues one vectored write
// of the payloads, each followed by the padding that aligns the next one.
func (o *Output) writeBatch(batch []Sector) {
	start := o.dstPos
	pos := start
	bufs := o.bufs[:0]

	for _, s := range batch {
		best := s.BestBuffer()[:s.BestSize()]
		bufs = append(bufs, best)

		o.index[s.Pos()>>section.SectorShift] = uint32(section.NewIndexEntry(pos, o.layout.IndexShift, s.Compressed()))

		pos += int64(len(best))
		aligned, pad := o.layout.AlignUp(pos)
		if pad != 0 {
			bufs = append(bufs, o.padding[:pad])
			pos = aligned
		}
	}

	total := pos - start
	o.writing = true

	o.log.Debug().
		Int64("src_pos", o.srcPos).
		Int("sectors", len(batch)).
		Int64("dst_pos", start).
		Int64("bytes", total).
		Msg("writing batch")

	o.dst.WriteV(bufs, start, func(n int64, err error) {
		o.onBatchWritten(batch, start, total, n, err)
	})
}

// onBatchWritten releases the batch and advances both cursors, then drains any
// run that became contiguous while the write was in flight.
func (o *Output) onBatchWritten(batch []Sector, start, total, n int64, err error) {
	o.writing = false

	count := len(batch)
	compressed := 0
	for i, s := range batch {
		if s.Compressed() {
			compressed++
		}
		o.recycle(s)
		batch[i] = nil
	}

	if o.failed {
		return
	}

	if err != nil || n != total {
		o.fail(writeError(start, total, n, err))
		return
	}

	o.srcPos += int64(count) * section.SectorSize
	o.dstPos = start + total

	o.stats.Sectors += count
	o.stats.CompressedSectors += compressed
	o.stats.Batches++
	o.stats.DataBytes += total

	if o.progress != nil {
		o.progress(float64(o.srcPos) / float64(o.srcSize))
	}

	o.handleReady(nil)
	o.maybeFlush()
}

func writeError(off, want, got int64, err error) error {
	if err != nil {
		return fmt.Errorf("%w: wrote %d of %d bytes at offset %d: %w", errs.ErrWriteSizeMismatch, got, want, off, err)
	}

	return fmt.Errorf("%w: wrote %d of %d bytes at offset %d", errs.ErrWriteSizeMismatch, got, want, off)
}
