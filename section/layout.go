package section

import (
	"fmt"
	"math"

	"github.com/arloliu/cso/errs"
)

// Layout is the destination plan for one source image.
//
// It is computed once, before any sector is written, from the worst case where
// no sector compresses. That bound keeps IndexShift fixed for the whole session.
type Layout struct {
	// SourceSize is the total number of source bytes.
	SourceSize int64
	// SectorCount is the number of source sectors (N).
	SectorCount int
	// IndexShift is the right shift applied to destination offsets in the index.
	IndexShift uint32
	// Align is 1 << IndexShift. Every sector payload starts on a multiple of it.
	Align int64
	// PlaceholderSize is the size of the header plus N+1 index entries.
	PlaceholderSize int64
	// DataStart is PlaceholderSize rounded up to Align; the first sector goes here.
	DataStart int64
}

// NewLayout plans the container for a source of sourceSize bytes.
//
// Returns:
//   - Layout: the plan
//   - error: ErrNegativeSourceSize, ErrUnalignedSourceSize or ErrSourceTooLarge
func NewLayout(sourceSize int64) (Layout, error) {
	if sourceSize < 0 {
		return Layout{}, fmt.Errorf("%w: %d", errs.ErrNegativeSourceSize, sourceSize)
	}

	if sourceSize&(SectorSize-1) != 0 {
		return Layout{}, fmt.Errorf("%w: %d", errs.ErrUnalignedSourceSize, sourceSize)
	}

	sectors := sourceSize >> SectorShift
	if sectors >= MaxIndexOffset {
		return Layout{}, fmt.Errorf("%w: %d sectors", errs.ErrSourceTooLarge, sectors)
	}

	l := Layout{
		SourceSize:      sourceSize,
		SectorCount:     int(sectors),
		PlaceholderSize: HeaderSize + (sectors+1)*IndexEntrySize,
	}

	shift, err := WorstCaseShift(l.PlaceholderSize + sourceSize)
	if err != nil {
		return Layout{}, err
	}

	// The worst case ignores alignment padding. Bump the shift until the padded
	// end of data is still representable.
	for !l.fits(shift) {
		shift++
		if shift > maxShiftBits-minShiftBits {
			return Layout{}, fmt.Errorf("%w: %d bytes", errs.ErrSourceTooLarge, sourceSize)
		}
	}

	l.IndexShift = shift
	l.Align = 1 << shift
	l.DataStart, _ = l.AlignUp(l.PlaceholderSize)

	return l, nil
}

// WorstCaseShift returns the minimal shift that makes worstSize representable
// in 31 bits: the smallest i in [31, 62] with worstSize < 2^i gives i-31.
func WorstCaseShift(worstSize int64) (uint32, error) {
	for i := minShiftBits; i <= maxShiftBits; i++ {
		if worstSize < int64(1)<<i {
			return uint32(i - minShiftBits), nil //nolint: gosec
		}
	}

	return 0, fmt.Errorf("%w: %d bytes", errs.ErrSourceTooLarge, worstSize)
}

// fits reports whether the largest possible end offset, padding included,
// survives a right shift into 31 bits.
func (l Layout) fits(shift uint32) bool {
	align := int64(1) << shift
	start := (l.PlaceholderSize + align - 1) &^ (align - 1)

	sectors := int64(l.SectorCount)
	var end int64
	if align <= SectorSize {
		// Raw sectors keep alignment and a compressed sector plus padding never
		// exceeds SectorSize.
		end = start + l.SourceSize
	} else {
		// Every sector, raw or not, occupies exactly one alignment quantum.
		if sectors > (math.MaxInt64-start)/align {
			return false
		}
		end = start + sectors*align
	}

	return end>>shift <= MaxIndexOffset
}

// AlignUp rounds pos up to the next multiple of Align.
//
// Returns:
//   - int64: the aligned position
//   - int64: the number of padding bytes added
func (l Layout) AlignUp(pos int64) (int64, int64) {
	off := pos & (l.Align - 1)
	if off == 0 {
		return pos, 0
	}

	pad := l.Align - off

	return pos + pad, pad
}

// IndexEntries returns the number of index slots, N+1.
func (l Layout) IndexEntries() int {
	return l.SectorCount + 1
}

// IndexSize returns the byte size of the index region.
func (l Layout) IndexSize() int64 {
	return int64(l.IndexEntries()) * IndexEntrySize
}

// SectorIndex returns the index slot for the sector at source position pos.
func (l Layout) SectorIndex(pos int64) (int, error) {
	if pos < 0 || pos >= l.SourceSize || pos&(SectorSize-1) != 0 {
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidSectorPos, pos)
	}

	return int(pos >> SectorShift), nil
}
